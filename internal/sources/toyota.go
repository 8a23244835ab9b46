package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/catalog"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/metrics"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/parser/pdftext"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/parser/toyota"
)

// TextExtractor converts a fetched document into text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) ([]byte, pdftext.Method, error)
}

// ToyotaPDF fetches warranty and maintenance guides and parses their
// schedules, substituting the standard schedule when parsing fails.
type ToyotaPDF struct {
	Fetcher   collector.Fetcher
	Catalog   *catalog.Catalog
	URLs      catalog.URLs
	Rate      float64
	Extractor TextExtractor
	Parser    *toyota.Parser
	Archive   *Archive
	// Cache, when set, is searched for a previously archived guide before
	// any request is made.
	Cache  collector.BlobReader
	Clock  collector.Clock
	Logger *zap.Logger
}

// Source implements Handler.
func (h *ToyotaPDF) Source() collector.Source { return collector.SourceToyotaPDF }

// Fetch returns the archived guide when Cache holds one. Otherwise it tries
// the primary document URL, then the alternate one. Only a fatal failure
// moves on to the next candidate.
func (h *ToyotaPDF) Fetch(ctx context.Context, unit collector.WorkUnit) (collector.Document, error) {
	if doc, ok := h.cached(ctx, unit); ok {
		return doc, nil
	}
	var lastErr error
	for _, url := range h.URLs.PDFCandidates(unit.Model, unit.Year) {
		res, err := fetchOK(ctx, h.Fetcher, collector.Target{
			Source:  collector.SourceToyotaPDF,
			URL:     url,
			Rate:    h.Rate,
			Headers: http.Header{"Accept": {"application/pdf,*/*;q=0.8"}},
		})
		if err == nil {
			return collector.Document{
				URL:         url,
				ContentType: contentType(res.Header),
				Body:        res.Payload,
				HTTPStatus:  res.HTTPStatus,
			}, nil
		}
		if !errors.Is(err, collector.ErrFatalFetch) {
			return collector.Document{}, err
		}
		h.logger().Debug("document candidate failed", zap.String("url", url), zap.Error(err))
		lastErr = err
	}
	return collector.Document{}, lastErr
}

// cached looks up an archived copy of the unit's guide. Lookup errors are
// logged and treated as a miss.
func (h *ToyotaPDF) cached(ctx context.Context, unit collector.WorkUnit) (collector.Document, bool) {
	if h.Cache == nil {
		return collector.Document{}, false
	}
	uri, body, err := h.Cache.FindObject(ctx, ObjectPrefix(unit, catalog.DocumentID(unit.Model, unit.Year)))
	switch {
	case errors.Is(err, collector.ErrObjectNotFound):
		return collector.Document{}, false
	case err != nil:
		h.logger().Warn("archive lookup failed", zap.String("unit", unit.Key()), zap.Error(err))
		return collector.Document{}, false
	}
	ct := "text/plain"
	if pdftext.IsPDF(body) {
		ct = "application/pdf"
	}
	h.logger().Debug("reusing archived document", zap.String("unit", unit.Key()), zap.String("uri", uri))
	return collector.Document{URL: uri, ContentType: ct, Body: body}, true
}

// Parse archives the document, extracts its text and parses the schedule.
func (h *ToyotaPDF) Parse(ctx context.Context, unit collector.WorkUnit, doc collector.Document) (Outcome, error) {
	ext := "txt"
	if pdftext.IsPDF(doc.Body) {
		ext = "pdf"
	}
	digest, uri := h.Archive.Put(ctx, unit, catalog.DocumentID(unit.Model, unit.Year), ext, doc.ContentType, doc.Body)

	text, method, err := h.Extractor.Extract(ctx, doc.Body)
	if err != nil {
		return Outcome{}, fmt.Errorf("extract text: %w", err)
	}

	rec, err := h.Parser.Parse(text, unit.Model, unit.Year)
	var perr *collector.ParseError
	switch {
	case errors.As(err, &perr):
		metrics.ObserveParseFailure(string(perr.Reason))
		h.logger().Warn("document unparseable, using standard schedule",
			zap.String("unit", unit.Key()),
			zap.String("reason", string(perr.Reason)),
			zap.String("extraction", string(method)),
		)
		rec, err = h.fallback(unit)
		if err != nil {
			return Outcome{}, err
		}
		rec.FallbackReason = string(perr.Reason)
	case err != nil:
		return Outcome{}, err
	}

	url := doc.URL
	rec.SourceURL = &url
	rec.ContentSHA256 = digest
	rec.RawURI = uri
	return Outcome{Record: rec, Fallback: rec.Fallback, Reason: reasonOf(perr)}, nil
}

func (h *ToyotaPDF) fallback(unit collector.WorkUnit) (collector.MaintenanceRecord, error) {
	model, ok := h.Catalog.Lookup(unit.Model)
	if !ok {
		return collector.MaintenanceRecord{}, &collector.ConfigError{Field: "models", Reason: fmt.Sprintf("unknown model %q", unit.Model)}
	}
	return toyota.StandardSchedule(model.Category, model.Name, unit.Year, h.Clock.Now()), nil
}

func (h *ToyotaPDF) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

func reasonOf(perr *collector.ParseError) collector.ParseReason {
	if perr == nil {
		return ""
	}
	return perr.Reason
}
