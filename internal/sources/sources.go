// Package sources implements the per-source collection steps. Each handler
// splits a unit into a fetch phase and a parse phase so the runner can track
// its state between them.
package sources

import (
	"context"
	"net/http"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
)

// Outcome is the parsed result of one unit.
type Outcome struct {
	Record collector.Record
	// Fallback marks a record substituted for an unparseable document.
	Fallback bool
	Reason   collector.ParseReason
}

// Handler collects units for one source.
type Handler interface {
	Source() collector.Source
	// Fetch retrieves the unit's raw material. Errors are *collector.FetchError.
	Fetch(ctx context.Context, unit collector.WorkUnit) (collector.Document, error)
	// Parse turns a fetched document into a record.
	Parse(ctx context.Context, unit collector.WorkUnit, doc collector.Document) (Outcome, error)
}

// Registry maps sources to handlers.
type Registry map[collector.Source]Handler

// NewRegistry indexes handlers by source.
func NewRegistry(handlers ...Handler) Registry {
	r := make(Registry, len(handlers))
	for _, h := range handlers {
		r[h.Source()] = h
	}
	return r
}

func fetchOK(ctx context.Context, fetcher collector.Fetcher, target collector.Target) (collector.FetchResult, error) {
	res := fetcher.Fetch(ctx, target)
	if res.OK() {
		return res, nil
	}
	if res.Err != nil {
		return res, res.Err
	}
	return res, &collector.FetchError{URL: target.URL, Status: res.Status, HTTPStatus: res.HTTPStatus, Attempts: res.Attempts}
}

func contentType(h http.Header) string {
	if h == nil {
		return ""
	}
	return h.Get("Content-Type")
}
