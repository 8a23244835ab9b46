package sources

import (
	"context"
	"fmt"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/catalog"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/parser/ownersmanual"
)

// OwnersManual generates service specs from the catalog. It never touches
// the network.
type OwnersManual struct {
	Catalog *catalog.Catalog
	URLs    catalog.URLs
	Clock   collector.Clock
}

// Source implements Handler.
func (h *OwnersManual) Source() collector.Source { return collector.SourceOwnersManual }

// Fetch returns the informational manual URL without requesting it.
func (h *OwnersManual) Fetch(_ context.Context, unit collector.WorkUnit) (collector.Document, error) {
	return collector.Document{URL: h.URLs.OwnersManual(unit.Model, unit.Year)}, nil
}

// Parse builds the category's standard specs.
func (h *OwnersManual) Parse(_ context.Context, unit collector.WorkUnit, doc collector.Document) (Outcome, error) {
	model, ok := h.Catalog.Lookup(unit.Model)
	if !ok {
		return Outcome{}, &collector.ConfigError{Field: "models", Reason: fmt.Sprintf("unknown model %q", unit.Model)}
	}
	return Outcome{Record: ownersmanual.StandardSpecs(model, unit.Year, doc.URL, h.Clock.Now())}, nil
}
