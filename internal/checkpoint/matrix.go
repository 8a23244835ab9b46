package checkpoint

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/catalog"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
)

// Matrix is a validated (source, model, year) selection. Model/year pairs the
// catalog marks unavailable are not part of it.
type Matrix struct {
	sources []collector.Source
	models  []string
	years   []int
	cat     *catalog.Catalog
}

// NewMatrix validates spec against cat. Unknown sources, models or years,
// and selections that yield no units, are configuration errors.
func NewMatrix(spec collector.MatrixSpec, cat *catalog.Catalog) (*Matrix, error) {
	m := &Matrix{cat: cat}

	for _, s := range spec.Sources {
		if !s.Valid() {
			return nil, &collector.ConfigError{Field: "sources", Reason: fmt.Sprintf("unknown source %q", s)}
		}
		if !slices.Contains(m.sources, s) {
			m.sources = append(m.sources, s)
		}
	}
	slices.SortFunc(m.sources, func(a, b collector.Source) int { return a.Rank() - b.Rank() })

	for _, name := range spec.Models {
		model, ok := cat.Lookup(name)
		if !ok {
			return nil, &collector.ConfigError{Field: "models", Reason: fmt.Sprintf("unknown model %q", name)}
		}
		if !slices.Contains(m.models, model.Name) {
			m.models = append(m.models, model.Name)
		}
	}
	slices.Sort(m.models)

	for _, y := range spec.Years {
		if !slices.Contains(cat.Years(), y) {
			return nil, &collector.ConfigError{Field: "years", Reason: fmt.Sprintf("year %d outside %d-%d", y, catalog.FirstYear, catalog.LastYear)}
		}
		if !slices.Contains(m.years, y) {
			m.years = append(m.years, y)
		}
	}
	slices.Sort(m.years)

	var missing []string
	if len(m.sources) == 0 {
		missing = append(missing, "sources")
	}
	if len(m.models) == 0 {
		missing = append(missing, "models")
	}
	if len(m.years) == 0 {
		missing = append(missing, "years")
	}
	if len(missing) > 0 {
		return nil, &collector.ConfigError{Field: "matrix", Reason: "no " + strings.Join(missing, ", ")}
	}
	if m.Total() == 0 {
		return nil, &collector.ConfigError{Field: "matrix", Reason: "no selected model is available in the selected years"}
	}
	return m, nil
}

// Sources returns the selected sources in matrix order.
func (m *Matrix) Sources() []collector.Source {
	return slices.Clone(m.sources)
}

// Units yields every unit in matrix order: source, then model, then year.
func (m *Matrix) Units() iter.Seq[collector.WorkUnit] {
	return func(yield func(collector.WorkUnit) bool) {
		for _, s := range m.sources {
			for _, model := range m.models {
				for _, y := range m.years {
					if !m.cat.Available(model, y) {
						continue
					}
					if !yield(collector.WorkUnit{Source: s, Model: model, Year: y}) {
						return
					}
				}
			}
		}
	}
}

// Total counts the units in the matrix.
func (m *Matrix) Total() int {
	n := 0
	for range m.Units() {
		n++
	}
	return n
}

// Pending lazily yields the units not yet complete in store. Completion is
// checked as each unit is reached, so units finished during iteration are
// skipped.
func (m *Matrix) Pending(store *Store) iter.Seq[collector.WorkUnit] {
	return func(yield func(collector.WorkUnit) bool) {
		for u := range m.Units() {
			if store.IsComplete(u) {
				continue
			}
			if !yield(u) {
				return
			}
		}
	}
}

// Progress counts completed and total units per source, ignoring completed
// entries outside the matrix.
func (m *Matrix) Progress(store *Store) map[collector.Source]SourceProgress {
	out := make(map[collector.Source]SourceProgress, len(m.sources))
	for u := range m.Units() {
		p := out[u.Source]
		p.Total++
		if store.IsComplete(u) {
			p.Completed++
		}
		out[u.Source] = p
	}
	return out
}

// SourceProgress is the completion count for one source.
type SourceProgress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}
