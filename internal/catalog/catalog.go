// Package catalog holds the static Toyota model/year table and the URL
// patterns for each source.
package catalog

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Category groups models that share fluid capacities and service intervals.
type Category string

// Model categories.
const (
	CategoryFourCylinder Category = "4cyl"
	CategoryV6           Category = "v6"
	CategoryTruck        Category = "truck"
)

// FirstYear and LastYear bound the default year range.
const (
	FirstYear = 2018
	LastYear  = 2025
)

// Model is one catalog entry.
type Model struct {
	// Name is the internal identifier, also used in Toyota PDF file names.
	Name string
	// Display is the marketing name as FuelEconomy.gov and owners see it.
	Display  string
	Years    []int
	Category Category
	Hybrid   bool
}

// Available reports whether the model was sold in year.
func (m Model) Available(year int) bool {
	return slices.Contains(m.Years, year)
}

// Catalog is an immutable lookup table of models.
type Catalog struct {
	models map[string]Model
	lower  map[string]string
	years  []int
}

// New builds a Catalog from entries. Duplicate names are rejected.
func New(models []Model, years []int) (*Catalog, error) {
	c := &Catalog{
		models: make(map[string]Model, len(models)),
		lower:  make(map[string]string, len(models)),
		years:  slices.Clone(years),
	}
	slices.Sort(c.years)
	for _, m := range models {
		if strings.TrimSpace(m.Name) == "" {
			return nil, fmt.Errorf("catalog: model name is required")
		}
		key := strings.ToLower(m.Name)
		if _, dup := c.lower[key]; dup {
			return nil, fmt.Errorf("catalog: duplicate model %q", m.Name)
		}
		m.Years = slices.Clone(m.Years)
		slices.Sort(m.Years)
		c.models[m.Name] = m
		c.lower[key] = m.Name
	}
	return c, nil
}

// Default returns the built-in 2018-2025 Toyota lineup.
func Default() *Catalog {
	c, err := New(defaultModels(), span(FirstYear, LastYear))
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup finds a model by internal name, case-insensitively.
func (c *Catalog) Lookup(name string) (Model, bool) {
	canonical, ok := c.lower[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Model{}, false
	}
	return c.models[canonical], true
}

// Models returns every model sorted by name.
func (c *Catalog) Models() []Model {
	out := make([]Model, 0, len(c.models))
	for _, m := range c.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns every internal model name sorted ascending.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.models))
	for name := range c.models {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Years returns the catalog's year range.
func (c *Catalog) Years() []int {
	return slices.Clone(c.years)
}

// Available reports whether model exists and was sold in year.
func (c *Catalog) Available(model string, year int) bool {
	m, ok := c.Lookup(model)
	return ok && m.Available(year)
}

// SmokeTest returns the minimal selection used for quick end-to-end checks.
func SmokeTest() (models []string, years []int) {
	return []string{"Camry", "RAV4", "Tacoma"}, []int{2023, 2024}
}

func span(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for y := from; y <= to; y++ {
		out = append(out, y)
	}
	return out
}

func defaultModels() []Model {
	all := span(FirstYear, LastYear)
	return []Model{
		{Name: "Camry", Display: "Camry", Years: all, Category: CategoryFourCylinder},
		{Name: "Corolla", Display: "Corolla", Years: all, Category: CategoryFourCylinder},
		{Name: "CorollaHatchback", Display: "Corolla Hatchback", Years: span(2019, 2025), Category: CategoryFourCylinder},
		{Name: "Avalon", Display: "Avalon", Years: span(2018, 2024), Category: CategoryV6},
		{Name: "Prius", Display: "Prius", Years: all, Category: CategoryFourCylinder, Hybrid: true},
		{Name: "PriusPrime", Display: "Prius Prime", Years: all, Category: CategoryFourCylinder, Hybrid: true},
		{Name: "Mirai", Display: "Mirai", Years: all, Category: CategoryFourCylinder, Hybrid: true},
		{Name: "GR86", Display: "GR86", Years: span(2022, 2025), Category: CategoryFourCylinder},
		{Name: "GRSupra", Display: "GR Supra", Years: span(2020, 2025), Category: CategoryV6},
		{Name: "Crown", Display: "Crown", Years: span(2023, 2025), Category: CategoryFourCylinder},
		{Name: "RAV4", Display: "RAV4", Years: all, Category: CategoryFourCylinder},
		{Name: "RAV4Prime", Display: "RAV4 Prime", Years: span(2021, 2025), Category: CategoryFourCylinder, Hybrid: true},
		{Name: "Highlander", Display: "Highlander", Years: all, Category: CategoryV6},
		{Name: "HighlanderHybrid", Display: "Highlander Hybrid", Years: all, Category: CategoryFourCylinder},
		{Name: "GrandHighlander", Display: "Grand Highlander", Years: span(2024, 2025), Category: CategoryFourCylinder},
		{Name: "4Runner", Display: "4Runner", Years: all, Category: CategoryV6},
		{Name: "Sequoia", Display: "Sequoia", Years: all, Category: CategoryV6},
		{Name: "Venza", Display: "Venza", Years: span(2021, 2025), Category: CategoryFourCylinder},
		{Name: "CHR", Display: "C-HR", Years: span(2018, 2022), Category: CategoryFourCylinder},
		{Name: "CorollaCross", Display: "Corolla Cross", Years: span(2022, 2025), Category: CategoryFourCylinder},
		{Name: "bZ4X", Display: "bZ4X", Years: span(2023, 2025), Category: CategoryFourCylinder, Hybrid: true},
		{Name: "LandCruiser", Display: "Land Cruiser", Years: append(span(2018, 2021), 2024, 2025), Category: CategoryFourCylinder},
		{Name: "Tacoma", Display: "Tacoma", Years: all, Category: CategoryTruck},
		{Name: "Tundra", Display: "Tundra", Years: all, Category: CategoryTruck},
		{Name: "Sienna", Display: "Sienna", Years: all, Category: CategoryV6},
	}
}
