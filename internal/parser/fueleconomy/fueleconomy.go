// Package fueleconomy decodes FuelEconomy.gov REST responses.
package fueleconomy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/catalog"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
)

// MenuItem is one entry of a vehicle/menu response.
type MenuItem struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// menu tolerates the API's habit of returning a bare object when there is
// exactly one item.
type menu struct {
	Items menuItems `json:"menuItem"`
}

type menuItems []MenuItem

func (m *menuItems) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*m = nil
		return nil
	case data[0] == '{':
		var one MenuItem
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*m = menuItems{one}
		return nil
	}
	var many []MenuItem
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*m = many
	return nil
}

// DecodeMenu parses a menu response. An empty body or "null" means the API
// has nothing for the query.
func DecodeMenu(data []byte) ([]MenuItem, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var m menu
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil, &collector.ParseError{Reason: collector.ReasonMalformedEncoding, Detail: "menu: " + err.Error()}
	}
	return m.Items, nil
}

// VehicleIDs returns the numeric values of an options menu.
func VehicleIDs(items []MenuItem) ([]int, error) {
	ids := make([]int, 0, len(items))
	for _, it := range items {
		id, err := strconv.Atoi(strings.TrimSpace(it.Value))
		if err != nil {
			return nil, &collector.ParseError{
				Reason: collector.ReasonMalformedEncoding,
				Detail: fmt.Sprintf("vehicle id %q", it.Value),
			}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// number accepts JSON numbers and numeric strings. Anything else decodes to zero.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = number(f)
	return nil
}

type vehicle struct {
	ID             number `json:"id"`
	Make           string `json:"make"`
	Model          string `json:"model"`
	Year           number `json:"year"`
	Displacement   number `json:"displ"`
	Cylinders      number `json:"cylinders"`
	Transmission   string `json:"trany"`
	Drive          string `json:"drive"`
	FuelType       string `json:"fuelType1"`
	City           number `json:"city08"`
	Highway        number `json:"highway08"`
	Combined       number `json:"comb08"`
	VehicleClass   string `json:"VClass"`
	AnnualFuelCost number `json:"fuelCost08"`
	CO2            number `json:"co2TailpipeGpm"`
}

// DecodeVehicle parses a vehicle/{id} response.
func DecodeVehicle(data []byte, options, catalogModel string, now time.Time) (collector.VehicleSpec, error) {
	var v vehicle
	if err := json.Unmarshal(bytes.TrimSpace(data), &v); err != nil {
		return collector.VehicleSpec{}, &collector.ParseError{Reason: collector.ReasonMalformedEncoding, Detail: "vehicle: " + err.Error()}
	}
	if v.ID == 0 {
		return collector.VehicleSpec{}, &collector.ParseError{Reason: collector.ReasonEmptyInput, Detail: "vehicle without id"}
	}
	return collector.VehicleSpec{
		VehicleID:       int(v.ID),
		Make:            v.Make,
		Model:           v.Model,
		Year:            int(v.Year),
		Options:         options,
		Displacement:    float64(v.Displacement),
		Cylinders:       int(v.Cylinders),
		Transmission:    v.Transmission,
		Drive:           v.Drive,
		FuelType:        v.FuelType,
		CityMPG:         int(v.City),
		HighwayMPG:      int(v.Highway),
		CombinedMPG:     int(v.Combined),
		VehicleClass:    v.VehicleClass,
		AnnualFuelCost:  int(v.AnnualFuelCost),
		CO2GramsPerMile: float64(v.CO2),
		CatalogModel:    catalogModel,
		ScrapedAt:       now,
	}, nil
}

// MatchModels returns the API model names that belong to target. A name
// belongs to the catalog model whose display name it equals, or the longest
// display name it starts with followed by a space ("Corolla Cross" belongs to
// Corolla Cross, not Corolla; "Camry Hybrid" belongs to Camry).
func MatchModels(apiModels []string, target catalog.Model, all []catalog.Model) []string {
	var out []string
	for _, name := range apiModels {
		if owner, ok := owner(name, all); ok && strings.EqualFold(owner.Name, target.Name) {
			out = append(out, name)
		}
	}
	return out
}

func owner(apiModel string, all []catalog.Model) (catalog.Model, bool) {
	lower := strings.ToLower(strings.TrimSpace(apiModel))
	var best catalog.Model
	bestLen := -1
	for _, m := range all {
		for _, label := range []string{m.Display, m.Name} {
			l := strings.ToLower(label)
			if l == "" {
				continue
			}
			if lower == l || strings.HasPrefix(lower, l+" ") {
				if len(l) > bestLen {
					best, bestLen = m, len(l)
				}
			}
		}
	}
	return best, bestLen >= 0
}
