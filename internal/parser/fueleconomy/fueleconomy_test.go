package fueleconomy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/catalog"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
)

func TestDecodeMenuShapes(t *testing.T) {
	t.Parallel()

	many, err := DecodeMenu([]byte(`{"menuItem":[{"text":"Camry","value":"Camry"},{"text":"Camry Hybrid LE","value":"Camry Hybrid LE"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []MenuItem{{"Camry", "Camry"}, {"Camry Hybrid LE", "Camry Hybrid LE"}}, many)

	one, err := DecodeMenu([]byte(`{"menuItem":{"text":"Auto (AV-S8), 4 cyl, 2.5 L","value":"47045"}}`))
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "47045", one[0].Value)

	for _, empty := range []string{"", "null", `{"menuItem":null}`, `{}`} {
		items, err := DecodeMenu([]byte(empty))
		require.NoError(t, err, empty)
		assert.Empty(t, items, empty)
	}
}

func TestDecodeMenuRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := DecodeMenu([]byte(`<menuItems><menuItem>`))
	require.ErrorIs(t, err, collector.ErrParse)
}

func TestVehicleIDs(t *testing.T) {
	t.Parallel()

	ids, err := VehicleIDs([]MenuItem{{Value: "47045"}, {Value: " 47046 "}})
	require.NoError(t, err)
	assert.Equal(t, []int{47045, 47046}, ids)

	_, err = VehicleIDs([]MenuItem{{Value: "LE"}})
	require.ErrorIs(t, err, collector.ErrParse)
}

func TestDecodeVehicleAcceptsStringNumbers(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	body := []byte(`{
		"id": "47045", "make": "Toyota", "model": "Camry", "year": "2024",
		"displ": "2.5", "cylinders": 4, "trany": "Automatic (S8)", "drive": "Front-Wheel Drive",
		"fuelType1": "Regular Gasoline", "city08": "28", "highway08": 39, "comb08": "32",
		"VClass": "Midsize Cars", "fuelCost08": "1650", "co2TailpipeGpm": "277.0"
	}`)
	v, err := DecodeVehicle(body, "Auto (S8), 4 cyl, 2.5 L", "Camry", now)
	require.NoError(t, err)

	assert.Equal(t, collector.VehicleSpec{
		VehicleID:       47045,
		Make:            "Toyota",
		Model:           "Camry",
		Year:            2024,
		Options:         "Auto (S8), 4 cyl, 2.5 L",
		Displacement:    2.5,
		Cylinders:       4,
		Transmission:    "Automatic (S8)",
		Drive:           "Front-Wheel Drive",
		FuelType:        "Regular Gasoline",
		CityMPG:         28,
		HighwayMPG:      39,
		CombinedMPG:     32,
		VehicleClass:    "Midsize Cars",
		AnnualFuelCost:  1650,
		CO2GramsPerMile: 277,
		CatalogModel:    "Camry",
		ScrapedAt:       now,
	}, v)
}

func TestDecodeVehicleErrors(t *testing.T) {
	t.Parallel()

	_, err := DecodeVehicle([]byte(`not json`), "", "Camry", time.Time{})
	require.ErrorIs(t, err, collector.ErrParse)

	_, err = DecodeVehicle([]byte(`{"make":"Toyota"}`), "", "Camry", time.Time{})
	require.ErrorIs(t, err, collector.ErrParse)

	v, err := DecodeVehicle([]byte(`{"id":1,"displ":"n/a","cylinders":null}`), "", "bZ4X", time.Time{})
	require.NoError(t, err)
	assert.Zero(t, v.Displacement)
	assert.Zero(t, v.Cylinders)
}

func TestMatchModelsPrefersLongestDisplayName(t *testing.T) {
	t.Parallel()

	all := catalog.Default().Models()
	api := []string{
		"Camry", "Camry Hybrid LE", "Corolla", "Corolla Hybrid", "Corolla Cross",
		"Corolla Cross Hybrid AWD", "Corolla Hatchback", "Prius", "Prius Prime",
		"Highlander AWD", "Highlander Hybrid AWD", "GR Supra", "Land Cruiser Wagon 4WD",
	}
	lookup := func(name string) catalog.Model {
		m, ok := catalog.Default().Lookup(name)
		require.True(t, ok, name)
		return m
	}

	assert.Equal(t, []string{"Camry", "Camry Hybrid LE"}, MatchModels(api, lookup("Camry"), all))
	assert.Equal(t, []string{"Corolla", "Corolla Hybrid"}, MatchModels(api, lookup("Corolla"), all))
	assert.Equal(t, []string{"Corolla Cross", "Corolla Cross Hybrid AWD"}, MatchModels(api, lookup("CorollaCross"), all))
	assert.Equal(t, []string{"Prius"}, MatchModels(api, lookup("Prius"), all))
	assert.Equal(t, []string{"Highlander AWD"}, MatchModels(api, lookup("Highlander"), all))
	assert.Equal(t, []string{"Highlander Hybrid AWD"}, MatchModels(api, lookup("HighlanderHybrid"), all))
	assert.Equal(t, []string{"GR Supra"}, MatchModels(api, lookup("GRSupra"), all))
	assert.Equal(t, []string{"Land Cruiser Wagon 4WD"}, MatchModels(api, lookup("LandCruiser"), all))
	assert.Empty(t, MatchModels(api, lookup("Tundra"), all))
}
