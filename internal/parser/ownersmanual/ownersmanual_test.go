package ownersmanual

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/catalog"
)

func TestStandardSpecsByCategory(t *testing.T) {
	t.Parallel()

	cat := catalog.Default()
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	cases := []struct {
		model    string
		oil      string
		capacity string
	}{
		{"Camry", OilStandard, "4.8 quarts with filter"},
		{"Highlander", OilStandard, "6.4 quarts with filter"},
		{"GRSupra", OilStandard, "6.4 quarts with filter"},
		{"Tacoma", OilStandard, "7.5-8.5 quarts with filter"},
		{"Prius", OilHybrid, "4.8 quarts with filter"},
		{"RAV4Prime", OilHybrid, "4.8 quarts with filter"},
	}
	for _, tc := range cases {
		m, ok := cat.Lookup(tc.model)
		require.True(t, ok, tc.model)

		spec := StandardSpecs(m, 2024, "https://example.com/manual", now)
		assert.Equal(t, tc.model, spec.Model)
		assert.Equal(t, 2024, spec.Year)
		assert.Equal(t, tc.oil, spec.OilType, tc.model)
		assert.Equal(t, tc.capacity, spec.OilCapacity, tc.model)
		assert.Equal(t, Coolant, spec.CoolantType)
		assert.Equal(t, Transmission, spec.TransmissionFluid)
		assert.Equal(t, BrakeFluid, spec.BrakeFluid)
		assert.Equal(t, "https://example.com/manual", spec.ManualURL)
		assert.Equal(t, now, spec.ScrapedAt)

		require.Len(t, spec.Fluids, 4)
		assert.Equal(t, "Engine Oil", spec.Fluids[0].FluidType)
		require.NotNil(t, spec.Fluids[0].Capacity)
		assert.Equal(t, tc.capacity, *spec.Fluids[0].Capacity)
		assert.Nil(t, spec.Fluids[1].Capacity)
	}
}
