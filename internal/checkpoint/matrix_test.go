package checkpoint

import (
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/catalog"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
)

func smokeSpec() collector.MatrixSpec {
	return collector.MatrixSpec{
		Sources: []collector.Source{collector.SourceOwnersManual, collector.SourceToyotaPDF},
		Models:  []string{"tacoma", "Camry", "RAV4"},
		Years:   []int{2024, 2023},
	}
}

func TestMatrixUnitsAreOrdered(t *testing.T) {
	t.Parallel()

	m, err := NewMatrix(smokeSpec(), catalog.Default())
	require.NoError(t, err)

	units := slices.Collect(m.Units())
	require.Len(t, units, 12)
	assert.Equal(t, 12, m.Total())
	assert.True(t, slices.IsSortedFunc(units, collector.CompareUnits))
	assert.Equal(t, collector.WorkUnit{Source: collector.SourceToyotaPDF, Model: "Camry", Year: 2023}, units[0])
	assert.Equal(t, collector.WorkUnit{Source: collector.SourceOwnersManual, Model: "Tacoma", Year: 2024}, units[11])
	assert.Equal(t, []collector.Source{collector.SourceToyotaPDF, collector.SourceOwnersManual}, m.Sources())
}

func TestMatrixSkipsUnavailableModelYears(t *testing.T) {
	t.Parallel()

	m, err := NewMatrix(collector.MatrixSpec{
		Sources: []collector.Source{collector.SourceToyotaPDF},
		Models:  []string{"LandCruiser"},
		Years:   []int{2021, 2022, 2023, 2024},
	}, catalog.Default())
	require.NoError(t, err)

	var years []int
	for u := range m.Units() {
		years = append(years, u.Year)
	}
	assert.Equal(t, []int{2021, 2024}, years)
}

func TestNewMatrixRejectsBadSelections(t *testing.T) {
	t.Parallel()

	cat := catalog.Default()
	cases := map[string]collector.MatrixSpec{
		"unknown model":  {Sources: []collector.Source{collector.SourceToyotaPDF}, Models: []string{"Celica"}, Years: []int{2024}},
		"unknown source": {Sources: []collector.Source{"dealer"}, Models: []string{"Camry"}, Years: []int{2024}},
		"year range":     {Sources: []collector.Source{collector.SourceToyotaPDF}, Models: []string{"Camry"}, Years: []int{2030}},
		"empty":          {},
		"unavailable":    {Sources: []collector.Source{collector.SourceToyotaPDF}, Models: []string{"GR86"}, Years: []int{2018}},
	}
	for name, spec := range cases {
		_, err := NewMatrix(spec, cat)
		require.ErrorIs(t, err, collector.ErrConfiguration, name)
	}
}

func TestPendingSkipsCompletedAndResumesIdempotently(t *testing.T) {
	t.Parallel()

	m, err := NewMatrix(smokeSpec(), catalog.Default())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), ".checkpoint.json")
	store, err := Load(path, newClock(), nil)
	require.NoError(t, err)

	// Stale entry from a wider run stays on disk but is not pending work.
	stale := collector.WorkUnit{Source: collector.SourceFuelEconomy, Model: "Sienna", Year: 2019}
	require.NoError(t, store.MarkComplete(stale))

	var done []collector.WorkUnit
	for u := range m.Pending(store) {
		if len(done) == 5 {
			break
		}
		require.NoError(t, store.MarkComplete(u))
		done = append(done, u)
	}

	resumed, err := Load(path, newClock(), nil)
	require.NoError(t, err)
	remaining := slices.Collect(m.Pending(resumed))
	assert.Len(t, remaining, 7)
	for _, u := range remaining {
		assert.NotContains(t, done, u)
	}
	assert.True(t, resumed.IsComplete(stale))

	progress := m.Progress(resumed)
	assert.Equal(t, SourceProgress{Completed: 5, Total: 6}, progress[collector.SourceToyotaPDF])
	assert.Equal(t, SourceProgress{Completed: 0, Total: 6}, progress[collector.SourceOwnersManual])

	for _, u := range remaining {
		require.NoError(t, resumed.MarkComplete(u))
	}
	assert.Empty(t, slices.Collect(m.Pending(resumed)))
	assert.Equal(t, 13, resumed.Len())
}
