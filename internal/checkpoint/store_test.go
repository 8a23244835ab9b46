package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
)

type stepClock struct{ t time.Time }

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newClock() *stepClock {
	return &stepClock{t: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
}

var (
	camry24  = collector.WorkUnit{Source: collector.SourceToyotaPDF, Model: "Camry", Year: 2024}
	rav423   = collector.WorkUnit{Source: collector.SourceFuelEconomy, Model: "RAV4", Year: 2023}
	tacoma23 = collector.WorkUnit{Source: collector.SourceToyotaPDF, Model: "Tacoma", Year: 2023}
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	s, err := Load(filepath.Join(t.TempDir(), "none.json"), newClock(), nil)
	require.NoError(t, err)
	assert.Zero(t, s.Len())
	assert.False(t, s.Corrupted())
	assert.Empty(t, s.RunID())
}

func TestMarkCompletePersistsAndReloads(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", ".checkpoint.json")
	s, err := Load(path, newClock(), nil)
	require.NoError(t, err)
	assert.Equal(t, "run-1", s.Begin("run-1"))

	require.NoError(t, s.MarkComplete(tacoma23))
	require.NoError(t, s.MarkComplete(camry24))
	require.NoError(t, s.MarkComplete(camry24))

	reloaded, err := Load(path, newClock(), nil)
	require.NoError(t, err)
	assert.Equal(t, "run-1", reloaded.RunID())
	assert.Equal(t, "run-1", reloaded.Begin("run-2"))
	assert.True(t, reloaded.IsComplete(camry24))
	assert.True(t, reloaded.IsComplete(tacoma23))
	assert.False(t, reloaded.IsComplete(rav423))

	entries := reloaded.Completed()
	require.Len(t, entries, 2)
	assert.Equal(t, camry24, entries[0].Unit())
	assert.Equal(t, tacoma23, entries[1].Unit())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.EqualValues(t, Version, doc["version"])
	assert.Contains(t, doc, "updated_at")

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".checkpoint-*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestLoadCorruptFileStartsEmpty(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"truncated":     `{"version":1,"completed":[{"source":"toyota_pdf"`,
		"wrong version": `{"version":99,"completed":[]}`,
		"bad source":    `{"version":1,"completed":[{"source":"dealer","model":"Camry","year":2024}]}`,
		"binary":        "\x00\x01\x02",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), ".checkpoint.json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

			s, err := Load(path, newClock(), nil)
			require.NoError(t, err)
			assert.True(t, s.Corrupted())
			assert.Zero(t, s.Len())

			moved, err := os.ReadFile(path + ".corrupt")
			require.NoError(t, err)
			assert.Equal(t, body, string(moved))

			require.NoError(t, s.MarkComplete(camry24))
			again, err := Load(path, newClock(), nil)
			require.NoError(t, err)
			assert.False(t, again.Corrupted())
			assert.True(t, again.IsComplete(camry24))
		})
	}
}

func TestResetClearsState(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".checkpoint.json")
	s, err := Load(path, newClock(), nil)
	require.NoError(t, err)
	s.Begin("run-1")
	require.NoError(t, s.MarkComplete(camry24))

	require.NoError(t, s.Reset())
	assert.Zero(t, s.Len())
	assert.Empty(t, s.RunID())

	reloaded, err := Load(path, newClock(), nil)
	require.NoError(t, err)
	assert.Zero(t, reloaded.Len())
}

func TestMarkCompleteFailureLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	sub := filepath.Join(t.TempDir(), "sub")
	s, err := Load(filepath.Join(sub, ".checkpoint.json"), newClock(), nil)
	require.NoError(t, err)

	// A regular file where the directory should be makes every save fail.
	require.NoError(t, os.WriteFile(sub, nil, 0o644))
	require.Error(t, s.MarkComplete(camry24))
	assert.False(t, s.IsComplete(camry24))
}

func TestAcquireLockIsExclusive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".checkpoint.json")
	first, err := AcquireLock(path)
	require.NoError(t, err)

	_, err = AcquireLock(path)
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, first.Release())
	second, err := AcquireLock(path)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}
