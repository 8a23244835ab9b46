package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/checkpoint"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/runner"
	"github.com/JakeFAU/toyota-maintenance-collector/pkg/config"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestModelsCommandListsCatalog(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	code := execute([]string{"models"}, &out, &out)
	require.Equal(t, ExitOK, code, out.String())
	assert.Contains(t, out.String(), "CorollaHatchback")
	assert.Contains(t, out.String(), "Corolla Hatchback")
	assert.Contains(t, out.String(), "2018-2025")
}

func TestCollectRejectsUnknownModel(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	code := execute([]string{"collect", "--output-dir", t.TempDir(), "--models", "Celica"}, &out, &out)
	assert.Equal(t, ExitConfigError, code)
	assert.Contains(t, out.String(), "unknown model")
}

func TestCollectRejectsUnknownSource(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	code := execute([]string{"collect", "--output-dir", t.TempDir(), "--source", "dealer"}, &out, &out)
	assert.Equal(t, ExitConfigError, code)
}

func TestStatusWithoutCheckpoint(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	code := execute([]string{"status", "--output-dir", t.TempDir()}, &out, &out)
	require.Equal(t, ExitOK, code, out.String())
	assert.Contains(t, out.String(), "No checkpoint")
}

func TestStatusReportsCheckpointProgress(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := checkpoint.Load(filepath.Join(dir, ".checkpoint.json"), fixedClock{t: time.Unix(1_700_000_000, 0)}, nil)
	require.NoError(t, err)
	store.Begin("run-status")
	require.NoError(t, store.MarkComplete(collector.WorkUnit{Source: collector.SourceToyotaPDF, Model: "Camry", Year: 2024}))

	var out bytes.Buffer
	code := execute([]string{"status", "--output-dir", dir}, &out, &out)
	require.Equal(t, ExitOK, code, out.String())
	assert.Contains(t, out.String(), "run-status")
	assert.Contains(t, out.String(), "toyota_pdf")
	assert.Contains(t, out.String(), "owners_manual")
}

func TestRenderSummary(t *testing.T) {
	t.Parallel()

	s := runner.Summary{
		RunID:    "run-1",
		Duration: "2s",
		Total:    3,
		Done:     2,
		Fallback: 1,
		Failed:   1,
		Pending:  1,
		Failures: []runner.Failure{{
			Unit:   collector.WorkUnit{Source: collector.SourceFuelEconomy, Model: "RAV4", Year: 2024},
			Stage:  runner.StateFetching,
			Reason: "http 503",
		}},
		BySource: map[collector.Source]*runner.SourceCounts{
			collector.SourceFuelEconomy: {Total: 3, Done: 2, Fallback: 1, Failed: 1},
		},
	}
	var out bytes.Buffer
	renderSummary(&out, s, false)

	got := out.String()
	assert.Contains(t, got, "== Run run-1 ==")
	assert.Contains(t, got, "[WARN] 1 units failed")
	assert.Contains(t, got, "fueleconomy:RAV4:2024")
	assert.Contains(t, got, "http 503")
	assert.NotContains(t, got, ansiReset)
}

func TestYearSpan(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2018-2021, 2024", yearSpan([]int{2018, 2019, 2020, 2021, 2024}))
	assert.Equal(t, "2022", yearSpan([]int{2022}))
	assert.Empty(t, yearSpan(nil))
}

func TestPercent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "50.0%", percent(1, 2))
	assert.Equal(t, "-", percent(0, 0))
}

func TestShouldColorizeNonFile(t *testing.T) {
	t.Parallel()

	assert.False(t, shouldColorize(&bytes.Buffer{}))
}

func TestLogConfigSource(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "collector.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resume: false\n"), 0o600))
	v := viper.New()
	require.NoError(t, config.InitConfig(v, path))

	core, observed := observer.New(zap.DebugLevel)
	logConfigSource(zap.New(core), v)
	entries := observed.FilterMessage("using config file").All()
	require.Len(t, entries, 1)
	assert.Equal(t, path, entries[0].ContextMap()["path"])

	core, observed = observer.New(zap.DebugLevel)
	logConfigSource(zap.New(core), viper.New())
	assert.Equal(t, 1, observed.FilterMessage("config file not found; using defaults and environment variables").Len())
}
