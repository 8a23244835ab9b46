// Package config loads and validates collector configuration via Viper.
package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/catalog"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
)

// Archive providers.
const (
	ArchiveLocal = "local"
	ArchiveGCS   = "gcs"
	ArchiveNone  = "none"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config captures every knob of a collection run.
type Config struct {
	Output     OutputConfig     `mapstructure:"output"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Matrix     MatrixConfig     `mapstructure:"matrix"`
	Resume     bool             `mapstructure:"resume"`
	RateLimit  float64          `mapstructure:"rate_limit"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Sources    SourcesConfig    `mapstructure:"sources"`
	PDF        PDFConfig        `mapstructure:"pdf"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Status     StatusConfig     `mapstructure:"status"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// OutputConfig locates the output datasets.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// CheckpointConfig locates the checkpoint file. Empty means <output.dir>/.checkpoint.json.
type CheckpointConfig struct {
	Path string `mapstructure:"path"`
}

// MatrixConfig selects the work units. Empty lists mean everything in the catalog.
type MatrixConfig struct {
	Sources   []string `mapstructure:"sources"`
	Models    []string `mapstructure:"models"`
	Years     []string `mapstructure:"years"`
	SmokeTest bool     `mapstructure:"smoke_test"`
}

// FetchConfig tunes the HTTP transport and retry policy.
type FetchConfig struct {
	UserAgent      string        `mapstructure:"user_agent"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BackoffInitial time.Duration `mapstructure:"backoff_initial"`
	BackoffMax     time.Duration `mapstructure:"backoff_max"`
	Jitter         float64       `mapstructure:"jitter"`
	HostRPS        float64       `mapstructure:"host_rps"`
	MaxBodyBytes   int           `mapstructure:"max_body_bytes"`
}

// SourcesConfig holds per-source endpoints and rates.
type SourcesConfig struct {
	ToyotaPDF    ToyotaPDFConfig    `mapstructure:"toyota_pdf"`
	FuelEconomy  FuelEconomyConfig  `mapstructure:"fueleconomy"`
	OwnersManual OwnersManualConfig `mapstructure:"owners_manual"`
}

// ToyotaPDFConfig configures the maintenance guide source.
type ToyotaPDFConfig struct {
	Rate          float64 `mapstructure:"rate"`
	PrimaryBase   string  `mapstructure:"primary_base"`
	AlternateBase string  `mapstructure:"alternate_base"`
	// UseCache parses an already archived guide instead of downloading it.
	UseCache bool `mapstructure:"use_cache"`
}

// FuelEconomyConfig configures the FuelEconomy.gov source.
type FuelEconomyConfig struct {
	Rate    float64 `mapstructure:"rate"`
	BaseURL string  `mapstructure:"base_url"`
	Make    string  `mapstructure:"make"`
}

// OwnersManualConfig configures the owner's manual source.
type OwnersManualConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// PDFConfig configures text extraction.
type PDFConfig struct {
	Pdftotext string        `mapstructure:"pdftotext"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ArchiveConfig selects where raw documents are kept.
type ArchiveConfig struct {
	Provider  string `mapstructure:"provider"`
	Dir       string `mapstructure:"dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// StatusConfig enables the operator HTTP server.
type StatusConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
	Verbose     bool `mapstructure:"verbose"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("output.dir", "output")
	v.SetDefault("checkpoint.path", "")
	v.SetDefault("matrix.sources", []string{})
	v.SetDefault("matrix.models", []string{})
	v.SetDefault("matrix.years", []string{})
	v.SetDefault("matrix.smoke_test", false)
	v.SetDefault("resume", true)
	v.SetDefault("rate_limit", 0.0)
	v.SetDefault("fetch.user_agent", defaultUserAgent)
	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("fetch.max_attempts", 5)
	v.SetDefault("fetch.backoff_initial", "1s")
	v.SetDefault("fetch.backoff_max", "60s")
	v.SetDefault("fetch.jitter", 0.3)
	v.SetDefault("fetch.host_rps", 0.0)
	v.SetDefault("fetch.max_body_bytes", 50<<20)
	v.SetDefault("sources.toyota_pdf.rate", 1.0)
	v.SetDefault("sources.toyota_pdf.primary_base", catalog.DefaultPDFPrimaryBase)
	v.SetDefault("sources.toyota_pdf.alternate_base", catalog.DefaultPDFAlternateBase)
	v.SetDefault("sources.toyota_pdf.use_cache", false)
	v.SetDefault("sources.fueleconomy.rate", 2.0)
	v.SetDefault("sources.fueleconomy.base_url", catalog.DefaultFuelEconomyBase)
	v.SetDefault("sources.fueleconomy.make", catalog.DefaultFuelEconomyMake)
	v.SetDefault("sources.owners_manual.base_url", catalog.DefaultOwnersManualBase)
	v.SetDefault("pdf.pdftotext", "pdftotext")
	v.SetDefault("pdf.timeout", "60s")
	v.SetDefault("archive.provider", ArchiveLocal)
	v.SetDefault("archive.dir", "")
	v.SetDefault("archive.gcs_bucket", "")
	v.SetDefault("archive.prefix", "raw")
	v.SetDefault("status.addr", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.verbose", false)
}

// Load builds a validated Config from v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, &collector.ConfigError{Field: "config", Reason: err.Error()}
	}
	cfg.applyDerived()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDerived() {
	if c.Checkpoint.Path == "" {
		c.Checkpoint.Path = filepath.Join(c.Output.Dir, ".checkpoint.json")
	}
	if c.Archive.Dir == "" {
		c.Archive.Dir = filepath.Join(c.Output.Dir, "raw")
	}
	c.Archive.Provider = strings.ToLower(strings.TrimSpace(c.Archive.Provider))
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch {
	case c.Output.Dir == "":
		return invalid("output.dir", "must be set")
	case c.RateLimit < 0:
		return invalid("rate_limit", "must be >= 0")
	case c.Fetch.Timeout <= 0:
		return invalid("fetch.timeout", "must be > 0")
	case c.Fetch.MaxAttempts <= 0:
		return invalid("fetch.max_attempts", "must be > 0")
	case c.Fetch.BackoffInitial <= 0:
		return invalid("fetch.backoff_initial", "must be > 0")
	case c.Fetch.BackoffMax < c.Fetch.BackoffInitial:
		return invalid("fetch.backoff_max", "must be >= fetch.backoff_initial")
	case c.Fetch.Jitter < 0 || c.Fetch.Jitter > 1:
		return invalid("fetch.jitter", "must be within [0, 1]")
	case c.Fetch.HostRPS < 0:
		return invalid("fetch.host_rps", "must be >= 0")
	case c.Sources.ToyotaPDF.Rate <= 0:
		return invalid("sources.toyota_pdf.rate", "must be > 0")
	case c.Sources.FuelEconomy.Rate <= 0:
		return invalid("sources.fueleconomy.rate", "must be > 0")
	}
	switch c.Archive.Provider {
	case ArchiveLocal:
	case ArchiveNone:
		if c.Sources.ToyotaPDF.UseCache {
			return invalid("sources.toyota_pdf.use_cache", "requires an archive provider")
		}
	case ArchiveGCS:
		if c.Archive.GCSBucket == "" {
			return invalid("archive.gcs_bucket", "must be set when archive.provider is gcs")
		}
	default:
		return invalid("archive.provider", fmt.Sprintf("unknown provider %q", c.Archive.Provider))
	}
	return nil
}

// SourceRate returns the request spacing for src in requests per second. A
// positive global rate limit overrides every source.
func (c Config) SourceRate(src collector.Source) float64 {
	if c.RateLimit > 0 {
		return c.RateLimit
	}
	switch src {
	case collector.SourceToyotaPDF:
		return c.Sources.ToyotaPDF.Rate
	case collector.SourceFuelEconomy:
		return c.Sources.FuelEconomy.Rate
	default:
		return 0
	}
}

// URLs returns the configured source endpoints.
func (c Config) URLs() catalog.URLs {
	return catalog.URLs{
		PDFPrimaryBase:   c.Sources.ToyotaPDF.PrimaryBase,
		PDFAlternateBase: c.Sources.ToyotaPDF.AlternateBase,
		FuelEconomyBase:  c.Sources.FuelEconomy.BaseURL,
		FuelEconomyMake:  c.Sources.FuelEconomy.Make,
		OwnersManualBase: c.Sources.OwnersManual.BaseURL,
	}
}

// MatrixSpec resolves the selection against cat. The smoke-test preset
// replaces models and years but keeps the source selection.
func (c Config) MatrixSpec(cat *catalog.Catalog) (collector.MatrixSpec, error) {
	spec := collector.MatrixSpec{}

	for _, raw := range splitList(c.Matrix.Sources) {
		src, err := collector.ParseSource(raw)
		if err != nil {
			return collector.MatrixSpec{}, err
		}
		if !slices.Contains(spec.Sources, src) {
			spec.Sources = append(spec.Sources, src)
		}
	}
	if len(spec.Sources) == 0 {
		spec.Sources = collector.Sources()
	}

	if c.Matrix.SmokeTest {
		spec.Models, spec.Years = catalog.SmokeTest()
		return spec, nil
	}

	for _, name := range splitList(c.Matrix.Models) {
		m, ok := cat.Lookup(name)
		if !ok {
			return collector.MatrixSpec{}, invalid("models", fmt.Sprintf("unknown model %q", name))
		}
		spec.Models = append(spec.Models, m.Name)
	}
	if len(spec.Models) == 0 {
		spec.Models = cat.Names()
	}

	years, err := parseYears(splitList(c.Matrix.Years), cat.Years())
	if err != nil {
		return collector.MatrixSpec{}, err
	}
	if len(years) == 0 {
		years = cat.Years()
	}
	spec.Years = years
	return spec, nil
}

// splitList accepts both repeated values and comma-separated ones, since env
// variables and flags arrive as single strings.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// parseYears accepts single years and inclusive ranges such as 2020-2023.
// Every year must fall inside the span of known.
func parseYears(values []string, known []int) ([]int, error) {
	if len(known) == 0 {
		return nil, invalid("years", "catalog has no years")
	}
	first, last := slices.Min(known), slices.Max(known)
	var out []int
	seen := make(map[int]struct{})
	for _, v := range values {
		from, to, isRange := strings.Cut(v, "-")
		lo, err := strconv.Atoi(strings.TrimSpace(from))
		if err != nil {
			return nil, invalid("years", fmt.Sprintf("bad year %q", v))
		}
		hi := lo
		if isRange {
			if hi, err = strconv.Atoi(strings.TrimSpace(to)); err != nil || hi < lo {
				return nil, invalid("years", fmt.Sprintf("bad year range %q", v))
			}
		}
		if lo < first || hi > last {
			return nil, invalid("years", fmt.Sprintf("%q outside %d-%d", v, first, last))
		}
		for y := lo; y <= hi; y++ {
			if _, dup := seen[y]; !dup {
				seen[y] = struct{}{}
				out = append(out, y)
			}
		}
	}
	return out, nil
}

func invalid(field, reason string) error {
	return &collector.ConfigError{Field: field, Reason: reason}
}
