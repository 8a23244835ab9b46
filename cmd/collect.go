package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/api"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/catalog"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/checkpoint"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/clock/system"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/config"
	collyfetcher "github.com/JakeFAU/toyota-maintenance-collector/internal/fetcher/colly"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/fetcher/ratelimited"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/hash/sha256"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/id/uuid"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/output"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/parser/pdftext"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/parser/toyota"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/policy/ratelimit"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/runner"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/sources"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/storage/gcs"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/storage/local"
)

func newCollectCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Runs (or resumes) a collection over the selected matrix",
		Long: `Processes every pending (source, model, year) unit in order. Completed units
are recorded in the checkpoint and skipped on the next run unless --no-resume
is given. SIGINT or SIGTERM stops the run after the unit in flight.`,
		Example: `  maintenance-collector collect --smoke-test
  maintenance-collector collect --models Camry,RAV4 --years 2020-2024 --source toyota-pdf
  maintenance-collector collect --no-resume --rate-limit 0.5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCollect(cmd, c)
		},
	}

	flags := cmd.Flags()
	flags.StringSlice("models", nil, "models to collect (default all)")
	flags.StringSlice("years", nil, "years or ranges to collect, e.g. 2020-2022,2024 (default all)")
	flags.StringArray("source", nil, "source to collect: toyota-pdf, fueleconomy, owners-manual (repeatable, default all)")
	flags.Bool("no-resume", false, "ignore and reset the existing checkpoint")
	flags.Float64("rate-limit", 0, "requests per second for every source (overrides per-source rates)")
	flags.Bool("smoke-test", false, "collect Camry, RAV4 and Tacoma for 2023 and 2024 only")
	flags.String("status-addr", "", "serve /healthz, /metrics and /status on this address while running")
	flags.Bool("use-cache", false, "parse maintenance guides already in the archive instead of downloading them")

	_ = c.v.BindPFlag("matrix.models", flags.Lookup("models"))
	_ = c.v.BindPFlag("matrix.years", flags.Lookup("years"))
	_ = c.v.BindPFlag("matrix.sources", flags.Lookup("source"))
	_ = c.v.BindPFlag("rate_limit", flags.Lookup("rate-limit"))
	_ = c.v.BindPFlag("matrix.smoke_test", flags.Lookup("smoke-test"))
	_ = c.v.BindPFlag("status.addr", flags.Lookup("status-addr"))
	_ = c.v.BindPFlag("sources.toyota_pdf.use_cache", flags.Lookup("use-cache"))
	return cmd
}

func runCollect(cmd *cobra.Command, c *cli) error {
	cfg, err := config.Load(c.v)
	if err != nil {
		return err
	}
	if noResume, _ := cmd.Flags().GetBool("no-resume"); noResume {
		cfg.Resume = false
	}
	logger := c.log()
	cat := catalog.Default()

	spec, err := cfg.MatrixSpec(cat)
	if err != nil {
		return err
	}
	matrix, err := checkpoint.NewMatrix(spec, cat)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	lock, err := checkpoint.AcquireLock(cfg.Checkpoint.Path)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil {
			logger.Warn("release checkpoint lock failed", zap.Error(rerr))
		}
	}()

	clock := system.New()
	store, err := checkpoint.Load(cfg.Checkpoint.Path, clock, logger)
	if err != nil {
		return err
	}
	if !cfg.Resume {
		logger.Info("resume disabled; resetting checkpoint", zap.Int("discarded", store.Len()))
		if err := store.Reset(); err != nil {
			return err
		}
	}
	newID, err := uuid.New().NewID()
	if err != nil {
		return err
	}
	runID := store.Begin(newID)

	sink, err := output.NewJSONLSink(cfg.Output.Dir, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	blobs, closeBlobs, err := openArchive(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBlobs()

	handlers, err := buildHandlers(cfg, cat, clock, blobs, logger)
	if err != nil {
		return err
	}
	run, err := runner.New(handlers, store, sink, runner.Options{Clock: clock, Logger: logger, RunID: runID})
	if err != nil {
		return err
	}

	if cfg.Status.Addr != "" {
		srv := api.NewServer(run, func() map[collector.Source]checkpoint.SourceProgress {
			return matrix.Progress(store)
		}, logger)
		srvCtx, stopSrv := context.WithCancel(context.WithoutCancel(ctx))
		defer stopSrv()
		go func() {
			if serr := srv.Serve(srvCtx, cfg.Status.Addr); serr != nil {
				logger.Error("status server stopped", zap.Error(serr))
			}
		}()
	}

	summary, err := run.Run(ctx, matrix)
	if err != nil {
		return err
	}

	csvFiles, err := sink.ExportCSV()
	if err != nil {
		logger.Error("csv export failed", zap.Error(err))
	}
	report := runReport{
		Summary:      summary,
		Written:      sink.Written(),
		CSVFiles:     csvFiles,
		Checkpoint:   cfg.Checkpoint.Path,
		OutputDir:    cfg.Output.Dir,
		RateOverride: cfg.RateLimit,
	}
	if path, werr := sink.WriteSummary(report); werr != nil {
		logger.Error("write summary failed", zap.Error(werr))
	} else {
		logger.Info("summary written", zap.String("path", path))
	}

	renderSummary(cmd.OutOrStdout(), summary, shouldColorize(cmd.OutOrStdout()))
	return nil
}

// runReport is the document stored in the output directory after a run.
type runReport struct {
	runner.Summary
	Written      map[string]int `json:"lines_written"`
	CSVFiles     []string       `json:"csv_files"`
	Checkpoint   string         `json:"checkpoint"`
	OutputDir    string         `json:"output_dir"`
	RateOverride float64        `json:"rate_limit_override,omitempty"`
}

func buildHandlers(
	cfg config.Config,
	cat *catalog.Catalog,
	clock *system.Clock,
	blobs collector.BlobStore,
	logger *zap.Logger,
) (sources.Registry, error) {
	var hostLimiter *ratelimit.Limiter
	if cfg.Fetch.HostRPS > 0 {
		hostLimiter = ratelimit.New(ratelimit.Config{DefaultRPS: cfg.Fetch.HostRPS, DefaultBurst: 1})
	}
	transport := collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.Fetch.UserAgent,
		Timeout:      cfg.Fetch.Timeout,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		HostLimiter:  hostLimiter,
	})
	fetcher, err := ratelimited.New(transport, clock, ratelimited.Options{
		MaxAttempts: cfg.Fetch.MaxAttempts,
		BaseDelay:   cfg.Fetch.BackoffInitial,
		MaxDelay:    cfg.Fetch.BackoffMax,
		Jitter:      cfg.Fetch.Jitter,
	}, logger)
	if err != nil {
		return nil, err
	}

	urls := cfg.URLs()
	archive := &sources.Archive{Store: blobs, Hasher: sha256.New(), Logger: logger}
	var cache collector.BlobReader
	if cfg.Sources.ToyotaPDF.UseCache {
		reader, ok := blobs.(collector.BlobReader)
		if !ok {
			return nil, &collector.ConfigError{Field: "sources.toyota_pdf.use_cache", Reason: "archive cannot be read back"}
		}
		cache = reader
	}
	return sources.NewRegistry(
		&sources.ToyotaPDF{
			Fetcher:   fetcher,
			Catalog:   cat,
			URLs:      urls,
			Rate:      cfg.SourceRate(collector.SourceToyotaPDF),
			Extractor: pdftext.New(cfg.PDF.Pdftotext, cfg.PDF.Timeout, logger),
			Parser:    toyota.New(clock),
			Archive:   archive,
			Cache:     cache,
			Clock:     clock,
			Logger:    logger,
		},
		&sources.FuelEconomy{
			Fetcher: fetcher,
			Catalog: cat,
			URLs:    urls,
			Rate:    cfg.SourceRate(collector.SourceFuelEconomy),
			Clock:   clock,
			Logger:  logger,
		},
		&sources.OwnersManual{Catalog: cat, URLs: urls, Clock: clock},
	), nil
}

// openArchive returns the configured raw-document store. A nil store with a
// no-op closer means archiving is disabled.
func openArchive(ctx context.Context, cfg config.Config, logger *zap.Logger) (collector.BlobStore, func(), error) {
	noop := func() {}
	switch cfg.Archive.Provider {
	case config.ArchiveNone:
		return nil, noop, nil
	case config.ArchiveGCS:
		openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		store, err := gcs.Open(openCtx, gcs.Config{Bucket: cfg.Archive.GCSBucket, Prefix: cfg.Archive.Prefix}, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("open gcs archive: %w", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("close gcs archive failed", zap.Error(err))
			}
		}, nil
	default:
		store, err := local.New(local.Config{BaseDir: cfg.Archive.Dir})
		if err != nil {
			return nil, noop, fmt.Errorf("open local archive: %w", err)
		}
		return store, noop, nil
	}
}
