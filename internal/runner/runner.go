// Package runner drives every pending work unit through fetch, parse, emit
// and checkpoint, one unit at a time.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/checkpoint"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/metrics"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/sources"
)

// State is a unit's position in the pipeline.
type State string

// Unit states. A unit only moves forward; done and failed are terminal.
const (
	StatePending  State = "pending"
	StateFetching State = "fetching"
	StateParsing  State = "parsing"
	StateDone     State = "done"
	StateFailed   State = "failed"
)

// Unit outcomes reported to metrics.
const (
	outcomeDone     = "done"
	outcomeFallback = "fallback"
	outcomeFailed   = "failed"
)

// Options configures a Runner.
type Options struct {
	Clock  collector.Clock
	Logger *zap.Logger
	RunID  string
}

// Runner executes the job matrix.
type Runner struct {
	handlers sources.Registry
	store    *checkpoint.Store
	sink     collector.Sink
	clock    collector.Clock
	logger   *zap.Logger
	runID    string

	mu       sync.Mutex
	progress Progress
}

// New constructs a Runner.
func New(handlers sources.Registry, store *checkpoint.Store, sink collector.Sink, opts Options) (*Runner, error) {
	if store == nil {
		return nil, fmt.Errorf("checkpoint store is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	if opts.Clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Runner{
		handlers: handlers,
		store:    store,
		sink:     sink,
		clock:    opts.Clock,
		logger:   opts.Logger,
		runID:    opts.RunID,
		progress: Progress{RunID: opts.RunID, Status: StatusIdle, BySource: map[collector.Source]*SourceCounts{}},
	}, nil
}

// Run processes every pending unit of matrix in order. Cancelling ctx stops
// the run before the next unit starts; a unit already in flight completes.
// Only configuration errors are returned; unit failures are reported in the
// summary.
func (r *Runner) Run(ctx context.Context, matrix *checkpoint.Matrix) (Summary, error) {
	for _, s := range matrix.Sources() {
		if _, ok := r.handlers[s]; !ok {
			return Summary{}, &collector.ConfigError{Field: "sources", Reason: fmt.Sprintf("no handler for %q", s)}
		}
	}

	start := r.clock.Now()
	sum := newSummary(r.runID, start, r.store.Corrupted())
	for u := range matrix.Units() {
		sum.Total++
		sum.source(u.Source).Total++
		if r.store.IsComplete(u) {
			sum.Skipped++
			sum.source(u.Source).Skipped++
		}
	}
	r.begin(sum)
	metrics.SetPendingUnits(sum.Total - sum.Skipped)
	r.logger.Info("run started",
		zap.String("run_id", r.runID),
		zap.Int("total", sum.Total),
		zap.Int("already_complete", sum.Skipped),
	)

	unitCtx := context.WithoutCancel(ctx)
	for u := range matrix.Pending(r.store) {
		if ctx.Err() != nil {
			sum.Interrupted = true
			r.logger.Warn("run interrupted, stopping before next unit", zap.String("next", u.Key()))
			break
		}
		r.setCurrent(&u)
		res := r.runUnit(unitCtx, u)
		sum.record(u, res)
		r.update(sum)
		metrics.SetPendingUnits(sum.Remaining())
	}
	r.setCurrent(nil)

	sum.FinishedAt = r.clock.Now()
	sum.Duration = sum.FinishedAt.Sub(sum.StartedAt).Round(time.Millisecond).String()
	sum.Pending = sum.Remaining()
	r.finish(sum)
	r.logger.Info("run finished",
		zap.String("run_id", r.runID),
		zap.Int("done", sum.Done),
		zap.Int("fallback", sum.Fallback),
		zap.Int("failed", sum.Failed),
		zap.Int("skipped", sum.Skipped),
		zap.Int("remaining", sum.Pending),
		zap.Bool("interrupted", sum.Interrupted),
	)
	return sum, nil
}

type unitResult struct {
	state    State
	stage    State
	fallback bool
	reason   string
}

func (r *Runner) runUnit(ctx context.Context, u collector.WorkUnit) unitResult {
	log := r.logger.With(
		zap.String("source", string(u.Source)),
		zap.String("model", u.Model),
		zap.Int("year", u.Year),
	)
	h := r.handlers[u.Source]

	log.Debug("unit transition", zap.String("state", string(StateFetching)))
	doc, err := h.Fetch(ctx, u)
	if err != nil {
		return r.fail(log, u, StateFetching, err)
	}

	log.Debug("unit transition", zap.String("state", string(StateParsing)))
	out, err := h.Parse(ctx, u, doc)
	if err != nil {
		return r.fail(log, u, StateParsing, err)
	}

	// Emit before marking so a crash in between re-runs the unit instead of
	// losing its record. The sink drops the duplicate.
	if err := r.sink.Emit(ctx, out.Record); err != nil {
		return r.fail(log, u, StateParsing, fmt.Errorf("emit: %w", err))
	}
	if err := r.store.MarkComplete(u); err != nil {
		return r.fail(log, u, StateParsing, fmt.Errorf("checkpoint: %w", err))
	}

	outcome := outcomeDone
	fields := []zap.Field{zap.String("state", string(StateDone))}
	if out.Fallback {
		outcome = outcomeFallback
		fields = append(fields, zap.String("fallback_reason", string(out.Reason)))
		log.Warn("unit done with fallback record", fields...)
	} else {
		log.Info("unit done", append(fields, zap.Int("lines", len(out.Record.Lines())))...)
	}
	metrics.ObserveUnit(string(u.Source), outcome)
	return unitResult{state: StateDone, fallback: out.Fallback, reason: string(out.Reason)}
}

func (r *Runner) fail(log *zap.Logger, u collector.WorkUnit, stage State, err error) unitResult {
	metrics.ObserveUnit(string(u.Source), outcomeFailed)
	log.Error("unit failed",
		zap.String("state", string(StateFailed)),
		zap.String("stage", string(stage)),
		zap.String("class", classify(err)),
		zap.Error(err),
	)
	return unitResult{state: StateFailed, stage: stage, reason: err.Error()}
}

func classify(err error) string {
	switch {
	case errors.Is(err, collector.ErrTransientFetch):
		return "transient_fetch"
	case errors.Is(err, collector.ErrFatalFetch):
		return "fatal_fetch"
	case errors.Is(err, collector.ErrParse):
		return "parse"
	case errors.Is(err, collector.ErrConfiguration):
		return "configuration"
	default:
		return "internal"
	}
}
