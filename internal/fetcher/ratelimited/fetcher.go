// Package ratelimited implements the source-aware fetcher: a hard per-source
// request spacing with jitter, and retries with exponential backoff for
// rate-limit responses, server errors and network failures.
package ratelimited

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/metrics"
)

// ErrPermanent marks transport errors that must not be retried, such as an
// invalid URL or an oversized body.
var ErrPermanent = errors.New("permanent transport error")

// Request is one outbound GET.
type Request struct {
	URL     string
	Headers http.Header
}

// Response is the transport's view of a completed exchange.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Doer performs a single request without retries.
type Doer interface {
	Do(ctx context.Context, req Request) (Response, error)
}

// Clock supplies time and context-aware sleeping.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// Options tunes spacing and retry behavior.
type Options struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Jitter is the maximum extra spacing as a fraction of the interval.
	Jitter float64
	// DefaultRate applies when a target carries no rate, in requests/second.
	DefaultRate float64
	// Rand returns values in [0, 1). Defaults to crypto/rand.
	Rand func() float64
}

// DefaultOptions returns 5 attempts, 1s base, 60s cap and 30% jitter.
func DefaultOptions() Options {
	return Options{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    60 * time.Second,
		Jitter:      0.3,
		DefaultRate: 1,
	}
}

type sourceTimer struct {
	mu       sync.Mutex
	lastSent time.Time
	sent     bool
}

// Fetcher implements collector.Fetcher.
type Fetcher struct {
	doer    Doer
	clock   Clock
	opts    Options
	backoff backoffPolicy
	logger  *zap.Logger

	mu     sync.Mutex
	timers map[collector.Source]*sourceTimer
}

// New builds a Fetcher. Zero option values take their defaults.
func New(doer Doer, clock Clock, opts Options, logger *zap.Logger) (*Fetcher, error) {
	if doer == nil {
		return nil, fmt.Errorf("doer is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = def.BaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = def.MaxDelay
	}
	if opts.Jitter < 0 {
		opts.Jitter = 0
	}
	if opts.DefaultRate <= 0 {
		opts.DefaultRate = def.DefaultRate
	}
	if opts.Rand == nil {
		opts.Rand = cryptoFloat
	}
	return &Fetcher{
		doer:  doer,
		clock: clock,
		opts:  opts,
		backoff: backoffPolicy{
			baseDelay: opts.BaseDelay,
			maxDelay:  opts.MaxDelay,
			rand:      opts.Rand,
		},
		logger: logger,
		timers: make(map[collector.Source]*sourceTimer),
	}, nil
}

// Fetch issues target, waiting for the source's spacing before every attempt.
func (f *Fetcher) Fetch(ctx context.Context, target collector.Target) collector.FetchResult {
	log := f.logger.With(zap.String("source", string(target.Source)), zap.String("url", target.URL))
	var (
		retryAfter time.Duration
		lastStatus int
		lastHeader http.Header
		lastErr    error
	)
	for attempt := 0; attempt < f.opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := f.backoff.Delay(attempt-1, retryAfter)
			metrics.ObserveRetry(string(target.Source))
			log.Debug("retrying after backoff",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Int("last_status", lastStatus),
				zap.Error(lastErr),
			)
			if err := f.clock.Sleep(ctx, delay); err != nil {
				return interrupted(target, attempt, lastStatus, err)
			}
		}
		if err := f.awaitSlot(ctx, target); err != nil {
			return interrupted(target, attempt, lastStatus, err)
		}

		resp, err := f.doer.Do(ctx, Request{URL: target.URL, Headers: target.Headers})
		attempts := attempt + 1
		retryAfter = 0
		if err != nil {
			metrics.ObserveFetchAttempt(string(target.Source), 0, 0)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return interrupted(target, attempts, lastStatus, ctxErr)
			}
			if errors.Is(err, ErrPermanent) {
				return failure(target, collector.FetchFatalFailure, attempts, 0, nil, err)
			}
			lastStatus, lastHeader, lastErr = 0, nil, err
			continue
		}

		metrics.ObserveFetchAttempt(string(target.Source), resp.StatusCode, len(resp.Body))
		switch classifyStatus(resp.StatusCode) {
		case classSuccess:
			return collector.FetchResult{
				Status:     collector.FetchSuccess,
				Payload:    resp.Body,
				HTTPStatus: resp.StatusCode,
				Header:     resp.Header,
				Attempts:   attempts,
			}
		case classRetryable:
			lastStatus, lastHeader = resp.StatusCode, resp.Header
			lastErr = fmt.Errorf("http status %d", resp.StatusCode)
			retryAfter = parseRetryAfter(resp.Header, f.clock.Now())
		default:
			return failure(target, collector.FetchFatalFailure, attempts, resp.StatusCode, resp.Header,
				fmt.Errorf("http status %d", resp.StatusCode))
		}
	}

	log.Warn("retries exhausted", zap.Int("attempts", f.opts.MaxAttempts), zap.Int("last_status", lastStatus))
	return failure(target, collector.FetchFatalFailure, f.opts.MaxAttempts, lastStatus, lastHeader,
		fmt.Errorf("%w: %w", collector.ErrRetriesExhausted, lastErr))
}

// awaitSlot blocks until the source's next allowed send time and records the
// send. Callers for the same source are serialized.
func (f *Fetcher) awaitSlot(ctx context.Context, target collector.Target) error {
	timer := f.timerFor(target.Source)
	timer.mu.Lock()
	defer timer.mu.Unlock()

	if timer.sent {
		rate := target.Rate
		if rate <= 0 {
			rate = f.opts.DefaultRate
		}
		interval := time.Duration(float64(time.Second) / rate)
		jitter := time.Duration(f.opts.Rand() * f.opts.Jitter * float64(interval))
		next := timer.lastSent.Add(interval + jitter)
		if wait := next.Sub(f.clock.Now()); wait > 0 {
			metrics.ObserveRateLimitWait(string(target.Source), wait)
			if err := f.clock.Sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	timer.lastSent = f.clock.Now()
	timer.sent = true
	return nil
}

func (f *Fetcher) timerFor(source collector.Source) *sourceTimer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.timers[source]
	if !ok {
		t = &sourceTimer{}
		f.timers[source] = t
	}
	return t
}

func interrupted(target collector.Target, attempts, status int, err error) collector.FetchResult {
	return failure(target, collector.FetchRetryableFailure, attempts, status, nil, err)
}

func failure(
	target collector.Target,
	status collector.FetchStatus,
	attempts int,
	httpStatus int,
	header http.Header,
	err error,
) collector.FetchResult {
	return collector.FetchResult{
		Status:     status,
		HTTPStatus: httpStatus,
		Header:     header,
		Attempts:   attempts,
		Err: &collector.FetchError{
			URL:        target.URL,
			Status:     status,
			HTTPStatus: httpStatus,
			Attempts:   attempts,
			Err:        err,
		},
	}
}
