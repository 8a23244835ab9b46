// Package metrics exposes Prometheus collectors for the collection pipeline.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	unitsTotal                 *prometheus.CounterVec
	fetchAttemptsTotal         *prometheus.CounterVec
	fetchRetriesTotal          *prometheus.CounterVec
	fetchBytesTotal            *prometheus.CounterVec
	rateLimitWaitSeconds       *prometheus.HistogramVec
	hostLimitWaitSeconds       *prometheus.HistogramVec
	parseFailuresTotal         *prometheus.CounterVec
	pendingUnits               prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		unitsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_units_total",
				Help: "Work units processed, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_fetch_attempts_total",
				Help: "Outbound request attempts, labeled by source and status code (0 for network errors).",
			},
			[]string{"source", "code"},
		)

		fetchRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_fetch_retries_total",
				Help: "Retries scheduled after transient failures, labeled by source.",
			},
			[]string{"source"},
		)

		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_fetch_bytes_total",
				Help: "Bytes received from successful fetches, labeled by source.",
			},
			[]string{"source"},
		)

		rateLimitWaitSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "collector_rate_limit_wait_seconds",
				Help:    "Time spent waiting for the per-source request spacing.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"source"},
		)

		hostLimitWaitSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "collector_host_limit_wait_seconds",
				Help:    "Time spent waiting on the per-host politeness ceiling.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"host"},
		)

		parseFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_parse_failures_total",
				Help: "Documents that fell back to the standard schedule, labeled by reason.",
			},
			[]string{"reason"},
		)

		pendingUnits = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "collector_pending_units",
				Help: "Units remaining in the current run.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_http_requests_total",
				Help: "Status server requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "collector_http_request_duration_seconds",
				Help:    "Status server request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeHost extracts a lowercase hostname from a URL.
// It returns "unknown" if the URL is invalid.
func SanitizeHost(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveUnit counts a finished unit.
func ObserveUnit(source, outcome string) {
	Init()
	unitsTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveFetchAttempt counts one outbound request.
func ObserveFetchAttempt(source string, code int, bytesFetched int) {
	Init()
	fetchAttemptsTotal.WithLabelValues(source, strconv.Itoa(code)).Inc()
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(source).Add(float64(bytesFetched))
	}
}

// ObserveRetry counts a scheduled retry.
func ObserveRetry(source string) {
	Init()
	fetchRetriesTotal.WithLabelValues(source).Inc()
}

// ObserveRateLimitWait records the spacing wait before a send.
func ObserveRateLimitWait(source string, d time.Duration) {
	Init()
	rateLimitWaitSeconds.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveHostLimitWait records a wait imposed by the per-host ceiling.
func ObserveHostLimitWait(rawURL string, d time.Duration) {
	Init()
	hostLimitWaitSeconds.WithLabelValues(SanitizeHost(rawURL)).Observe(d.Seconds())
}

// ObserveParseFailure counts a document that could not be parsed.
func ObserveParseFailure(reason string) {
	Init()
	parseFailuresTotal.WithLabelValues(reason).Inc()
}

// SetPendingUnits reports how many units remain.
func SetPendingUnits(n int) {
	Init()
	pendingUnits.Set(float64(n))
}

// ObserveHTTPRequest records a status server request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
