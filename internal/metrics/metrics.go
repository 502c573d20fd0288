// Package metrics exposes Prometheus collectors for the crawler.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlerPagesTotal             *prometheus.CounterVec
	crawlerFetchErrorsTotal       *prometheus.CounterVec
	crawlerRateLimitHitsTotal     prometheus.Counter
	crawlerRateLimitBackoff       prometheus.Histogram
	crawlerPolitenessDelaySeconds prometheus.Histogram
	crawlerDuplicatesTotal        prometheus.Counter
	crawlerRecordsTotal           prometheus.Counter
	crawlerTerminationsTotal      *prometheus.CounterVec
	crawlerUnitsTotal             *prometheus.CounterVec
	httpRequestsTotal             *prometheus.CounterVec
	httpRequestDurationSeconds    *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_pages_total",
				Help: "Total number of pages fetched, labeled by kind (listing, stats).",
			},
			[]string{"kind"},
		)

		crawlerFetchErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_fetch_errors_total",
				Help: "Total number of failed fetches, labeled by HTTP status code (0 for transport errors).",
			},
			[]string{"code"},
		)

		crawlerRateLimitHitsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_rate_limit_hits_total",
				Help: "The total number of times the crawler was rate limited (HTTP 429).",
			},
		)

		crawlerRateLimitBackoff = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawler_rate_limit_backoff_seconds",
				Help:    "Cooldown durations applied after HTTP 429 responses.",
				Buckets: []float64{1, 2, 5, 10, 15, 30, 60, 120},
			},
		)

		crawlerPolitenessDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawler_politeness_delay_seconds",
				Help:    "Histogram of client-side pacing waits.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
		)

		crawlerDuplicatesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_duplicate_rows_total",
				Help: "Opponent rows skipped because the opponent was already collected for the manager.",
			},
		)

		crawlerRecordsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_records_total",
				Help: "Matchup records collected.",
			},
		)

		crawlerTerminationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_terminations_total",
				Help: "Paginated crawls finished, labeled by termination reason.",
			},
			[]string{"reason"},
		)

		crawlerUnitsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_units_total",
				Help: "Aggregation units processed, labeled by kind (season, manager) and status.",
			},
			[]string{"kind", "status"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests served, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage increments the fetched page counter.
func ObservePage(kind string) {
	Init()
	crawlerPagesTotal.WithLabelValues(kind).Inc()
}

// ObserveFetchError counts a failed fetch.
func ObserveFetchError(code int) {
	Init()
	crawlerFetchErrorsTotal.WithLabelValues(strconv.Itoa(code)).Inc()
}

// ObserveRateLimit records an HTTP 429 and the cooldown applied.
func ObserveRateLimit(cooldown time.Duration) {
	Init()
	crawlerRateLimitHitsTotal.Inc()
	crawlerRateLimitBackoff.Observe(cooldown.Seconds())
}

// ObservePolitenessDelay records the duration of a pacing wait.
func ObservePolitenessDelay(d time.Duration) {
	Init()
	crawlerPolitenessDelaySeconds.Observe(d.Seconds())
}

// ObserveDuplicate counts a skipped duplicate opponent row.
func ObserveDuplicate() {
	Init()
	crawlerDuplicatesTotal.Inc()
}

// ObserveRecords adds n collected records.
func ObserveRecords(n int) {
	Init()
	crawlerRecordsTotal.Add(float64(n))
}

// ObserveTermination counts a finished paginated crawl.
func ObserveTermination(reason string) {
	Init()
	crawlerTerminationsTotal.WithLabelValues(reason).Inc()
}

// ObserveUnit counts a processed aggregation unit.
func ObserveUnit(kind, status string) {
	Init()
	crawlerUnitsTotal.WithLabelValues(kind, status).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
