package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP attempt outcomes against Reddit, shared by every handler call
	// that goes through the Reddit client facade.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reddit_http_requests_total",
			Help: "Total number of HTTP requests made to Reddit",
		},
		[]string{"status"}, // status: success, retry, error
	)

	HTTPRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reddit_http_retries_total",
			Help: "Total number of HTTP request retries against Reddit",
		},
	)

	RetryAfterWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reddit_retry_after_wait_seconds",
			Help:    "Duration of Retry-After waits in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// Circuit breaker, shared by any named breaker in the process.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"component"},
	)

	CircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_trips_total",
			Help: "Total number of circuit breaker trips",
		},
		[]string{"component"},
	)

	// Dispatch loop: one increment per handler invocation.
	PacketsDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_packets_dispatched_total",
			Help: "Total number of packets dispatched, by verb and handler outcome",
		},
		[]string{"verb", "outcome"}, // outcome: ok, handler_error, handler_panic
	)

	PacketsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_packets_rejected_total",
			Help: "Total number of packets rejected before dispatch, by reason",
		},
		[]string{"reason"}, // reason: invalid, stale, unknown_verb
	)

	StyleResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_style_resolutions_total",
			Help: "Total number of response-style resolutions, by match kind",
		},
		[]string{"match"}, // match: exact, class, default, fallback, sentinel
	)

	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_token_refreshes_total",
			Help: "Total number of auth token refresh attempts, by outcome",
		},
		[]string{"outcome"}, // outcome: success, failure
	)

	RateLimitWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broker_rate_limit_waits_total",
			Help: "Total number of times the rate pacer made a caller wait",
		},
	)

	LedgerEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broker_ledger_entries",
			Help: "Current number of response-queue entries tracked by the version ledger",
		},
	)

	LedgerEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broker_ledger_evictions_total",
			Help: "Total number of response-queue ledger entries evicted by the sweep",
		},
	)
)
