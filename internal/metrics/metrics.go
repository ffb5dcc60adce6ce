// Package metrics registers the Prometheus metrics exported by the gateway.
// Import this package (via blank import) from the server entry point to
// register all metrics before the /metrics handler is mounted.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueriesTotal counts completed queries labelled by the provider that
	// served (or last failed) them, the logical model, and the outcome
	// ("success", "blocked", "error").
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimodel_queries_total",
			Help: "Total number of queries processed.",
		},
		[]string{"provider", "model", "status"},
	)

	// QueryDuration observes end-to-end pipeline latency in seconds.
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "optimodel_query_duration_seconds",
			Help:    "End-to-end query duration in seconds.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	// TokensInput counts total prompt tokens sent to providers.
	TokensInput = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimodel_tokens_input_total",
			Help: "Total prompt tokens sent to providers.",
		},
		[]string{"provider", "model"},
	)

	// TokensOutput counts total generation tokens received from providers.
	TokensOutput = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimodel_tokens_output_total",
			Help: "Total generation tokens received from providers.",
		},
		[]string{"provider", "model"},
	)

	// CostUSD accumulates the computed cost of successful queries.
	CostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimodel_cost_usd_total",
			Help: "Accumulated query cost in USD, when pricing is known.",
		},
		[]string{"provider", "model"},
	)

	// ProviderErrors counts per-candidate errors by provider and error type
	// ("provider_failure", "unsupported_option", "missing_credentials",
	// "circuit_open").
	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimodel_provider_errors_total",
			Help: "Total per-candidate provider errors by type.",
		},
		[]string{"provider", "error_type"},
	)

	// GuardFailures counts guard verdicts that flagged failure, labelled by
	// guard name and whether the guard was blocking.
	GuardFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimodel_guard_failures_total",
			Help: "Total guard failures by guard name and blocking flag.",
		},
		[]string{"guard", "blocking"},
	)

	// FallbackDepth observes how many candidates were tried before a query
	// resolved (0 = first candidate served it).
	FallbackDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "optimodel_fallback_depth",
			Help:    "Number of failed candidates before the query resolved.",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 8},
		},
	)

	// CircuitBreakerState tracks per-provider breaker state as a gauge:
	// 0 = closed, 1 = open, 2 = half_open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "optimodel_circuit_breaker_state",
			Help: "Circuit breaker state per provider (0=closed 1=open 2=half_open).",
		},
		[]string{"provider"},
	)
)
