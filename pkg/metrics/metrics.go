// Package metrics defines the Prometheus metric collectors used across the
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	GuessesTotal         *prometheus.CounterVec
	ScoreDistribution    *prometheus.HistogramVec
	ScoringDuration      prometheus.Histogram
	GeneratorRequests    *prometheus.CounterVec
	GeneratorLatency     prometheus.Histogram
	GeneratorTokens      *prometheus.CounterVec
	CacheHitsTotal       *prometheus.CounterVec
	CacheMissesTotal     *prometheus.CounterVec
	AnalyticsDropped     prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all metrics and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all metrics and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		GuessesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guesses_total",
				Help: "Total scored guesses by mode (practice, daily, score) and feedback tier.",
			},
			[]string{"mode", "tier"},
		),
		ScoreDistribution: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "guess_score",
				Help:    "Distribution of similarity scores by mode.",
				Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
			[]string{"mode"},
		),
		ScoringDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scoring_duration_seconds",
				Help:    "Time spent computing a similarity score.",
				Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
			},
		),
		GeneratorRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "generator_requests_total",
				Help: "Chat completion requests by outcome (success, error, empty, rejected).",
			},
			[]string{"outcome"},
		),
		GeneratorLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "generator_latency_seconds",
				Help:    "Chat completion latency in seconds.",
				Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
			},
		),
		GeneratorTokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "generator_tokens_total",
				Help: "Tokens consumed by the generator by kind (prompt, completion).",
			},
			[]string{"kind"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits by cache name.",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses by cache name.",
			},
			[]string{"cache"},
		),
		AnalyticsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "analytics_events_dropped_total",
				Help: "Guess events dropped because the collector buffer was full.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.GuessesTotal,
		m.ScoreDistribution,
		m.ScoringDuration,
		m.GeneratorRequests,
		m.GeneratorLatency,
		m.GeneratorTokens,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.AnalyticsDropped,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
