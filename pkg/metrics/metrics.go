package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Data sync metrics
	FallbackEngaged  *prometheus.CounterVec
	MutationOutcomes *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		FallbackEngaged: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fallback_engaged_total",
				Help: "Times a degraded-mode fallback substituted for the upstream",
			},
			[]string{"entity"},
		),
		MutationOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mutation_outcomes_total",
				Help: "Optimistic mutation results by operation and outcome",
			},
			[]string{"operation", "outcome"}, // committed, degraded, rolled_back
		),
		UpstreamDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upstream_request_duration_seconds",
				Help:    "Upstream marketplace API latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
		CacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of entity cache hits",
			},
			[]string{"entity"},
		),
		CacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of entity cache misses",
			},
			[]string{"entity"},
		),
	}
}

// Middleware creates an Echo middleware for Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			path := c.Path() // route pattern, not the raw path

			err := next(c)

			status := c.Response().Status
			duration := time.Since(start).Seconds()

			m.HTTPRequestsTotal.WithLabelValues(req.Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(req.Method, path, strconv.Itoa(status)).Observe(duration)

			return err
		}
	}
}

// RecordFallback increments the degraded-mode counter for an entity type
func (m *Metrics) RecordFallback(entity string) {
	m.FallbackEngaged.WithLabelValues(entity).Inc()
}

// RecordMutation records the outcome of an optimistic mutation
func (m *Metrics) RecordMutation(operation, outcome string) {
	m.MutationOutcomes.WithLabelValues(operation, outcome).Inc()
}

// RecordUpstream records an upstream request duration
func (m *Metrics) RecordUpstream(operation string, duration time.Duration) {
	m.UpstreamDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCacheHit increments the cache hit counter for an entity type
func (m *Metrics) RecordCacheHit(entity string) {
	m.CacheHits.WithLabelValues(entity).Inc()
}

// RecordCacheMiss increments the cache miss counter for an entity type
func (m *Metrics) RecordCacheMiss(entity string) {
	m.CacheMisses.WithLabelValues(entity).Inc()
}
