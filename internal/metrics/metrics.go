// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

var (
	// AuthOperations counts auth service calls by operation and outcome.
	AuthOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordermgmt_auth_operations_total",
		Help: "Auth operations by operation and outcome",
	}, []string{"operation", "outcome"})

	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordermgmt_http_requests_total",
		Help: "HTTP responses by method, route and status",
	}, []string{"method", "route", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ordermgmt_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	RateLimitExceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordermgmt_rate_limit_exceeded_total",
		Help: "Requests rejected by the rate limiter",
	})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordermgmt_cache_lookups_total",
		Help: "Response cache lookups by result (hit, miss)",
	}, []string{"result"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordermgmt_events_published_total",
		Help: "Auth events handed to the broker by outcome",
	}, []string{"outcome"})
)

// Auth records one auth operation outcome.
func Auth(operation, outcome string) {
	AuthOperations.WithLabelValues(operation, outcome).Inc()
}
