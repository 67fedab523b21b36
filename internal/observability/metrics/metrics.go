// Package metrics registers the Prometheus collectors exposed at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aph_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aph_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	dbQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aph_db_query_duration_seconds",
		Help:    "Duration of local database calls",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"op"})

	slowQueries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aph_db_slow_queries_total",
		Help: "Local database calls slower than the configured threshold",
	})

	backendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aph_backend_request_duration_seconds",
		Help:    "Duration of hosted backend calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "method", "status"})

	paymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aph_payments_total",
		Help: "Payment submissions by result",
	}, []string{"result"})

	authEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aph_auth_events_total",
		Help: "Authentication events by kind",
	}, []string{"event"})
)

// ObserveHTTPRequest records an HTTP request metric.
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObserveQuery records one local database call.
func ObserveQuery(op string, duration time.Duration, slow bool) {
	dbQueryDuration.WithLabelValues(op).Observe(duration.Seconds())
	if slow {
		slowQueries.Inc()
	}
}

// ObserveBackendRequest records one call to the hosted backend.
// service is "rest" or "auth".
func ObserveBackendRequest(service, method, status string, duration time.Duration) {
	backendRequestDuration.WithLabelValues(service, method, status).Observe(duration.Seconds())
}

// ObservePayment counts a payment submission outcome.
func ObservePayment(result string) {
	paymentsTotal.WithLabelValues(result).Inc()
}

// ObserveAuthEvent counts an authentication event by name.
func ObserveAuthEvent(event string) {
	authEvents.WithLabelValues(event).Inc()
}
