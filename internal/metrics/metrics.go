package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestsTotal tracks the number of outbound API calls to eTims.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etims_api_requests_total",
			Help: "Total number of eTims API requests made (by endpoint, method, and status).",
		},
		[]string{"endpoint", "method", "status"},
	)

	// APIRequestDuration measures the duration of outbound eTims API calls.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "etims_api_request_duration_seconds",
			Help:    "Duration of eTims API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms → ~32s
		},
		[]string{"endpoint", "method"},
	)

	// TokenRefreshes counts token endpoint calls by result ("ok" | "error").
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etims_token_refresh_total",
			Help: "Number of eTims token requests by result.",
		},
		[]string{"result"},
	)

	// OperationErrors counts failed SDK operations by operation and error kind.
	OperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etims_operation_errors_total",
			Help: "Failed eTims operations by operation and error kind.",
		},
		[]string{"operation", "kind"},
	)

	// LookupCache tracks reference-data cache hits and misses.
	LookupCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etims_lookup_cache_total",
			Help: "Reference-data cache lookups by result (hit | miss | error).",
		},
		[]string{"endpoint", "result"},
	)

	// EventsPublished counts submission events by sink, event type and result.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etims_events_published_total",
			Help: "Submission events published by sink, event type and result.",
		},
		[]string{"sink", "event_type", "result"},
	)

	// EventPublishLatency measures publish round-trips to the event bus.
	EventPublishLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "etims_event_publish_latency_seconds",
			Help:    "Time taken to publish submission events.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sink"},
	)

	// InboundRejected counts inbound HTTP requests rejected before reaching a handler.
	InboundRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etims_http_rejected_total",
			Help: "Inbound requests rejected by middleware (by reason).",
		},
		[]string{"reason"},
	)
)

// IncAPIRequest increments the eTims API request counter.
func IncAPIRequest(endpoint, method, status string) {
	APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// IncTokenRefresh increments the token refresh counter.
func IncTokenRefresh(result string) {
	TokenRefreshes.WithLabelValues(result).Inc()
}

// IncOperationError increments the failed operation counter.
func IncOperationError(operation, kind string) {
	OperationErrors.WithLabelValues(operation, kind).Inc()
}

// IncLookupCache increments the lookup cache counter.
func IncLookupCache(endpoint, result string) {
	LookupCache.WithLabelValues(endpoint, result).Inc()
}

// IncEventPublished increments the published events counter.
func IncEventPublished(sink, eventType, result string) {
	EventsPublished.WithLabelValues(sink, eventType, result).Inc()
}

// IncInboundRejected increments the rejected inbound request counter.
func IncInboundRejected(reason string) {
	InboundRejected.WithLabelValues(reason).Inc()
}

// ObserveDuration records elapsed time since start into a HistogramVec or SummaryVec.
func ObserveDuration(v any, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()
	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	}
}
