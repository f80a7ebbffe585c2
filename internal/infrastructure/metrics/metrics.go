package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Generation service metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "s4chat",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "s4chat",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Generations by terminal state
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "s4chat",
			Subsystem: "generation",
			Name:      "generations_total",
			Help:      "Total generation jobs by terminal state",
		},
		[]string{"model", "state"},
	)

	// Streamed chunks processed
	ChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "s4chat",
			Subsystem: "generation",
			Name:      "chunks_total",
			Help:      "Total stream chunks processed by kind",
		},
		[]string{"kind"},
	)

	// Generation duration
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "s4chat",
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Generation job duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"model"},
	)

	// Tool invocations
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "s4chat",
			Subsystem: "generation",
			Name:      "tool_calls_total",
			Help:      "Total tool invocations by tool name and status",
		},
		[]string{"tool", "status"},
	)

	// Provider errors
	ProviderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "s4chat",
			Subsystem: "generation",
			Name:      "provider_errors_total",
			Help:      "Total provider call failures",
		},
		[]string{"provider", "error_type"},
	)

	// Conversations
	ConversationsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "s4chat",
			Subsystem: "api",
			Name:      "conversations_created_total",
			Help:      "Total conversations created",
		},
	)

	// Generation queue depth
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "s4chat",
			Subsystem: "generation",
			Name:      "queue_depth",
			Help:      "Generation jobs waiting for a worker",
		},
	)
)

// RecordRequest records one completed HTTP request.
func RecordRequest(method, endpoint, status string, duration float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint, status).Observe(duration)
}
