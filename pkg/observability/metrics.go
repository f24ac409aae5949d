// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the bruecke adapter.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM turn latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, route, and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bruecke_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bruecke_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "path"},
	)

	// StreamingConnections tracks the number of active SSE streaming connections.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bruecke_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// TurnsTotal counts driven turns by engine binding, model, and outcome.
	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bruecke_turns_total",
			Help: "Driven turns",
		},
		[]string{"binding", "model", "status"},
	)

	// TurnEventsTotal counts turn events consumed from sessions by type.
	TurnEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bruecke_turn_events_total",
			Help: "Turn events consumed",
		},
		[]string{"type"},
	)

	// BackendRequestsTotal counts requests sent to the backing model service.
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bruecke_backend_requests_total",
			Help: "Backend requests",
		},
		[]string{"model", "status"},
	)

	// BackendDuration records full backend round duration in seconds,
	// including stream consumption.
	BackendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bruecke_backend_duration_seconds",
			Help:    "Backend round duration",
			Buckets: LLMBuckets,
		},
		[]string{"model"},
	)

	// TokensTotal counts tokens reported by the backend by direction (input/output).
	TokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bruecke_tokens_total",
			Help: "Token count",
		},
		[]string{"model", "direction"},
	)

	// ToolExecutionsTotal counts tool executions by name and outcome.
	ToolExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bruecke_tool_executions_total",
			Help: "Tool executions",
		},
		[]string{"tool_name", "status"},
	)

	// AuthRejectionsTotal counts requests rejected by the auth middleware.
	AuthRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bruecke_auth_rejections_total",
			Help: "Rejected requests",
		},
		[]string{"path"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		TurnsTotal,
		TurnEventsTotal,
		BackendRequestsTotal,
		BackendDuration,
		TokensTotal,
		ToolExecutionsTotal,
		AuthRejectionsTotal,
	)
}
