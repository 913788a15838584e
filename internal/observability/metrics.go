package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the centralized Prometheus metrics surface for the agent
// runtime: turn counts, tool dispatch outcomes/latency, provider call
// latency, and active session counts.
type Metrics struct {
	// TurnsPerMessage observes how many provider turns one user message
	// consumed, bucketed 1..MaxTurns.
	TurnsPerMessage prometheus.Histogram

	// ProviderRequestDuration measures one provider.Complete call.
	// Labels: provider, model, status (success|error)
	ProviderRequestDuration *prometheus.HistogramVec

	// ToolDispatchCounter counts tool dispatch outcomes.
	// Labels: tool_name, side (server|client), outcome (success|error|timeout|ghost)
	ToolDispatchCounter *prometheus.CounterVec

	// ToolDispatchDuration measures one tool dispatch, client or server side.
	// Labels: tool_name, side
	ToolDispatchDuration *prometheus.HistogramVec

	// ActiveSessions is a gauge of currently connected sessions.
	ActiveSessions prometheus.Gauge
}

// NewMetrics creates and registers every metric. Call once at startup.
func NewMetrics() *Metrics {
	return &Metrics{
		TurnsPerMessage: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "duplexagent_turns_per_message",
			Help:    "Number of provider turns consumed per user message",
			Buckets: prometheus.LinearBuckets(1, 1, MaxTurnsBucket),
		}),
		ProviderRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "duplexagent_provider_request_duration_seconds",
				Help:    "Duration of LLM provider completion calls",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model", "status"},
		),
		ToolDispatchCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "duplexagent_tool_dispatch_total",
				Help: "Total tool dispatches by name, side, and outcome",
			},
			[]string{"tool_name", "side", "outcome"},
		),
		ToolDispatchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "duplexagent_tool_dispatch_duration_seconds",
				Help:    "Duration of a tool dispatch, including client round trips",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool_name", "side"},
		),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "duplexagent_active_sessions",
			Help: "Current number of connected sessions",
		}),
	}
}

// MaxTurnsBucket sizes the TurnsPerMessage histogram; kept independent of
// agent.MaxTurns to avoid an import cycle (observability is imported by
// agent, not the reverse).
const MaxTurnsBucket = 5

// ObserveTurn records the number of provider turns one user message consumed.
func (m *Metrics) ObserveTurn(turn int) {
	if m == nil {
		return
	}
	m.TurnsPerMessage.Observe(float64(turn))
}

// RecordToolDispatch records one tool dispatch outcome and its latency.
func (m *Metrics) RecordToolDispatch(toolName, side, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ToolDispatchCounter.WithLabelValues(toolName, side, outcome).Inc()
	m.ToolDispatchDuration.WithLabelValues(toolName, side).Observe(durationSeconds)
}

// RecordProviderRequest records one provider.Complete call.
func (m *Metrics) RecordProviderRequest(provider, model, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ProviderRequestDuration.WithLabelValues(provider, model, status).Observe(durationSeconds)
}

// SessionConnected increments the active session gauge.
func (m *Metrics) SessionConnected() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

// SessionDisconnected decrements the active session gauge.
func (m *Metrics) SessionDisconnected() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}
