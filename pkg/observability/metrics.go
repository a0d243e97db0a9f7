// Package observability implements C12: LLMUsage/FeatureUsage logging plus
// the cost-dashboard aggregation queries of spec.md §4.10, and the
// Prometheus counters/histograms kubernaut's go.mod declares
// prometheus/client_golang for. pkg/llmprovider and pkg/embedding already
// write LLMUsage rows directly at their call sites (they own the
// latency/cost numbers); this package adds FeatureUsage logging, the
// read-side aggregations, and metrics export on top of both tables.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the platform exports, registered
// once by NewMetrics. Of the Record* methods only RecordFeatureUsage has a
// caller (UsageLogger.LogFeatureUsage).
type Metrics struct {
	LLMCallsTotal   *prometheus.CounterVec
	LLMCostUSD      *prometheus.CounterVec
	LLMLatency      *prometheus.HistogramVec
	FeatureCalls    *prometheus.CounterVec
	BreakerTrips    *prometheus.CounterVec
	ChatTurns       *prometheus.CounterVec
	IngestionStage  *prometheus.CounterVec
}

// NewMetrics registers every collector against reg (use
// prometheus.DefaultRegisterer in production, a fresh prometheus.NewRegistry
// in tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LLMCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dealintel_llm_calls_total",
			Help: "LLM/embedding provider calls, by provider/model/feature/status.",
		}, []string{"provider", "model", "feature", "status"}),
		LLMCostUSD: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dealintel_llm_cost_usd_total",
			Help: "Cumulative LLM/embedding spend in USD, by provider/model/feature.",
		}, []string{"provider", "model", "feature"}),
		LLMLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dealintel_llm_latency_seconds",
			Help:    "LLM/embedding call latency, by provider/model/feature.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider", "model", "feature"}),
		FeatureCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dealintel_feature_calls_total",
			Help: "High-level feature invocations (document upload, chat turn, search), by feature.",
		}, []string{"feature"}),
		BreakerTrips: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dealintel_circuit_breaker_trips_total",
			Help: "Circuit breaker state transitions to open, by breaker name.",
		}, []string{"breaker"}),
		ChatTurns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dealintel_chat_turns_total",
			Help: "Agent orchestrator turns, by complexity and outcome.",
		}, []string{"complexity", "outcome"}),
		IngestionStage: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dealintel_ingestion_stage_total",
			Help: "Document pipeline stage completions, by stage and status.",
		}, []string{"stage", "status"}),
	}
}

// RecordLLMCall records one LLM/embedding provider call's cost and latency.
// pkg/llmprovider and pkg/embedding do not call it; they write LLMUsage
// rows only.
func (m *Metrics) RecordLLMCall(provider, model, feature, status string, costUSD float64, latencySeconds float64) {
	if m == nil {
		return
	}
	m.LLMCallsTotal.WithLabelValues(provider, model, feature, status).Inc()
	m.LLMCostUSD.WithLabelValues(provider, model, feature).Add(costUSD)
	m.LLMLatency.WithLabelValues(provider, model, feature).Observe(latencySeconds)
}

// RecordFeatureUsage increments the feature-call counter for one
// high-level event (document upload, chat turn, search).
func (m *Metrics) RecordFeatureUsage(feature string) {
	if m == nil {
		return
	}
	m.FeatureCalls.WithLabelValues(feature).Inc()
}

// RecordBreakerTrip increments the circuit-breaker-trip counter for name.
func (m *Metrics) RecordBreakerTrip(name string) {
	if m == nil {
		return
	}
	m.BreakerTrips.WithLabelValues(name).Inc()
}

// RecordChatTurn records one agent orchestrator turn's complexity and
// outcome (ok, error, cancelled).
func (m *Metrics) RecordChatTurn(complexity, outcome string) {
	if m == nil {
		return
	}
	m.ChatTurns.WithLabelValues(complexity, outcome).Inc()
}

// RecordIngestionStage records one document pipeline stage completion.
func (m *Metrics) RecordIngestionStage(stage, status string) {
	if m == nil {
		return
	}
	m.IngestionStage.WithLabelValues(stage, status).Inc()
}
