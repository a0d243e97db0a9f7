package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestRecordLLMCall_IncrementsCountersAndObservesLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordLLMCall("openai", "gpt-4o", "chat", "ok", 0.02, 1.5)

	var metrics []*dto.MetricFamily
	metrics, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, metrics)
}

func TestMetrics_NilReceiverMethodsDoNotPanic(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.RecordLLMCall("openai", "gpt-4o", "chat", "ok", 0.02, 1.5)
		m.RecordFeatureUsage("chat")
		m.RecordBreakerTrip("agent-llm")
		m.RecordChatTurn("medium", "ok")
		m.RecordIngestionStage("parse", "ok")
	})
}
