package ingestion

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hoferino/dealintel/ent"
	"github.com/hoferino/dealintel/ent/document"
)

func TestStagePast(t *testing.T) {
	parsed := document.LastCompletedStageParsed
	graphiti := document.LastCompletedStageGraphitiIngested

	doc := &ent.Document{}
	require.False(t, stagePast(doc, document.LastCompletedStageParsed))

	doc.LastCompletedStage = &parsed
	require.True(t, stagePast(doc, document.LastCompletedStageParsed))
	require.False(t, stagePast(doc, document.LastCompletedStageGraphitiIngested))

	doc.LastCompletedStage = &graphiti
	require.True(t, stagePast(doc, document.LastCompletedStageParsed))
	require.True(t, stagePast(doc, document.LastCompletedStageGraphitiIngested))
	require.False(t, stagePast(doc, document.LastCompletedStageAnalyzed))
}

func TestDecodePayload_RoundTrips(t *testing.T) {
	raw := map[string]any{"document_id": "doc-1"}
	payload, err := decodePayload[ParseDocumentPayload](raw)
	require.NoError(t, err)
	require.Equal(t, "doc-1", payload.DocumentID)
}

func TestStageFailureStatus(t *testing.T) {
	require.Equal(t, document.ProcessingStatusAnalysisFailed, stageFailureStatus("analyzing"))
	require.Equal(t, document.ProcessingStatusFailed, stageFailureStatus("parsing"))
	require.Equal(t, document.ProcessingStatusFailed, stageFailureStatus("graphiti_ingesting"))
}
