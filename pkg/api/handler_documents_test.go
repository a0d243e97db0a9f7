package api

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hoferino/dealintel/ent"
	"github.com/hoferino/dealintel/ent/document"
	"github.com/hoferino/dealintel/pkg/ingestion"
)

func TestRetryQueueFor_ResumesAfterLastCompletedStage(t *testing.T) {
	parsed := document.LastCompletedStageParsed
	ingested := document.LastCompletedStageGraphitiIngested

	cases := []struct {
		name string
		doc  *ent.Document
		want string
	}{
		{"never started", &ent.Document{}, ingestion.QueueParseDocument},
		{"parsed resumes at graphiti ingest", &ent.Document{LastCompletedStage: &parsed}, ingestion.QueueGraphitiIngest},
		{"graphiti ingested resumes at analyze", &ent.Document{LastCompletedStage: &ingested}, ingestion.QueueAnalyzeDocument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, retryQueueFor(tc.doc))
		})
	}
}

func TestToDocumentResponse_CopiesFields(t *testing.T) {
	doc := &ent.Document{
		ID:                "doc-1",
		DealID:            "deal-1",
		Name:              "cap-table.xlsx",
		UploadStatus:      document.UploadStatusCompleted,
		ProcessingStatus:  document.ProcessingStatusParsing,
		ReliabilityStatus: document.ReliabilityStatusTrusted,
		ErrorCount:        2,
	}

	resp := toDocumentResponse(doc)
	require.Equal(t, "doc-1", resp.ID)
	require.Equal(t, "deal-1", resp.DealID)
	require.Equal(t, "cap-table.xlsx", resp.Name)
	require.Equal(t, "completed", resp.UploadStatus)
	require.Equal(t, "parsing", resp.ProcessingStatus)
	require.Equal(t, "trusted", resp.ReliabilityStatus)
	require.Equal(t, 2, resp.ErrorCount)
}
