// Package ingestion owns the document lifecycle (C8): a stage machine of
// parse_document -> graphiti_ingest -> analyze_document job handlers that
// advance Document.processing_status by exactly one step per run, each
// checking last_completed_stage before doing work so a retried job never
// redoes durable work. Grounded on the teacher's pkg/queue executor/
// session-lifecycle pattern, generalized from one hardcoded handler to a
// registry of named stage handlers wired through pkg/worker.
package ingestion

const (
	QueueParseDocument  = "parse_document"
	QueueGraphitiIngest = "graphiti_ingest"
	QueueAnalyzeDocument = "analyze_document"
	QueueIndexEpisode   = "index_episode"
)

// ParseDocumentPayload is the job payload enqueued on document upload.
type ParseDocumentPayload struct {
	DocumentID string `json:"document_id"`
}

// GraphitiIngestPayload is enqueued once parsing durably stores chunks.
type GraphitiIngestPayload struct {
	DocumentID string   `json:"document_id"`
	ChunkIDs   []string `json:"chunk_ids"`
}

// AnalyzeDocumentPayload is enqueued once every chunk has a backing
// Episode.
type AnalyzeDocumentPayload struct {
	DocumentID string `json:"document_id"`
}

// IndexEpisodePayload is enqueued by the agent orchestrator's autonomous
// write-back hook (C10 "Write") rather than the document pipeline, so a
// user utterance worth persisting doesn't block the chat response.
type IndexEpisodePayload struct {
	GroupID        string  `json:"group_id"`
	Body           string  `json:"body"`
	SourceChannel  string  `json:"source_channel"`
	ConfidenceHint float64 `json:"confidence_hint"`
}

// Confidence defaults by episode provenance (spec §4.5).
const (
	ConfidenceAnalystSourced     = 0.95
	ConfidenceDocumentExtracted  = 0.85
	ConfidenceContradictionBased = 0.80
)
