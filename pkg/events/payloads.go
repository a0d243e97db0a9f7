package events

// DocumentStatusPayload is the payload for document.status events, which
// report a Document's processing_status (see ent/schema/document.go). It
// is sent by EventPublisher.PublishDocumentStatus; pkg/ingestion does not
// call that method.
type DocumentStatusPayload struct {
	Type       string `json:"type"` // always EventTypeDocumentStatus
	DealID     string `json:"deal_id"`
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`          // Document.processing_status value
	Stage      string `json:"stage,omitempty"` // the stage that just completed, if any
	Error      string `json:"error,omitempty"`
	Timestamp  string `json:"timestamp"` // RFC3339Nano
}

// FindingCreatedPayload is the payload for finding.created events, which
// report a newly persisted Finding. It is sent by
// EventPublisher.PublishFindingCreated, which no package calls.
type FindingCreatedPayload struct {
	Type       string `json:"type"` // always EventTypeFindingCreated
	DealID     string `json:"deal_id"`
	FindingID  string `json:"finding_id"`
	DocumentID string `json:"document_id"`
	Category   string `json:"category"`
	Severity   string `json:"severity"`
	Timestamp  string `json:"timestamp"`
}

// ContradictionFoundPayload is the payload for contradiction.found
// events, which report two conflicting findings. It is sent by
// EventPublisher.PublishContradictionFound, which no package calls.
type ContradictionFoundPayload struct {
	Type            string `json:"type"` // always EventTypeContradictionFound
	DealID          string `json:"deal_id"`
	ContradictionID string `json:"contradiction_id"`
	FindingAID      string `json:"finding_a_id"`
	FindingBID      string `json:"finding_b_id"`
	Timestamp       string `json:"timestamp"`
}
