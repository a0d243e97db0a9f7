package api

import "time"

// documentResponse is the JSON shape returned by GET /documents/:id and
// after POST /documents/upload.
type documentResponse struct {
	ID                string    `json:"id"`
	DealID            string    `json:"deal_id"`
	Name              string    `json:"name"`
	UploadStatus      string    `json:"upload_status"`
	ProcessingStatus  string    `json:"processing_status"`
	ReliabilityStatus string    `json:"reliability_status"`
	ErrorCount        int       `json:"error_count"`
	CreatedAt         time.Time `json:"created_at"`
}

// chatTurnResponse holds the fields of one completed chat turn. No handler
// returns it: /chat always streams, and the SSE path emits these fields
// across multiple named events instead (see handler_chat.go).
type chatTurnResponse struct {
	Text      string `json:"text"`
	Cancelled bool   `json:"cancelled"`
}

// cimStepResponse echoes the checkpoint state /cims/:id/step just wrote.
type cimStepResponse struct {
	ThreadID     string `json:"thread_id"`
	CheckpointID string `json:"checkpoint_id"`
	Phase        string `json:"phase"`
	Node         string `json:"node"`
}
