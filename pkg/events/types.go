// Package events provides real-time event delivery via WebSocket and
// PostgreSQL NOTIFY/LISTEN for cross-pod fan-out, grounded on the
// teacher's pkg/events: the ConnectionManager (manager.go) and
// NotifyListener (listener.go) are generic pub-sub plumbing and carry
// over unchanged. This file and payloads.go replace the teacher's
// session/stage/timeline event catalog with dealintel's own: document
// pipeline stage transitions and newly-created findings/contradictions,
// addressed to a deal's dashboard channel. EventPublisher can send them,
// but the ingestion pipeline does not call it, so none is sent as a
// document advances.
//
// Unlike the teacher, dealintel events are NOTIFY-only: there is no
// durable "events" table backing replay/catchup, since a reconnecting
// client re-fetches current state via GET /documents/{id} rather than
// replaying a missed event log. SPEC_FULL.md's event fan-out is explicitly
// optional dashboard enrichment, not a source of truth.
package events

// Event types broadcast over NOTIFY.
const (
	EventTypeDocumentStatus     = "document.status"
	EventTypeFindingCreated     = "finding.created"
	EventTypeContradictionFound = "contradiction.found"
)

// DealChannel returns the NOTIFY channel name for a deal's dashboard
// events. Format: "deal:{deal_id}".
func DealChannel(dealID string) string {
	return "deal:" + dealID
}

// ClientMessage is the JSON structure for client -> server WebSocket
// messages.
type ClientMessage struct {
	Action      string `json:"action"`                  // "subscribe", "unsubscribe", "catchup", "ping"
	Channel     string `json:"channel,omitempty"`       // Channel name (e.g., "deal:abc-123")
	LastEventID *int   `json:"last_event_id,omitempty"` // unused (no catchup store); reserved for callers that add one
}
