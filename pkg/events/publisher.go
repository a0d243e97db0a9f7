package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// EventPublisher publishes dealintel dashboard events via PostgreSQL
// NOTIFY. Unlike the teacher's EventPublisher, nothing is persisted to a
// durable events table — see the package doc for why.
type EventPublisher struct {
	db *sql.DB
}

// NewEventPublisher creates a new EventPublisher. db should be the
// *sql.DB from database.Client.DB().
func NewEventPublisher(db *sql.DB) *EventPublisher {
	return &EventPublisher{db: db}
}

// PublishDocumentStatus broadcasts a document.status event to the
// owning deal's channel.
func (p *EventPublisher) PublishDocumentStatus(ctx context.Context, payload DocumentStatusPayload) error {
	return p.publish(ctx, DealChannel(payload.DealID), payload)
}

// PublishFindingCreated broadcasts a finding.created event to the
// owning deal's channel.
func (p *EventPublisher) PublishFindingCreated(ctx context.Context, payload FindingCreatedPayload) error {
	return p.publish(ctx, DealChannel(payload.DealID), payload)
}

// PublishContradictionFound broadcasts a contradiction.found event to
// the owning deal's channel.
func (p *EventPublisher) PublishContradictionFound(ctx context.Context, payload ContradictionFoundPayload) error {
	return p.publish(ctx, DealChannel(payload.DealID), payload)
}

// publish marshals payload and sends it via pg_notify on channel,
// truncating to a routing-only envelope if it would exceed PostgreSQL's
// 8000-byte NOTIFY payload limit.
func (p *EventPublisher) publish(ctx context.Context, channel string, payload any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	notifyPayload, err := truncateIfNeeded(payloadJSON)
	if err != nil {
		return err
	}

	if _, err := p.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", channel, notifyPayload); err != nil {
		return fmt.Errorf("pg_notify: %w", err)
	}
	return nil
}

// truncateIfNeeded returns payloadJSON as-is if it fits within
// PostgreSQL's NOTIFY limit, otherwise a minimal envelope carrying only
// the type/deal_id routing fields a client needs to know to refetch.
func truncateIfNeeded(payloadJSON []byte) (string, error) {
	if len(payloadJSON) <= 7900 {
		return string(payloadJSON), nil
	}

	var routing struct {
		Type   string `json:"type"`
		DealID string `json:"deal_id"`
	}
	if err := json.Unmarshal(payloadJSON, &routing); err != nil {
		return "", fmt.Errorf("extract routing fields for truncation: %w", err)
	}

	truncated, err := json.Marshal(map[string]any{
		"type":      routing.Type,
		"deal_id":   routing.DealID,
		"truncated": true,
	})
	if err != nil {
		return "", fmt.Errorf("marshal truncated payload: %w", err)
	}
	return string(truncated), nil
}
