package events

import "context"

// NoopCatchupQuerier implements CatchupQuerier for dealintel's NOTIFY-only
// deployment: since no durable events table backs replay, every catchup
// request returns no events, so a subscriber sees only events NOTIFYed
// after it subscribed and ConnectionManager never sends catchup.overflow.
type NoopCatchupQuerier struct{}

// GetCatchupEvents always returns an empty result.
func (NoopCatchupQuerier) GetCatchupEvents(ctx context.Context, channel string, sinceID, limit int) ([]CatchupEvent, error) {
	return nil, nil
}
