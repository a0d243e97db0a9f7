package observability

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hoferino/dealintel/ent"
	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

// UsageLogger appends FeatureUsage rows for high-level, billable events —
// document upload, chat turn, search — independent of the per-call
// LLMUsage rows pkg/llmprovider and pkg/embedding already record.
type UsageLogger struct {
	client  *ent.Client
	metrics *Metrics
}

// NewUsageLogger builds a UsageLogger. metrics may be nil in tests.
func NewUsageLogger(client *ent.Client, metrics *Metrics) *UsageLogger {
	return &UsageLogger{client: client, metrics: metrics}
}

// LogFeatureUsage records one invocation of feature for (orgID, dealID,
// userID), incrementing the matching Prometheus counter alongside the
// durable row.
func (l *UsageLogger) LogFeatureUsage(ctx context.Context, orgID, dealID, userID, feature string) error {
	l.metrics.RecordFeatureUsage(feature)

	builder := l.client.FeatureUsage.Create().
		SetID(uuid.NewString()).
		SetOrgID(orgID).
		SetFeature(feature).
		SetCount(1)
	if dealID != "" {
		builder = builder.SetDealID(dealID)
	}
	if userID != "" {
		builder = builder.SetUserID(userID)
	}
	if _, err := builder.Save(ctx); err != nil {
		return apperrors.Wrap(apperrors.TransientIO, "observability", err)
	}
	return nil
}

// DateRange bounds an aggregation query, both inclusive.
type DateRange struct {
	From time.Time
	To   time.Time
}
