package events

import (
	"context"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func newMockPublisher(t *testing.T) (*EventPublisher, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewEventPublisher(db), mock
}

func TestPublishDocumentStatus_NotifiesDealChannel(t *testing.T) {
	pub, mock := newMockPublisher(t)

	mock.ExpectExec("SELECT pg_notify").
		WithArgs("deal:deal-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := pub.PublishDocumentStatus(context.Background(), DocumentStatusPayload{
		Type:       EventTypeDocumentStatus,
		DealID:     "deal-1",
		DocumentID: "doc-1",
		Status:     "embedded",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTruncateIfNeeded_PassesThroughSmallPayload(t *testing.T) {
	out, err := truncateIfNeeded([]byte(`{"type":"document.status","deal_id":"d1"}`))
	require.NoError(t, err)
	require.Equal(t, `{"type":"document.status","deal_id":"d1"}`, out)
}

func TestTruncateIfNeeded_TruncatesOversizedPayload(t *testing.T) {
	big := `{"type":"document.status","deal_id":"d1","error":"` + strings.Repeat("x", 8000) + `"}`
	out, err := truncateIfNeeded([]byte(big))
	require.NoError(t, err)
	require.Less(t, len(out), 200)
	require.Contains(t, out, `"truncated":true`)
	require.Contains(t, out, `"deal_id":"d1"`)
}
