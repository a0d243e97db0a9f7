package observability

import (
	"context"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/hoferino/dealintel/ent"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	drv := entsql.OpenDB(dialect.Postgres, db)
	client := ent.NewClient(ent.Driver(drv))
	t.Cleanup(func() { _ = client.Close() })

	return NewRepository(client), mock
}

func TestDailyCosts_ScansAggregatedRows(t *testing.T) {
	repo, mock := newMockRepository(t)
	rng := DateRange{From: time.Now().Add(-24 * time.Hour), To: time.Now()}

	rows := sqlmock.NewRows([]string{"day", "sum", "count"}).
		AddRow("2026-07-31", 1.25, 3).
		AddRow("2026-08-01", 0.50, 1)
	mock.ExpectQuery("SELECT to_char").
		WithArgs("org-1", rng.From, rng.To).
		WillReturnRows(rows)

	out, err := repo.DailyCosts(context.Background(), "org-1", rng)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "2026-07-31", out[0].Day)
	require.Equal(t, 1.25, out[0].CostUSD)
	require.Equal(t, 3, out[0].CallCount)
}

func TestOverallSummaryFor_ScansSingleRow(t *testing.T) {
	repo, mock := newMockRepository(t)
	rng := DateRange{From: time.Now().Add(-24 * time.Hour), To: time.Now()}

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("org-1", rng.From, rng.To).
		WillReturnRows(sqlmock.NewRows([]string{"cost", "calls", "tokens", "errors"}).
			AddRow(12.5, 40, 20000, 2))

	out, err := repo.OverallSummaryFor(context.Background(), "org-1", rng)
	require.NoError(t, err)
	require.Equal(t, 12.5, out.TotalCostUSD)
	require.Equal(t, 40, out.TotalCalls)
	require.Equal(t, 20000, out.TotalTokens)
	require.Equal(t, 2, out.ErrorCount)
}

func TestRecentErrors_DefaultsLimitWhenNonPositive(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT id, provider").
		WithArgs("org-1", 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "provider", "model", "feature", "status", "error_message", "created_at"}))

	_, err := repo.RecentErrors(context.Background(), "org-1", 0)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
