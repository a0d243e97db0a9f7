package jobqueue

import (
	"context"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/hoferino/dealintel/ent"
	"github.com/hoferino/dealintel/ent/job"
	"github.com/hoferino/dealintel/ent/jobarchive"
	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

const defaultMaxAttempts = 5

// Queue is the durable job store backing pkg/worker's pool. All methods are
// safe for concurrent use by multiple worker processes against the same
// database.
type Queue struct {
	client *ent.Client
}

// New wraps an ent client with the jobqueue API.
func New(client *ent.Client) *Queue {
	return &Queue{client: client}
}

// Enqueue inserts a new job, or returns the id of an existing pending/active
// job sharing the same SingletonKey.
func (q *Queue) Enqueue(ctx context.Context, in EnqueueInput) (string, error) {
	if in.Queue == "" {
		return "", apperrors.New(apperrors.Validation, "jobqueue", "queue name is required")
	}
	if in.SingletonKey != "" {
		existing, err := q.client.Job.Query().
			Where(
				job.SingletonKeyEQ(in.SingletonKey),
				job.StatusIn(job.StatusPending, job.StatusActive),
			).
			Only(ctx)
		if err == nil {
			return existing.ID, nil
		}
		if !ent.IsNotFound(err) {
			return "", apperrors.Wrap(apperrors.TransientIO, "jobqueue", err)
		}
	}

	maxAttempts := in.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = defaultMaxAttempts
	}
	runAt := in.RunAt
	if runAt.IsZero() {
		runAt = time.Now()
	}

	builder := q.client.Job.Create().
		SetID(uuid.NewString()).
		SetOrgID(in.OrgID).
		SetQueue(in.Queue).
		SetPayload(in.Payload).
		SetPriority(in.Priority).
		SetMaxAttempts(maxAttempts).
		SetRunAt(runAt)
	if in.DealID != "" {
		builder = builder.SetDealID(in.DealID)
	}
	if in.SingletonKey != "" {
		builder = builder.SetSingletonKey(in.SingletonKey)
	}

	created, err := builder.Save(ctx)
	if err != nil {
		return "", apperrors.Wrap(apperrors.TransientIO, "jobqueue", err)
	}
	return created.ID, nil
}

// Claim atomically claims the next runnable job across the given queues,
// using SELECT ... FOR UPDATE SKIP LOCKED so concurrent worker processes
// never double-claim the same row. Ordered by priority then run_at for
// approximate FIFO within a priority band.
func (q *Queue) Claim(ctx context.Context, queues []string, lockedBy string) (*Job, error) {
	tx, err := q.client.Tx(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TransientIO, "jobqueue", err)
	}
	defer func() { _ = tx.Rollback() }()

	row, err := tx.Job.Query().
		Where(
			job.QueueIn(queues...),
			job.StatusIn(job.StatusPending, job.StatusRetry),
			job.RunAtLTE(time.Now()),
		).
		Order(ent.Desc(job.FieldPriority), ent.Asc(job.FieldRunAt)).
		Limit(1).
		ForUpdate(entsql.WithLockAction(entsql.SkipLocked)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNoJobsAvailable
		}
		return nil, apperrors.Wrap(apperrors.TransientIO, "jobqueue", err)
	}

	now := time.Now()
	row, err = row.Update().
		SetStatus(job.StatusActive).
		SetLockedAt(now).
		SetLockedBy(lockedBy).
		SetHeartbeatAt(now).
		AddAttempts(1).
		Save(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TransientIO, "jobqueue", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Wrap(apperrors.TransientIO, "jobqueue", err)
	}

	dealID := ""
	if row.DealID != nil {
		dealID = *row.DealID
	}
	return &Job{
		ID:          row.ID,
		OrgID:       row.OrgID,
		DealID:      dealID,
		Queue:       row.Queue,
		Payload:     row.Payload,
		Attempts:    row.Attempts,
		MaxAttempts: row.MaxAttempts,
		CreatedAt:   row.CreatedAt,
	}, nil
}

// Heartbeat refreshes a claimed job's heartbeat_at, proving the worker
// holding it is still alive. Called periodically by pkg/worker while a
// handler runs.
func (q *Queue) Heartbeat(ctx context.Context, jobID string) error {
	err := q.client.Job.UpdateOneID(jobID).
		SetHeartbeatAt(time.Now()).
		Exec(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.TransientIO, "jobqueue", err)
	}
	return nil
}

// Complete transitions a job to completed and moves it to JobArchive.
func (q *Queue) Complete(ctx context.Context, jobID string) error {
	return q.finish(ctx, jobID, job.StatusCompleted, "")
}

// Fail records failErr against the job. If attempts remain, the job returns
// to "retry" with exponential backoff and jitter; otherwise it moves to
// "failed" and is archived.
func (q *Queue) Fail(ctx context.Context, jobID string, failErr error) error {
	row, err := q.client.Job.Get(ctx, jobID)
	if err != nil {
		return apperrors.Wrap(apperrors.TransientIO, "jobqueue", err)
	}

	if row.Attempts < row.MaxAttempts && apperrors.Retryable(failErr) {
		delay := backoffWithJitter(row.Attempts)
		return q.client.Job.UpdateOneID(jobID).
			SetStatus(job.StatusRetry).
			SetRunAt(time.Now().Add(delay)).
			SetLastError(failErr.Error()).
			ClearLockedBy().
			ClearLockedAt().
			ClearHeartbeatAt().
			Exec(ctx)
	}

	return q.finish(ctx, jobID, job.StatusFailed, failErr.Error())
}

func (q *Queue) finish(ctx context.Context, jobID string, status job.Status, lastError string) error {
	tx, err := q.client.Tx(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.TransientIO, "jobqueue", err)
	}
	defer func() { _ = tx.Rollback() }()

	row, err := tx.Job.Get(ctx, jobID)
	if err != nil {
		return apperrors.Wrap(apperrors.TransientIO, "jobqueue", err)
	}

	archiveBuilder := tx.JobArchive.Create().
		SetID(uuid.NewString()).
		SetOrgID(row.OrgID).
		SetQueue(row.Queue).
		SetPayload(row.Payload).
		SetStatus(jobarchive.Status(status)).
		SetAttempts(row.Attempts).
		SetCreatedAt(row.CreatedAt)
	if row.DealID != nil {
		archiveBuilder = archiveBuilder.SetDealID(*row.DealID)
	}
	if lastError != "" {
		archiveBuilder = archiveBuilder.SetLastError(lastError)
	}
	if _, err := archiveBuilder.Save(ctx); err != nil {
		return apperrors.Wrap(apperrors.TransientIO, "jobqueue", err)
	}

	if err := tx.Job.DeleteOneID(jobID).Exec(ctx); err != nil {
		return apperrors.Wrap(apperrors.TransientIO, "jobqueue", err)
	}

	return tx.Commit()
}

// RequeueOrphans resets jobs whose heartbeat has gone stale past timeout
// back to pending, recovering work left behind by a crashed worker
// process. Returns the number of jobs recovered.
func (q *Queue) RequeueOrphans(ctx context.Context, timeout time.Duration) (int, error) {
	cutoff := time.Now().Add(-timeout)
	n, err := q.client.Job.Update().
		Where(
			job.StatusEQ(job.StatusActive),
			job.HeartbeatAtLT(cutoff),
		).
		SetStatus(job.StatusPending).
		ClearLockedBy().
		ClearLockedAt().
		ClearHeartbeatAt().
		Save(ctx)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.TransientIO, "jobqueue", err)
	}
	return n, nil
}

// backoffWithJitter returns an exponential delay capped at 10 minutes, with
// up to 20% jitter to avoid a thundering herd of retries all landing on the
// same poll tick.
func backoffWithJitter(attempts int) time.Duration {
	base := time.Second * time.Duration(1<<attempts)
	if base > 10*time.Minute {
		base = 10 * time.Minute
	}
	jitter := time.Duration(float64(base) * 0.2 * jitterFraction())
	return base + jitter
}

func jitterFraction() float64 {
	// Deterministic-enough pseudo-jitter derived from the clock rather than
	// math/rand, so this package has no global RNG state to seed.
	return float64(time.Now().UnixNano()%1000) / 1000
}
