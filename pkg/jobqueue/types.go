// Package jobqueue implements the durable, named job queue described as C3:
// enqueue, claim-with-SKIP-LOCKED, heartbeat, and the
// pending→active→completed/retry/failed status cycle, moving a job that
// Complete or Fail ends into JobArchive in the same transaction. It
// generalizes pkg/queue's single-table alert-session claiming into
// dispatch across many named queues with per-queue handlers.
package jobqueue

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors surfaced by Claim.
var (
	// ErrNoJobsAvailable means no claimable job exists on any polled queue
	// right now; the caller should back off and retry.
	ErrNoJobsAvailable = errors.New("jobqueue: no jobs available")
)

// Job is the claimable unit of work handed to a Handler.
type Job struct {
	ID           string
	OrgID        string
	DealID       string // empty if org-scoped
	Queue        string
	Payload      map[string]any
	Attempts     int
	MaxAttempts  int
	SingletonKey string
	CreatedAt    time.Time
}

// Handler processes one claimed Job. Returning an error whose Kind
// (pkg/shared/errors) is retryable moves the job to "retry" with backoff;
// any other error moves it straight to "failed".
type Handler func(ctx context.Context, job *Job) error

// EnqueueInput describes a new job. SingletonKey, if set, deduplicates
// against any pending/active job already holding that key — Enqueue
// returns the existing job's ID instead of inserting a duplicate.
type EnqueueInput struct {
	OrgID        string
	DealID       string
	Queue        string
	Payload      map[string]any
	Priority     int
	SingletonKey string
	MaxAttempts  int
	RunAt        time.Time // zero means now
}
