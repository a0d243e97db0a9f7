// Package checkpoint implements the workflow checkpointer (C11): durable,
// per-thread state persistence for long-running human-in-the-loop
// workflows, principally CIM authoring. Grounded on other_examples'
// hector pkg/checkpoint/state.go State/Phase/Type shape, adapted from
// single-agent session recovery to the CIM workflow's phase/section/
// slide/persona state and persisted through ent (WorkflowCheckpoint,
// WorkflowCheckpointWrite, WorkflowCheckpointBlob) rather than hector's
// session-service-embedded JSON blob.
package checkpoint

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hoferino/dealintel/ent"
	"github.com/hoferino/dealintel/ent/workflowcheckpoint"
	"github.com/hoferino/dealintel/ent/workflowcheckpointblob"
	"github.com/hoferino/dealintel/ent/workflowcheckpointwrite"
	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

// Phase mirrors WorkflowCheckpoint.phase's ent.Enum values.
type Phase string

const (
	PhasePending   Phase = "pending"
	PhaseRunning   Phase = "running"
	PhasePaused    Phase = "paused"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
)

// blobThreshold is the size above which ShouldBlob reports that a channel
// value belongs out-of-line in WorkflowCheckpointBlob. Put does not
// consult it and inlines every value into WorkflowCheckpoint.channel_values.
const blobThreshold = 2048

// State is one checkpoint: the durable snapshot of a workflow's progress
// at a given node, replayable by GetLatest to resume from where it left
// off.
type State struct {
	ThreadID           string
	CheckpointID       string
	ParentCheckpointID *string
	Phase              Phase
	Node               string
	ChannelValues      map[string]any
	Metadata           map[string]any
	CreatedAt          time.Time
}

// Write is one pending channel write recorded between two checkpoints. The
// store only appends writes; GetLatest and the other readers do not load
// them back.
type Write struct {
	TaskID   string
	Sequence int
	Channel  string
	Value    any
}

// Store persists and retrieves checkpoints.
type Store struct {
	client *ent.Client
}

// New builds a Store.
func New(client *ent.Client) *Store {
	return &Store{client: client}
}

// Put atomically writes a checkpoint and its pending writes. Writes on an
// already-written (thread_id, checkpoint_id) are idempotent: a unique
// constraint violation on the checkpoint row is treated as success rather
// than an error, since the same checkpoint_id means the workflow already
// durably recorded this step.
func (s *Store) Put(ctx context.Context, state State, writes []Write) error {
	tx, err := s.client.Tx(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.TransientIO, "checkpoint", err)
	}
	defer func() { _ = tx.Rollback() }()

	builder := tx.WorkflowCheckpoint.Create().
		SetID(uuid.NewString()).
		SetThreadID(state.ThreadID).
		SetCheckpointID(state.CheckpointID).
		SetPhase(workflowcheckpoint.Phase(state.Phase)).
		SetNode(state.Node).
		SetChannelValues(state.ChannelValues)
	if state.ParentCheckpointID != nil {
		builder = builder.SetParentCheckpointID(*state.ParentCheckpointID)
	}
	if state.Metadata != nil {
		builder = builder.SetMetadata(state.Metadata)
	}

	if _, err := builder.Save(ctx); err != nil {
		if ent.IsConstraintError(err) {
			return nil // already durably written by a prior attempt
		}
		return apperrors.Wrap(apperrors.TransientIO, "checkpoint", err)
	}

	for _, w := range writes {
		if _, err := tx.WorkflowCheckpointWrite.Create().
			SetID(uuid.NewString()).
			SetThreadID(state.ThreadID).
			SetCheckpointID(state.CheckpointID).
			SetTaskID(w.TaskID).
			SetSequence(w.Sequence).
			SetChannel(w.Channel).
			SetValue(map[string]interface{}{"value": w.Value}).
			Save(ctx); err != nil {
			if ent.IsConstraintError(err) {
				continue
			}
			return apperrors.Wrap(apperrors.TransientIO, "checkpoint", err)
		}
	}

	return tx.Commit()
}

// PutBlob stores a large channel value out-of-line, returning nothing —
// callers reference it by (thread_id, hash) convention inside
// ChannelValues rather than a foreign key, since WorkflowCheckpointBlob
// has no edge back to WorkflowCheckpoint.
func (s *Store) PutBlob(ctx context.Context, threadID, hash string, data []byte, encoding string) error {
	if encoding == "" {
		encoding = "json"
	}
	_, err := s.client.WorkflowCheckpointBlob.Create().
		SetID(uuid.NewString()).
		SetThreadID(threadID).
		SetHash(hash).
		SetData(data).
		SetEncoding(encoding).
		Save(ctx)
	if err != nil && !ent.IsConstraintError(err) {
		return apperrors.Wrap(apperrors.TransientIO, "checkpoint", err)
	}
	return nil
}

// ShouldBlob reports whether a serialized channel value is large enough to
// store via PutBlob instead of inlining into ChannelValues.
func ShouldBlob(serialized []byte) bool {
	return len(serialized) > blobThreshold
}

// GetLatest returns the most recently written checkpoint for threadID, or
// nil if the thread has no checkpoints yet.
func (s *Store) GetLatest(ctx context.Context, threadID string) (*State, error) {
	row, err := s.client.WorkflowCheckpoint.Query().
		Where(workflowcheckpoint.ThreadIDEQ(threadID)).
		Order(ent.Desc(workflowcheckpoint.FieldCreatedAt)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.TransientIO, "checkpoint", err)
	}
	return rowToState(row), nil
}

// List returns every checkpoint for threadID, oldest first.
func (s *Store) List(ctx context.Context, threadID string) ([]*State, error) {
	rows, err := s.client.WorkflowCheckpoint.Query().
		Where(workflowcheckpoint.ThreadIDEQ(threadID)).
		Order(ent.Asc(workflowcheckpoint.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TransientIO, "checkpoint", err)
	}
	out := make([]*State, len(rows))
	for i, row := range rows {
		out[i] = rowToState(row)
	}
	return out, nil
}

// DeleteBefore removes every checkpoint, pending write, and blob created
// before cutoff, the scheduled retention job spec.md §4.9 describes ("a
// scheduled job removes checkpoints older than 30 days; cleanup cascades
// through writes and blobs"). None of the three tables carry a foreign-key
// edge to cascade through, so each is deleted independently by its own
// created_at.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	writesDeleted, err := s.client.WorkflowCheckpointWrite.Delete().
		Where(workflowcheckpointwrite.CreatedAtLT(cutoff)).
		Exec(ctx)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.TransientIO, "checkpoint", err)
	}

	checkpointsDeleted, err := s.client.WorkflowCheckpoint.Delete().
		Where(workflowcheckpoint.CreatedAtLT(cutoff)).
		Exec(ctx)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.TransientIO, "checkpoint", err)
	}

	if _, err := s.client.WorkflowCheckpointBlob.Delete().
		Where(workflowcheckpointblob.CreatedAtLT(cutoff)).
		Exec(ctx); err != nil {
		return 0, apperrors.Wrap(apperrors.TransientIO, "checkpoint", err)
	}

	return writesDeleted + checkpointsDeleted, nil
}

func rowToState(row *ent.WorkflowCheckpoint) *State {
	return &State{
		ThreadID:           row.ThreadID,
		CheckpointID:       row.CheckpointID,
		ParentCheckpointID: row.ParentCheckpointID,
		Phase:              Phase(row.Phase),
		Node:               row.Node,
		ChannelValues:      row.ChannelValues,
		Metadata:           row.Metadata,
		CreatedAt:          row.CreatedAt,
	}
}
