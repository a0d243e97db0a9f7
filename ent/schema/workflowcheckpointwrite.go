package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// WorkflowCheckpointWrite is a pending channel write recorded between two
// checkpoints, in the shape of LangGraph's write-ahead log. pkg/checkpoint
// appends these rows; nothing in the module reads them back on resume.
type WorkflowCheckpointWrite struct {
	ent.Schema
}

func (WorkflowCheckpointWrite) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("thread_id").
			Immutable(),
		field.String("checkpoint_id").
			Immutable(),
		field.String("task_id").
			Immutable(),
		field.Int("sequence").
			Immutable(),
		field.String("channel").
			Immutable(),
		field.JSON("value", map[string]interface{}{}).
			Immutable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (WorkflowCheckpointWrite) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("thread_id", "checkpoint_id", "sequence"),
	}
}
