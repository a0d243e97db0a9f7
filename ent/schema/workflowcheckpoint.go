package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// WorkflowCheckpoint is the latest durable snapshot of an agent/ingestion
// workflow's state for a given thread. thread_id encodes tenant scope as
// "{org_id}:{deal_id}:{conversation_id}" so a checkpoint can never be read
// across tenants by construction.
type WorkflowCheckpoint struct {
	ent.Schema
}

func (WorkflowCheckpoint) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("thread_id").
			Immutable(),
		field.String("checkpoint_id").
			Immutable().
			Comment("monotonic within a thread; also the key writes reference"),
		field.String("parent_checkpoint_id").
			Optional().
			Nillable().
			Immutable(),
		field.Enum("phase").
			Values("pending", "running", "paused", "completed", "failed"),
		field.String("node").
			Comment("name of the workflow node this checkpoint was taken after"),
		field.JSON("channel_values", map[string]interface{}{}).
			Comment("serialized state channels at this checkpoint"),
		field.JSON("metadata", map[string]interface{}{}).
			Optional(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (WorkflowCheckpoint) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("thread_id", "created_at"),
		index.Fields("thread_id", "checkpoint_id").
			Unique(),
	}
}
