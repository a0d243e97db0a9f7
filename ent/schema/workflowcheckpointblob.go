package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// WorkflowCheckpointBlob holds large channel values above an inlining
// threshold out-of-line from WorkflowCheckpoint.channel_values, keyed by a
// content hash so identical large values are stored once per thread.
type WorkflowCheckpointBlob struct {
	ent.Schema
}

func (WorkflowCheckpointBlob) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("thread_id").
			Immutable(),
		field.String("hash").
			Immutable().
			Comment("sha256 of the serialized value"),
		field.Bytes("data").
			Immutable(),
		field.String("encoding").
			Default("json").
			Immutable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (WorkflowCheckpointBlob) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("thread_id", "hash").
			Unique(),
	}
}
