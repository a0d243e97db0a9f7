package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// JobArchive holds the terminal (completed or failed) history of a Job,
// moved there by pkg/jobqueue in the transaction that completes or finally
// fails the job.
// Kept for audit/debugging; never claimed by workers.
type JobArchive struct {
	ent.Schema
}

func (JobArchive) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("org_id").
			Immutable(),
		field.String("deal_id").
			Optional().
			Nillable().
			Immutable(),
		field.String("queue").
			Immutable(),
		field.JSON("payload", map[string]interface{}{}).
			Immutable(),
		field.Enum("status").
			Values("completed", "failed", "cancelled").
			Immutable(),
		field.Int("attempts").
			Immutable(),
		field.Text("last_error").
			Optional().
			Nillable().
			Immutable(),
		field.Time("created_at").
			Immutable().
			Comment("copied from the original Job row"),
		field.Time("archived_at").
			Default(time.Now).
			Immutable(),
	}
}

func (JobArchive) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("org_id", "archived_at"),
		index.Fields("queue"),
	}
}
