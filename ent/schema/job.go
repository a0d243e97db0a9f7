package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Job is a durable unit of background work claimed by pkg/worker via
// SELECT ... FOR UPDATE SKIP LOCKED. Terminal rows (completed/failed) are
// moved to JobArchive by pkg/jobqueue in the transaction that ends the job,
// so this table stays small and
// its indexes stay hot for claim queries.
type Job struct {
	ent.Schema
}

func (Job) Fields() []ent.Field {
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
			Immutable().
			Comment("handler name, e.g. parse_document, graphiti_ingest"),
		field.JSON("payload", map[string]interface{}{}).
			Immutable(),
		field.Enum("status").
			Values("pending", "active", "completed", "retry", "failed", "cancelled").
			Default("pending"),
		field.Int("priority").
			Default(0),
		field.String("singleton_key").
			Optional().
			Nillable().
			Comment("dedup key; a pending/active job with the same key is reused instead of re-enqueued"),
		field.Int("attempts").
			Default(0),
		field.Int("max_attempts").
			Default(5),
		field.Time("run_at").
			Default(time.Now).
			Comment("earliest claim time; used for backoff-with-jitter delay between retries"),
		field.Time("locked_at").
			Optional().
			Nillable(),
		field.String("locked_by").
			Optional().
			Nillable().
			Comment("worker instance id holding the claim"),
		field.Time("heartbeat_at").
			Optional().
			Nillable().
			Comment("updated periodically while active; stale heartbeats mark a job orphaned"),
		field.Text("last_error").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

func (Job) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("queue", "status", "run_at", "priority"),
		index.Fields("singleton_key").
			Unique().
			Annotations(entsql.IndexWhere("singleton_key IS NOT NULL AND status IN ('pending','active')")),
		index.Fields("org_id"),
		index.Fields("locked_by", "heartbeat_at"),
	}
}
