package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// AuditLog is append-only: rows are never updated or deleted once written.
// Enforcement lives in the database via trigger (see
// pkg/database/migrations), not in the schema itself, since ent has no
// native way to reject UPDATE/DELETE at the column-definition level.
type AuditLog struct {
	ent.Schema
}

func (AuditLog) Fields() []ent.Field {
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
		field.String("actor_id").
			Immutable().
			Comment("user_id, or \"system\" for background jobs"),
		field.String("action").
			Immutable(),
		field.String("resource_type").
			Immutable(),
		field.String("resource_id").
			Immutable(),
		field.JSON("before", map[string]interface{}{}).
			Optional().
			Immutable(),
		field.JSON("after", map[string]interface{}{}).
			Optional().
			Immutable(),
		field.String("ip_address").
			Optional().
			Immutable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (AuditLog) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("org_id", "created_at"),
		index.Fields("resource_type", "resource_id"),
	}
}
