package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ValidationFeedback is an append-only analyst validate/reject action on a
// Finding.
type ValidationFeedback struct {
	ent.Schema
}

func (ValidationFeedback) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("finding_id"),
		field.Enum("action").
			Values("validate", "reject"),
		field.Text("reason").
			Optional(),
		field.String("analyst_id"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (ValidationFeedback) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("finding", Finding.Type).
			Ref("validation_feedback").
			Unique().
			Required().
			Field("finding_id").
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (ValidationFeedback) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("finding_id"),
	}
}
