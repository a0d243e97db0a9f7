package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// FindingCorrection is an append-only analyst correction to a Finding.
// UPDATE/DELETE are rejected at the database level; see migrations for the
// enforcing trigger.
type FindingCorrection struct {
	ent.Schema
}

func (FindingCorrection) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("finding_id"),
		field.Text("original_value"),
		field.Text("corrected_value"),
		field.Enum("correction_type").
			Values("value", "source", "confidence", "text"),
		field.Text("reason").
			Optional(),
		field.String("user_source_reference").
			Optional().
			Nillable(),
		field.Enum("validation_status").
			Values("pending", "confirmed_with_source", "override_without_source", "source_error").
			Default("pending"),
		field.String("analyst_id"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (FindingCorrection) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("finding", Finding.Type).
			Ref("corrections").
			Unique().
			Required().
			Field("finding_id").
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (FindingCorrection) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("finding_id"),
		index.Fields("validation_status"),
	}
}
