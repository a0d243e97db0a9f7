package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Contradiction links two Findings that conflict, with a resolution
// lifecycle independent of either finding's own status.
type Contradiction struct {
	ent.Schema
}

func (Contradiction) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("deal_id"),
		field.String("finding_a_id"),
		field.String("finding_b_id"),
		field.Float("confidence"),
		field.Enum("status").
			Values("unresolved", "resolved", "noted", "investigating").
			Default("unresolved"),
		field.Text("resolution").
			Optional(),
		field.String("resolved_by").
			Optional().
			Nillable(),
	}
}

func (Contradiction) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("deal", Deal.Type).
			Ref("contradictions").
			Unique().
			Required().
			Field("deal_id").
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (Contradiction) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("deal_id"),
		index.Fields("finding_a_id", "finding_b_id").
			Unique(),
	}
}
