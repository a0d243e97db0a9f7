package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// IRL (Information Request List) is a per-deal checklist container.
type IRL struct {
	ent.Schema
}

func (IRL) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("deal_id"),
		field.String("name"),
	}
}

func (IRL) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("deal", Deal.Type).
			Ref("irls").
			Unique().
			Required().
			Field("deal_id").
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("items", IRLItem.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (IRL) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("deal_id"),
	}
}
