package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// IRLItem is a single checklist line on an IRL.
type IRLItem struct {
	ent.Schema
}

func (IRLItem) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("irl_id"),
		field.String("category").
			Optional(),
		field.Text("description"),
		field.Enum("priority").
			Values("high", "medium", "low").
			Default("medium"),
		field.Enum("status").
			Values("requested", "received", "waived").
			Default("requested"),
		field.Bool("fulfilled").
			Default(false),
	}
}

func (IRLItem) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("irl", IRL.Type).
			Ref("items").
			Unique().
			Required().
			Field("irl_id").
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (IRLItem) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("irl_id"),
	}
}
