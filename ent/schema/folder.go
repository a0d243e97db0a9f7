package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Folder is a node in a deal's document organization tree.
type Folder struct {
	ent.Schema
}

func (Folder) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("deal_id"),
		field.String("name"),
		field.String("path"),
		field.String("parent_path").
			Optional().
			Nillable(),
		field.Int("sort_order").
			Default(0),
	}
}

func (Folder) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("deal", Deal.Type).
			Ref("folders").
			Unique().
			Required().
			Field("deal_id").
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (Folder) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("deal_id", "path").
			Unique(),
	}
}
