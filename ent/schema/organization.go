package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Organization is the root of tenancy. Every Deal and everything reachable
// from a Deal is scoped through an Organization.
type Organization struct {
	ent.Schema
}

func (Organization) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("org_id").
			Unique().
			Immutable(),
		field.String("name"),
		field.String("slug").
			Unique(),
		field.String("created_by"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (Organization) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("members", OrganizationMember.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("deals", Deal.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (Organization) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("slug"),
	}
}
