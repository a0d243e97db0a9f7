package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// OrganizationMember is the many-to-many join between a user and an
// Organization, carrying the user's role within that org.
type OrganizationMember struct {
	ent.Schema
}

func (OrganizationMember) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("org_id").
			Comment("Denormalized for row-filtering without a join"),
		field.String("user_id"),
		field.Enum("role").
			Values("superadmin", "admin", "member").
			Default("member"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (OrganizationMember) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("organization", Organization.Type).
			Ref("members").
			Unique().
			Required().
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (OrganizationMember) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("org_id", "user_id").
			Unique(),
		index.Fields("user_id"),
	}
}
