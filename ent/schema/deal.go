package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Deal is the unit of tenancy under an Organization. Every child entity
// (documents, findings, chunks, ...) is scoped through its deal_id and,
// transitively, the deal's organization_id.
type Deal struct {
	ent.Schema
}

func (Deal) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("organization_id").
			Comment("Denormalized from the owning Organization for row-filtering"),
		field.String("user_id").
			Comment("Creator"),
		field.String("name"),
		field.String("company_name").
			Optional(),
		field.String("industry").
			Optional(),
		field.Enum("status").
			Values("active", "archived", "completed").
			Default("active"),
		field.JSON("metadata", map[string]interface{}{}).
			Optional(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

func (Deal) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("organization", Organization.Type).
			Ref("deals").
			Unique().
			Required().
			Field("organization_id").
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("documents", Document.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("folders", Folder.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("findings", Finding.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("contradictions", Contradiction.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("qa_items", QAItem.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("irls", IRL.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("conversations", Conversation.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("cims", CIM.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (Deal) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("organization_id"),
		index.Fields("organization_id", "status"),
	}
}
