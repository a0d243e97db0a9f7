package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// QAItem is a due-diligence question tracked against a deal. updated_at is
// used for optimistic concurrency on PATCH (spec.md invariant 8).
type QAItem struct {
	ent.Schema
}

func (QAItem) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("deal_id"),
		field.Text("question"),
		field.Enum("category").
			Values("Financials", "Legal", "Operations", "Market", "Technology", "HR"),
		field.Enum("priority").
			Values("high", "medium", "low").
			Default("medium"),
		field.Text("answer").
			Optional(),
		field.String("source_finding_id").
			Optional().
			Nillable(),
		field.Time("date_added").
			Default(time.Now).
			Immutable(),
		field.Time("date_answered").
			Optional().
			Nillable().
			Comment("NULL means pending"),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

func (QAItem) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("deal", Deal.Type).
			Ref("qa_items").
			Unique().
			Required().
			Field("deal_id").
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (QAItem) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("deal_id"),
		index.Fields("deal_id", "category"),
	}
}
