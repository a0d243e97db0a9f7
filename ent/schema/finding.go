package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Finding is an analyst- or LLM-surfaced statement extracted from a
// document, with confidence, provenance, and a validation lifecycle.
type Finding struct {
	ent.Schema
}

func (Finding) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("deal_id"),
		field.String("document_id").
			Optional().
			Nillable(),
		field.String("chunk_id").
			Optional().
			Nillable(),
		field.Text("text"),
		field.String("source_document").
			Optional(),
		field.Int("page_number").
			Optional().
			Nillable(),
		field.Float("confidence").
			Comment("[0,1]"),
		field.Enum("finding_type").
			Values("metric", "fact", "risk", "opportunity", "contradiction"),
		field.Enum("domain").
			Values("financial", "operational", "market", "legal", "technical"),
		field.Enum("status").
			Values("pending", "validated", "rejected").
			Default("pending"),
		field.JSON("validation_history", []map[string]interface{}{}).
			Optional(),
		field.Bool("needs_review").
			Default(false),
		field.String("review_reason").
			Optional().
			Nillable(),
		field.Time("last_corrected_at").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (Finding) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("deal", Deal.Type).
			Ref("findings").
			Unique().
			Required().
			Field("deal_id").
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.From("document", Document.Type).
			Ref("findings").
			Unique().
			Field("document_id"),
		edge.To("corrections", FindingCorrection.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("validation_feedback", ValidationFeedback.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (Finding) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("deal_id"),
		index.Fields("deal_id", "finding_type"),
		index.Fields("deal_id", "status"),
		index.Fields("document_id"),
		index.Fields("needs_review"),
	}
}
