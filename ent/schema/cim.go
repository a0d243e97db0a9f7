package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// CIM tracks the step-by-step generation of a Confidential Information
// Memorandum draft for a deal, driven one step at a time by
// POST /cims/{id}/step.
type CIM struct {
	ent.Schema
}

func (CIM) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("deal_id"),
		field.Enum("status").
			Values("draft", "in_progress", "awaiting_review", "completed").
			Default("draft"),
		field.Int("current_step").
			Default(0),
		field.JSON("steps", []map[string]interface{}{}).
			Optional().
			Comment("ordered step definitions and their completion state"),
		field.JSON("sections", map[string]interface{}{}).
			Optional().
			Comment("generated section content keyed by section name"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

func (CIM) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("deal", Deal.Type).
			Ref("cims").
			Unique().
			Required().
			Field("deal_id").
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (CIM) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("deal_id"),
	}
}
