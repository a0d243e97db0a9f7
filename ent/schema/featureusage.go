package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// FeatureUsage counts invocations of a billable feature, independent of the
// underlying LLM cost recorded in LLMUsage, for per-org usage caps.
type FeatureUsage struct {
	ent.Schema
}

func (FeatureUsage) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("org_id"),
		field.String("deal_id").
			Optional().
			Nillable(),
		field.String("user_id").
			Optional(),
		field.String("feature"),
		field.Int("count").
			Default(1),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (FeatureUsage) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("org_id", "feature", "created_at"),
	}
}
