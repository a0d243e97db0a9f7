package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// LLMUsage records cost and latency for every call to an LLM or embedding
// provider, for the C12 cost-dashboard aggregations.
type LLMUsage struct {
	ent.Schema
}

func (LLMUsage) Fields() []ent.Field {
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
		field.String("provider"),
		field.String("model"),
		field.String("feature").
			Comment("e.g. embedding, rerank, chat, analyze_document"),
		field.Int("input_tokens").
			Default(0),
		field.Int("output_tokens").
			Default(0),
		field.Float("cost_usd").
			Default(0),
		field.Int("latency_ms").
			Default(0),
		field.Enum("status").
			Values("ok", "error", "timeout", "fallback").
			Default("ok"),
		field.String("error_message").
			Optional().
			Nillable(),
		field.JSON("metadata", map[string]interface{}{}).
			Optional(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (LLMUsage) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("org_id", "created_at"),
		index.Fields("deal_id"),
		index.Fields("feature"),
		index.Fields("model"),
	}
}
