package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Conversation is a chat thread scoped to a deal, driven by the agent
// orchestrator (pkg/agent).
type Conversation struct {
	ent.Schema
}

func (Conversation) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("deal_id"),
		field.String("user_id"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

func (Conversation) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("deal", Deal.Type).
			Ref("conversations").
			Unique().
			Required().
			Field("deal_id").
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("messages", Message.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (Conversation) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("deal_id"),
	}
}
