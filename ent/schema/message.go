package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Message is a single turn in a Conversation.
type Message struct {
	ent.Schema
}

func (Message) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("conversation_id"),
		field.Enum("role").
			Values("user", "assistant", "system", "tool"),
		field.Text("content"),
		field.JSON("sources", []map[string]interface{}{}).
			Optional(),
		field.Int("tokens_used").
			Default(0),
		field.JSON("tool_calls", []map[string]interface{}{}).
			Optional(),
		field.Bool("cancelled").
			Default(false),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (Message) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("conversation", Conversation.Type).
			Ref("messages").
			Unique().
			Required().
			Field("conversation_id").
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (Message) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("conversation_id", "created_at"),
	}
}
