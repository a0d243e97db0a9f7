package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Episode is an ingested unit of text or structured JSON fed into the
// knowledge graph (C7): a document chunk, a Q&A answer, an analyst chat
// utterance, or a meeting note. Entities and FactEdges are extracted from
// an Episode's body and carry it as their provenance.
type Episode struct {
	ent.Schema
}

func (Episode) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("group_id").
			Immutable().
			Comment(`Tenant+graph namespace, formatted "{org_id}:{deal_id}"`),
		field.String("content_hash").
			Immutable().
			Comment("sha256 of (group_id, body, reference_time), used for idempotent add_episode"),
		field.Text("body").
			Immutable(),
		field.Enum("source_channel").
			Values("document", "qa_response", "analyst_chat", "meeting_note").
			Immutable(),
		field.String("source_description").
			Optional().
			Immutable(),
		field.String("document_id").
			Optional().
			Nillable().
			Immutable().
			Comment("set when source_channel=document, used to cascade-delete graph nodes when the document is deleted"),
		field.Time("reference_time").
			Immutable().
			Comment("when the fact in this episode was true/observed, distinct from created_at"),
		field.JSON("embedding", []float32{}).
			Optional().
			Comment("body embedding; similarity computed application-side, no pgvector"),
		field.Float("confidence").
			Default(1.0),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (Episode) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("group_id", "created_at"),
		index.Fields("group_id", "content_hash").
			Unique(),
		index.Fields("document_id"),
	}
}
