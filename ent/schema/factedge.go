package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// FactEdge is a typed, bi-temporally valid relation between two Entities.
// Every field is immutable except invalid_at: a FactEdge is never deleted
// or rewritten, only superseded by setting invalid_at on the old edge and
// creating a new edge with a later valid_at (spec invariant 5).
type FactEdge struct {
	ent.Schema
}

func (FactEdge) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("group_id").
			Immutable(),
		field.String("subject_id").
			Immutable().
			Comment("Entity.id"),
		field.String("relation").
			Immutable().
			Comment("e.g. SUPPORTS, CONTRADICTS, SUPERSEDES, EXTRACTED_FROM, or a domain relation label"),
		field.String("object_id").
			Immutable().
			Comment("Entity.id"),
		field.String("period").
			Optional().
			Nillable().
			Immutable().
			Comment("dedup signature component alongside (subject, relation, object), e.g. a fiscal quarter"),
		field.Float("confidence").
			Immutable().
			Default(1.0),
		field.String("provenance_episode_id").
			Immutable().
			Comment("Episode.id this fact was extracted from"),
		field.String("supersedes_id").
			Optional().
			Nillable().
			Immutable().
			Comment("FactEdge.id this edge superseded, if any"),
		field.Time("valid_at").
			Immutable(),
		field.Time("invalid_at").
			Optional().
			Nillable().
			Comment("set exactly once, when a superseding edge is created; never changed again"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (FactEdge) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("group_id", "subject_id"),
		index.Fields("group_id", "object_id"),
		index.Fields("group_id", "subject_id", "relation", "object_id", "period").
			StorageKey("idx_factedge_dedup_signature"),
	}
}
