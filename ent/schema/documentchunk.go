package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// DocumentChunk is a parsed, provenance-carrying slice of a document.
// Embeddings are NOT stored here — they live with the knowledge graph's
// Episode nodes (pgvector was removed; see spec.md §1).
type DocumentChunk struct {
	ent.Schema
}

func (DocumentChunk) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("document_id"),
		field.Int("chunk_index").
			Comment("Dense, starts at 0 per document"),
		field.Text("content"),
		field.Enum("chunk_type").
			Values("text", "table", "formula", "image"),
		field.Int("page_number").
			Optional().
			Nillable(),
		field.String("sheet_name").
			Optional().
			Nillable(),
		field.String("cell_reference").
			Optional().
			Nillable(),
		field.Int("token_count"),
		field.JSON("metadata", map[string]interface{}{}).
			Optional(),
		field.String("episode_id").
			Optional().
			Nillable().
			Comment("Back-reference to the kgraph Episode created from this chunk, set by graphiti_ingest"),
	}
}

func (DocumentChunk) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("document", Document.Type).
			Ref("chunks").
			Unique().
			Required().
			Field("document_id").
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (DocumentChunk) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("document_id", "chunk_index").
			Unique(),
	}
}
