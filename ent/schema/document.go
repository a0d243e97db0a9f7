package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Document tracks an uploaded file through the ingestion pipeline. Stage
// advancement is driven by the ingestion orchestrator (pkg/ingestion); see
// invariants 3-4 in spec.md §3.
type Document struct {
	ent.Schema
}

func (Document) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("deal_id"),
		field.String("name"),
		field.String("blob_path"),
		field.Int64("file_size"),
		field.String("mime_type"),
		field.String("folder_path").
			Optional(),
		field.String("category").
			Optional(),
		field.Enum("upload_status").
			Values("pending", "completed", "failed").
			Default("pending"),
		field.Enum("processing_status").
			Values(
				"pending", "parsing", "parsed", "graphiti_ingesting", "graphiti_ingested",
				"analyzing", "analyzed", "embedding", "embedded", "complete", "completed",
				"failed", "embedding_failed", "analysis_failed",
			).
			Default("pending"),
		field.Enum("last_completed_stage").
			Values("parsed", "graphiti_ingested", "analyzed", "complete").
			Optional().
			Nillable(),
		field.JSON("retry_history", []map[string]interface{}{}).
			Optional().
			Comment("Append-only, capped at 10 entries by application code"),
		field.JSON("processing_error", map[string]interface{}{}).
			Optional().
			Comment("{error_type, category, message, stage, timestamp, retry_count, guidance}"),
		field.Enum("reliability_status").
			Values("trusted", "contains_errors", "superseded").
			Default("trusted"),
		field.Int("error_count").
			Default(0),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

func (Document) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("deal", Deal.Type).
			Ref("documents").
			Unique().
			Required().
			Field("deal_id").
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("chunks", DocumentChunk.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("findings", Finding.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("financial_metrics", FinancialMetric.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (Document) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("deal_id"),
		index.Fields("deal_id", "processing_status"),
		index.Fields("processing_status"),
	}
}
