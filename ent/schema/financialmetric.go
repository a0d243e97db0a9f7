package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// FinancialMetric is a structured numeric fact extracted from a financial
// document (e.g. a spreadsheet cell), with full source provenance.
type FinancialMetric struct {
	ent.Schema
}

func (FinancialMetric) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("document_id"),
		field.String("finding_id").
			Optional().
			Nillable(),
		field.String("metric_name"),
		field.String("metric_category").
			Optional(),
		field.Float("value"),
		field.String("unit").
			Optional(),
		field.String("period_type").
			Optional().
			Comment("e.g. annual, quarterly, ttm"),
		field.Int("fiscal_year").
			Optional().
			Nillable(),
		field.Int("fiscal_quarter").
			Optional().
			Nillable(),
		field.String("source_cell").
			Optional().
			Nillable(),
		field.String("source_sheet").
			Optional().
			Nillable(),
		field.Int("source_page").
			Optional().
			Nillable(),
		field.String("source_formula").
			Optional().
			Nillable(),
		field.Bool("is_actual").
			Default(true),
		field.Float("confidence"),
	}
}

func (FinancialMetric) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("document", Document.Type).
			Ref("financial_metrics").
			Unique().
			Required().
			Field("document_id").
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (FinancialMetric) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("document_id"),
		index.Fields("document_id", "metric_name"),
	}
}
