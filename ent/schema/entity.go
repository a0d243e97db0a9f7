package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Entity is a resolved node in the knowledge graph: a company, person,
// deal, document, financial metric, finding, or risk, named by a
// canonical name with a set of aliases folded in by resolution. The type
// spine is closed (Company/Person/Deal/Document/FinancialMetric/Finding/
// Risk) but LLM-discovered types are admitted alongside it, so EntityType
// is a plain string rather than an ent.Enum.
type Entity struct {
	ent.Schema
}

func (Entity) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("group_id").
			Immutable(),
		field.String("entity_type").
			Comment("Company, Person, Deal, Document, FinancialMetric, Finding, Risk, or an LLM-discovered type"),
		field.String("canonical_name"),
		field.JSON("aliases", []string{}).
			Optional(),
		field.String("role").
			Optional().
			Nillable().
			Comment("e.g. target/acquirer/competitor for Company, executive/advisor/board for Person"),
		field.JSON("attributes", map[string]interface{}{}).
			Optional().
			Comment("type-specific fields, e.g. FinancialMetric's metric_type/value/period/currency/basis"),
		field.JSON("embedding", []float32{}).
			Optional(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

func (Entity) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("group_id", "canonical_name"),
		index.Fields("group_id", "entity_type"),
	}
}
