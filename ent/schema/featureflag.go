package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
)

// FeatureFlag gates rollout of a feature, globally or for a single org.
type FeatureFlag struct {
	ent.Schema
}

func (FeatureFlag) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("key").
			Unique(),
		field.String("org_id").
			Optional().
			Nillable().
			Comment("nil means the flag applies globally"),
		field.Bool("enabled").
			Default(false),
		field.JSON("payload", map[string]interface{}{}).
			Optional(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}
