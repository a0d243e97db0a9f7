package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
)

// CreateGINIndexes creates full-text search GIN indexes that ent's schema
// DSL cannot express directly. These back the keyword leg of the C9 hybrid
// search (pkg/retrieval) alongside application-side vector similarity.
func CreateGINIndexes(ctx context.Context, driver *sql.Driver) error {
	db := driver.DB()

	statements := []struct {
		name string
		sql  string
	}{
		{
			"idx_document_chunks_content_gin",
			`CREATE INDEX IF NOT EXISTS idx_document_chunks_content_gin
			ON document_chunks USING gin(to_tsvector('english', content))`,
		},
		{
			"idx_findings_text_gin",
			`CREATE INDEX IF NOT EXISTS idx_findings_text_gin
			ON findings USING gin(to_tsvector('english', text))`,
		},
		{
			"idx_qa_items_question_gin",
			`CREATE INDEX IF NOT EXISTS idx_qa_items_question_gin
			ON qa_items USING gin(to_tsvector('english', question))`,
		},
		{
			"idx_episodes_body_gin",
			`CREATE INDEX IF NOT EXISTS idx_episodes_body_gin
			ON episodes USING gin(to_tsvector('english', body))`,
		},
		{
			"idx_entities_canonical_name_gin",
			`CREATE INDEX IF NOT EXISTS idx_entities_canonical_name_gin
			ON entities USING gin(to_tsvector('english', canonical_name))`,
		},
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt.sql); err != nil {
			return fmt.Errorf("failed to create %s: %w", stmt.name, err)
		}
	}

	return nil
}
