package agent

import (
	"context"
	"fmt"

	"github.com/hoferino/dealintel/pkg/llmprovider"
)

// Tier is the tool-loading tier selected alongside the model route. A turn
// that tries to call a tool outside its loaded tier is escalated to the
// next tier and re-dispatched rather than failed.
type Tier int

const (
	TierSimple Tier = iota
	TierMedium
	TierComplex
)

// ToolHandler executes one tool call and returns the short textual summary
// that re-enters the LLM message stream (see hooks.go's isolateToolResult, which
// stashes the full structured result separately).
type ToolHandler func(ctx context.Context, rt *Runtime, argsJSON string) (summary string, full any, err error)

// toolTiers lists which tool names are loaded at each tier. TierSimple
// loads none — a simple/conversational turn talks to the model directly.
var toolTiers = map[Tier][]string{
	TierSimple: {},
	TierMedium: {
		"search_documents", "get_finding", "get_qa_item",
		"search_knowledge_graph", "get_document_info",
		"index_to_knowledge_base",
	},
	TierComplex: {
		"search_documents", "get_finding", "get_qa_item",
		"search_knowledge_graph", "get_document_info",
		"financial_ratio", "detect_contradiction", "graph_traversal",
		"index_to_knowledge_base",
	},
}

// tierFor maps a Complexity onto its starting Tier. Escalation can still
// move a turn up from here within the same turn.
func tierFor(c Complexity) Tier {
	switch c {
	case ComplexitySimple:
		return TierSimple
	case ComplexityComplex:
		return TierComplex
	default:
		return TierMedium
	}
}

// toolsForTier renders the loaded tool set as llmprovider.ToolDefinitions,
// the shape the provider's function-calling API expects.
func toolsForTier(tier Tier) []llmprovider.ToolDefinition {
	names := toolTiers[tier]
	defs := make([]llmprovider.ToolDefinition, 0, len(names))
	for _, n := range names {
		if def, ok := toolCatalog[n]; ok {
			defs = append(defs, def)
		}
	}
	return defs
}

// allowsTool reports whether name is loaded at tier.
func allowsTool(tier Tier, name string) bool {
	for _, n := range toolTiers[tier] {
		if n == name {
			return true
		}
	}
	return false
}

// escalate returns the next tier up from cur, or cur unchanged if already
// at the top tier — spec.md §4.8: "the turn is re-dispatched at the next
// higher tier".
func escalate(cur Tier) Tier {
	if cur >= TierComplex {
		return cur
	}
	return cur + 1
}

// toolCatalog is the full tool-definition set; toolsForTier filters it down
// to what's loaded for a given tier.
var toolCatalog = map[string]llmprovider.ToolDefinition{
	"search_documents": {
		Name:        "search_documents",
		Description: "Hybrid-search the deal's ingested documents and knowledge graph for relevant passages.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
			},
			"required": []string{"query"},
		},
	},
	"get_finding": {
		Name:        "get_finding",
		Description: "Fetch one finding by id, including its current validation status.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"finding_id": map[string]any{"type": "string"}},
			"required":   []string{"finding_id"},
		},
	},
	"get_qa_item": {
		Name:        "get_qa_item",
		Description: "Fetch one due-diligence Q&A item by id.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"qa_item_id": map[string]any{"type": "string"}},
			"required":   []string{"qa_item_id"},
		},
	},
	"search_knowledge_graph": {
		Name:        "search_knowledge_graph",
		Description: "Look up a resolved entity in the deal's knowledge graph by canonical name.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"canonical_name": map[string]any{"type": "string"}},
			"required":   []string{"canonical_name"},
		},
	},
	"get_document_info": {
		Name:        "get_document_info",
		Description: "Fetch a document's processing status, stage, and retry history.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"document_id": map[string]any{"type": "string"}},
			"required":   []string{"document_id"},
		},
	},
	"financial_ratio": {
		Name:        "financial_ratio",
		Description: "Compute a ratio or period-over-period comparison between two financial metrics.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"metric_a": map[string]any{"type": "string"},
				"metric_b": map[string]any{"type": "string"},
			},
			"required": []string{"metric_a"},
		},
	},
	"detect_contradiction": {
		Name:        "detect_contradiction",
		Description: "List unresolved contradictions between findings for the current deal.",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
	},
	"graph_traversal": {
		Name:        "graph_traversal",
		Description: "Look up one knowledge-graph entity by canonical name or alias. Returns the entity itself; related entities and facts are not returned.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"canonical_name": map[string]any{"type": "string"}},
			"required":   []string{"canonical_name"},
		},
	},
	"index_to_knowledge_base": {
		Name:        "index_to_knowledge_base",
		Description: "Persist a fact the user just asserted (correction, confirmation, or new data) into the knowledge graph.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"content":     map[string]any{"type": "string"},
				"source_type": map[string]any{"type": "string"},
			},
			"required": []string{"content"},
		},
	},
}

// toolNotLoadedError is returned when the model names a tool outside the
// currently loaded tier, the trigger for escalation.
type toolNotLoadedError struct{ name string }

func (e toolNotLoadedError) Error() string {
	return fmt.Sprintf("tool %q not loaded at current tier", e.name)
}
