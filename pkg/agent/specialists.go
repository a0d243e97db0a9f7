package agent

import (
	"context"
	"strings"

	"github.com/hoferino/dealintel/pkg/llmprovider"
)

// Specialist is one domain expert a complex turn's supervisor can dispatch
// to. Each specialist answers from its own domain system prompt; no tools
// are passed to a specialist's Generate call and no tool calls are
// executed for it. A synthesizer merges whichever specialists ran into one
// response with citations preserved.
type Specialist string

const (
	SpecialistFinancialAnalyst Specialist = "FinancialAnalyst"
	SpecialistKnowledgeGraph   Specialist = "KnowledgeGraph"
)

var specialistKeywords = map[Specialist][]string{
	SpecialistFinancialAnalyst: {"revenue", "ebitda", "margin", "multiple", "ratio", "cash flow", "valuation", "growth"},
	SpecialistKnowledgeGraph:   {"who", "relationship", "connected", "entity", "stakeholder", "ownership", "subsidiary"},
}

var specialistSystemPrompts = map[Specialist]string{
	SpecialistFinancialAnalyst: "You are a financial analysis specialist for M&A due diligence. Use financial_ratio and search_documents to ground every number in a cited source.",
	SpecialistKnowledgeGraph:   "You are a knowledge-graph specialist for M&A due diligence. Use search_knowledge_graph and graph_traversal to answer questions about entities and their relationships.",
}

// routeSpecialists picks which specialists a complex turn should dispatch
// to, based on keyword overlap with the user's message. Returns nil if no
// specialist's keywords match, signaling the generic complex agent should
// handle the turn itself.
func routeSpecialists(message string) []Specialist {
	lower := strings.ToLower(message)
	var matched []Specialist
	for _, s := range []Specialist{SpecialistFinancialAnalyst, SpecialistKnowledgeGraph} {
		for _, kw := range specialistKeywords[s] {
			if strings.Contains(lower, kw) {
				matched = append(matched, s)
				break
			}
		}
	}
	return matched
}

// specialistResult is one specialist's answer, prior to synthesis.
type specialistResult struct {
	specialist Specialist
	text       string
}

// runSpecialist runs one specialist turn: system prompt + the shared
// conversation context, generated non-streamed since its output feeds the
// synthesizer rather than the caller directly.
func (rt *Runtime) runSpecialist(ctx context.Context, s Specialist, messages []llmprovider.ConversationMessage) (specialistResult, error) {
	route := RouteFor(ComplexityComplex)
	augmented := append([]llmprovider.ConversationMessage{{Role: "system", Content: specialistSystemPrompts[s]}}, messages...)

	chunks, err := rt.provider.Generate(ctx, &llmprovider.GenerateInput{
		Model:       route.Model,
		Messages:    augmented,
		Temperature: route.Temperature,
		MaxTokens:   route.MaxTokens,
	}, "chat_specialist_"+string(s))
	if err != nil {
		return specialistResult{}, err
	}
	return specialistResult{specialist: s, text: llmprovider.CollectText(chunks)}, nil
}

// synthesize merges specialist outputs into one response. With a single
// specialist it passes the text through; with more than one it asks the
// model to combine them into a coherent answer that preserves each
// specialist's citations.
func (rt *Runtime) synthesize(ctx context.Context, results []specialistResult) (string, error) {
	if len(results) == 1 {
		return results[0].text, nil
	}

	var combined string
	for _, r := range results {
		combined += string(r.specialist) + ":\n" + r.text + "\n\n"
	}

	route := RouteFor(ComplexityComplex)
	chunks, err := rt.provider.Generate(ctx, &llmprovider.GenerateInput{
		Model: route.Model,
		Messages: []llmprovider.ConversationMessage{
			{Role: "system", Content: "Merge the following specialist answers into a single coherent response. Preserve every citation exactly as written."},
			{Role: "user", Content: combined},
		},
		Temperature: 0.1,
		MaxTokens:   route.MaxTokens,
	}, "chat_synthesize")
	if err != nil {
		// Fall back to concatenation rather than failing the whole turn
		// over a synthesis-step outage.
		return combined, nil
	}
	return llmprovider.CollectText(chunks), nil
}
