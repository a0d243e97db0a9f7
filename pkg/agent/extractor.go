package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hoferino/dealintel/ent"
	"github.com/hoferino/dealintel/pkg/ingestion"
	"github.com/hoferino/dealintel/pkg/kgraph"
	"github.com/hoferino/dealintel/pkg/llmprovider"
	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

// LLMExtractor is the concrete implementation pkg/kgraph.New and
// pkg/ingestion.New are built to accept: it turns episode bodies into
// entity/fact candidates (kgraph.Extractor) and document chunks into
// finding candidates (ingestion.Extractor), both by prompting the chat
// model configured for the complex tier and parsing its JSON response.
type LLMExtractor struct {
	provider *llmprovider.Provider
}

// NewLLMExtractor builds an LLMExtractor over provider.
func NewLLMExtractor(provider *llmprovider.Provider) *LLMExtractor {
	return &LLMExtractor{provider: provider}
}

var _ kgraph.Extractor = (*LLMExtractor)(nil)
var _ ingestion.Extractor = (*LLMExtractor)(nil)

type entityExtractionWire struct {
	Entities []kgraph.EntityCandidate `json:"entities"`
	Facts    []struct {
		SubjectIndex int     `json:"subject_index"`
		Relation     string  `json:"relation"`
		ObjectIndex  int     `json:"object_index"`
		Period       string  `json:"period"`
		Confidence   float64 `json:"confidence"`
	} `json:"facts"`
}

// Extract implements kgraph.Extractor: it asks the model to name every
// company/person/financial-metric/risk mentioned in body and any
// relations between them, referencing subjects/objects by index into the
// returned entity list (kgraph.FactCandidate's contract).
func (e *LLMExtractor) Extract(ctx context.Context, body string) ([]kgraph.EntityCandidate, []kgraph.FactCandidate, error) {
	route := RouteFor(ComplexityComplex)
	chunks, err := e.provider.Generate(ctx, &llmprovider.GenerateInput{
		Model: route.Model,
		Messages: []llmprovider.ConversationMessage{
			{Role: "system", Content: entityExtractionSystemPrompt},
			{Role: "user", Content: body},
		},
		Temperature: 0,
		MaxTokens:   route.MaxTokens,
	}, "graphiti_extract")
	if err != nil {
		return nil, nil, err
	}

	var wire entityExtractionWire
	text := llmprovider.CollectText(chunks)
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ParseError, "agent.extractor", err)
	}

	facts := make([]kgraph.FactCandidate, len(wire.Facts))
	for i, f := range wire.Facts {
		facts[i] = kgraph.FactCandidate{
			SubjectIndex: f.SubjectIndex,
			Relation:     f.Relation,
			ObjectIndex:  f.ObjectIndex,
			Period:       f.Period,
			Confidence:   f.Confidence,
		}
	}
	return wire.Entities, facts, nil
}

const entityExtractionSystemPrompt = `You extract structured facts from M&A due-diligence text. Respond with JSON only:
{"entities": [{"EntityType": "...", "CanonicalName": "...", "Aliases": [...], "Role": "...", "Attributes": {...}}],
 "facts": [{"subject_index": 0, "relation": "...", "object_index": 1, "period": "...", "confidence": 0.0}]}
Indices refer to positions in the entities array. Omit facts you are not confident about.`

type findingExtractionWire struct {
	Findings []struct {
		ChunkID     string  `json:"chunk_id"`
		Text        string  `json:"text"`
		PageNumber  *int    `json:"page_number"`
		Confidence  float64 `json:"confidence"`
		FindingType string  `json:"finding_type"`
		Domain      string  `json:"domain"`
	} `json:"findings"`
}

// ExtractFindings implements pkg/ingestion.Extractor: it asks the model to
// surface metric/fact/risk/opportunity/contradiction findings across the
// deal's chunks, one prompt per chunk so each finding keeps its exact
// chunk-level provenance.
func (e *LLMExtractor) ExtractFindings(ctx context.Context, dealID, documentID string, chunks []*ent.DocumentChunk) ([]ingestion.FindingCandidate, error) {
	var out []ingestion.FindingCandidate
	route := RouteFor(ComplexityComplex)

	for _, chunk := range chunks {
		result, err := e.provider.Generate(ctx, &llmprovider.GenerateInput{
			Model: route.Model,
			Messages: []llmprovider.ConversationMessage{
				{Role: "system", Content: findingExtractionSystemPrompt},
				{Role: "user", Content: fmt.Sprintf("chunk_id: %s\n\n%s", chunk.ID, chunk.Content)},
			},
			Temperature: 0,
			MaxTokens:   route.MaxTokens,
		}, "analyze_document")
		if err != nil {
			return nil, err
		}

		var wire findingExtractionWire
		text := llmprovider.CollectText(result)
		if err := json.Unmarshal([]byte(text), &wire); err != nil {
			// One malformed chunk response shouldn't fail the whole
			// document's analysis; skip it and keep going.
			continue
		}
		for _, f := range wire.Findings {
			out = append(out, ingestion.FindingCandidate{
				ChunkID:     chunk.ID,
				Text:        f.Text,
				PageNumber:  f.PageNumber,
				Confidence:  f.Confidence,
				FindingType: f.FindingType,
				Domain:      f.Domain,
			})
		}
	}
	return out, nil
}

const findingExtractionSystemPrompt = `You review one chunk of an M&A due-diligence document for noteworthy findings. Respond with JSON only:
{"findings": [{"text": "...", "page_number": null, "confidence": 0.0, "finding_type": "metric|fact|risk|opportunity|contradiction", "domain": "financial|operational|market|legal|technical"}]}
Only include findings with confidence >= 0.5. Return {"findings": []} if none.`
