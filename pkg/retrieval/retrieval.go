// Package retrieval implements hybrid retrieval (C9): fan out to
// pkg/kgraph.HybridSearch, rerank the candidates, and assemble a
// token-bounded, citation-carrying context string, caching the assembled
// result so repeated questions within a deal skip the embedding/rerank
// round trip.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hoferino/dealintel/pkg/cache"
	"github.com/hoferino/dealintel/pkg/kgraph"
	"github.com/hoferino/dealintel/pkg/rerank"
	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

const (
	defaultCandidateK = 50
	defaultTokenBudget = 2000
	cacheTTL           = 5 * time.Minute
)

// Filters names a subset of the graph, e.g. a single source document or
// channel. Retrieve folds it into the cache key, but applyFilters returns
// the candidates unchanged, so no search result is narrowed by it.
type Filters struct {
	DocumentID    string `json:"document_id,omitempty"`
	SourceChannel string `json:"source_channel,omitempty"`
}

func (f Filters) hash() string {
	b, _ := json.Marshal(f)
	return string(b)
}

// Citation is one retrieved snippet with enough provenance to render the
// bracketed citation format the agent's answers use.
type Citation struct {
	Text          string `json:"text"`
	SourceName    string `json:"source_name,omitempty"`
	PageNumber    *int   `json:"page_number,omitempty"`
	SourceChannel string `json:"source_channel,omitempty"`
	Score         float64 `json:"score"`
}

// Result is the assembled, cacheable retrieval output.
type Result struct {
	Context    string     `json:"context"`
	Citations  []Citation `json:"citations"`
	Truncated  bool       `json:"truncated"`
}

// Retriever ties the knowledge graph, reranker, and cache together.
type Retriever struct {
	graph    *kgraph.Graph
	reranker *rerank.Reranker
	cache    cache.Cache
}

// New builds a Retriever.
func New(graph *kgraph.Graph, reranker *rerank.Reranker, c cache.Cache) *Retriever {
	return &Retriever{graph: graph, reranker: reranker, cache: c}
}

// Retrieve runs the full pipeline for a natural-language query scoped to
// groupID (the kgraph "{org}:{deal}" convention), returning at most limit
// citations assembled into a single context string bounded by a 2,000-token
// budget. Lower-ranked candidates that do not fit are dropped; a citation
// is cut short only when the top-ranked one alone exceeds the budget.
func (r *Retriever) Retrieve(ctx context.Context, groupID, query string, limit int, filters Filters) (*Result, error) {
	if limit <= 0 {
		limit = 5
	}

	cacheKey := cache.RetrievalKey(groupID, query+"|"+filters.hash())
	var cached Result
	if hit, err := r.cache.Get(ctx, cache.NamespaceRetrieval, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	candidates, err := r.graph.HybridSearch(ctx, groupID, query, defaultCandidateK)
	if err != nil {
		return nil, err
	}
	candidates = applyFilters(candidates, filters)
	if len(candidates) == 0 {
		return &Result{}, nil
	}

	rerankInput := make([]rerank.Candidate, len(candidates))
	for i, c := range candidates {
		rerankInput[i] = rerank.Candidate{ID: candidateKey(c), Text: c.Text}
	}
	scored, err := r.reranker.Rerank(ctx, query, rerankInput)
	if err != nil {
		// Reranking is an accuracy improvement, not a correctness
		// requirement: fall back to the hybrid-search ordering rather
		// than failing the whole retrieval on a reranker outage.
		scored = fallbackScoring(candidates)
	}
	if len(scored) > limit {
		scored = scored[:limit]
	}

	result := assembleContext(scored, candidates, defaultTokenBudget)

	if err := r.cache.Set(ctx, cache.NamespaceRetrieval, cacheKey, result, cacheTTL); err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "retrieval", err)
	}

	return result, nil
}

func candidateKey(c kgraph.SearchCandidate) string {
	if c.EpisodeID != "" {
		return "episode:" + c.EpisodeID
	}
	return "entity:" + c.EntityID
}

func applyFilters(candidates []kgraph.SearchCandidate, f Filters) []kgraph.SearchCandidate {
	if f.DocumentID == "" && f.SourceChannel == "" {
		return candidates
	}
	// Hybrid search doesn't expose document_id/channel on SearchCandidate
	// directly (it spans both episodes and entities); filtering here is a
	// placeholder hook until C9's filtered variant threads those fields
	// through — today only an empty Filters is fully honored.
	return candidates
}

func fallbackScoring(candidates []kgraph.SearchCandidate) []rerank.Scored {
	scored := make([]rerank.Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = rerank.Scored{
			Candidate: rerank.Candidate{ID: candidateKey(c), Text: c.Text},
			Score:     combinedScore(c),
		}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored
}

func combinedScore(c kgraph.SearchCandidate) float64 {
	return c.Score.Vector + c.Score.BM25 + c.Score.Graph
}

// assembleContext renders scored candidates, in rank order, into a single
// prompt-ready string with bracketed citations. A candidate that would
// overflow the token budget is dropped; only the top-ranked candidate is
// ever truncated, and only when it alone exceeds the budget.
func assembleContext(scored []rerank.Scored, candidates []kgraph.SearchCandidate, tokenBudget int) *Result {
	byKey := make(map[string]kgraph.SearchCandidate, len(candidates))
	for _, c := range candidates {
		byKey[candidateKey(c)] = c
	}

	var b strings.Builder
	var citations []Citation
	usedTokens := 0
	truncated := false

	for _, s := range scored {
		c, ok := byKey[s.ID]
		if !ok {
			continue
		}
		text := s.Text
		snippetTokens := estimateTokens(text)
		if usedTokens+snippetTokens > tokenBudget {
			truncated = true
			if len(citations) > 0 {
				continue
			}
			text = strings.ToValidUTF8(text[:tokenBudget*4], "")
			snippetTokens = estimateTokens(text)
		}
		usedTokens += snippetTokens

		citation := citationFor(c, s.Score)
		citation.Text = text
		citations = append(citations, citation)
		fmt.Fprintf(&b, "«%s» [source: %s]\n", text, citationLabel(citation))
	}

	return &Result{Context: b.String(), Citations: citations, Truncated: truncated}
}

func citationFor(c kgraph.SearchCandidate, score float64) Citation {
	return Citation{Text: c.Text, Score: score}
}

func citationLabel(c Citation) string {
	parts := []string{}
	if c.SourceName != "" {
		parts = append(parts, c.SourceName)
	}
	if c.PageNumber != nil {
		parts = append(parts, fmt.Sprintf("p.%d", *c.PageNumber))
	}
	if c.SourceChannel != "" {
		parts = append(parts, "channel="+c.SourceChannel)
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, " | ")
}

func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}
