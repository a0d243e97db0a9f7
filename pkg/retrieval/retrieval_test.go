package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hoferino/dealintel/pkg/kgraph"
	"github.com/hoferino/dealintel/pkg/rerank"
)

func TestAssembleContext_DropsLowRankBeforeTruncatingHighRank(t *testing.T) {
	candidates := []kgraph.SearchCandidate{
		{EpisodeID: "ep-1", Text: strings.Repeat("a", 4000)},
		{EpisodeID: "ep-2", Text: "short fact"},
	}
	scored := []rerank.Scored{
		{Candidate: rerank.Candidate{ID: "episode:ep-1", Text: candidates[0].Text}, Score: 0.9},
		{Candidate: rerank.Candidate{ID: "episode:ep-2", Text: candidates[1].Text}, Score: 0.1},
	}

	result := assembleContext(scored, candidates, 500)
	require.Len(t, result.Citations, 1)
	require.Contains(t, result.Context, strings.Repeat("a", 100))
	require.False(t, strings.Contains(result.Context, "short fact"))
}

func TestCitationLabel_FormatsAvailableFields(t *testing.T) {
	page := 3
	label := citationLabel(Citation{SourceName: "CIM.pdf", PageNumber: &page, SourceChannel: "document"})
	require.Equal(t, "CIM.pdf | p.3 | channel=document", label)
}

func TestCitationLabel_FallsBackWhenEmpty(t *testing.T) {
	require.Equal(t, "unknown", citationLabel(Citation{}))
}

func TestFallbackScoring_SortsDescendingByCombinedScore(t *testing.T) {
	candidates := []kgraph.SearchCandidate{
		{EntityID: "e1", Text: "low", Score: kgraph.CandidateScore{Vector: 0.1}},
		{EntityID: "e2", Text: "high", Score: kgraph.CandidateScore{Vector: 0.9}},
	}
	scored := fallbackScoring(candidates)
	require.Equal(t, "high", scored[0].Text)
}
