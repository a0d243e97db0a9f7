package kgraph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMergeCandidates_DedupesAndSumsScores(t *testing.T) {
	vector := []SearchCandidate{{EpisodeID: "ep1", Text: "a", Score: CandidateScore{Vector: 0.9}}}
	bm25 := []SearchCandidate{{EpisodeID: "ep1", Text: "a", Score: CandidateScore{BM25: 0.4}}}
	graph := []SearchCandidate{{EntityID: "en1", Text: "b", Score: CandidateScore{Graph: 1.0}}}

	merged := mergeCandidates(10, vector, bm25, graph)
	require.Len(t, merged, 2)
	require.Equal(t, "ep1", merged[0].EpisodeID)
	require.InDelta(t, 1.3, combinedScore(merged[0]), 0.0001)
}

func TestMergeCandidates_TruncatesToK(t *testing.T) {
	var leg []SearchCandidate
	for i := 0; i < 10; i++ {
		leg = append(leg, SearchCandidate{EntityID: string(rune('a' + i)), Score: CandidateScore{Vector: float64(i)}})
	}
	merged := mergeCandidates(3, leg)
	require.Len(t, merged, 3)
	require.Equal(t, CandidateScore{Vector: 9}, merged[0].Score)
}

func TestContentHash_DeterministicPerGroupBodyTime(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h1 := contentHash("org:deal", "the target's revenue grew 20%", ts)
	h2 := contentHash("org:deal", "the target's revenue grew 20%", ts)
	h3 := contentHash("org:deal", "different body", ts)
	require.Equal(t, h1, h2)
	require.NotEqual(t, h1, h3)
}
