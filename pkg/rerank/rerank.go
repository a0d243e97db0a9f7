// Package rerank calls an external cross-encoder reranking model to reorder
// hybrid-search candidates by relevance before they're assembled into a
// retrieval context (C9). Request/response shape mirrors pkg/embedding's
// batched HTTP call rather than pkg/llmprovider's streaming one, since a
// rerank call returns a single scored list, not incremental text.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

// Config configures the reranking backend.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Candidate is one item to be scored against a query.
type Candidate struct {
	ID   string
	Text string
}

// Scored pairs a Candidate with its relevance score, 0 (irrelevant) to 1
// (highly relevant).
type Scored struct {
	Candidate
	Score float64
}

// Reranker scores and reorders candidates for a query.
type Reranker struct {
	cfg    Config
	client *http.Client
}

// New builds a Reranker bound to cfg.
func New(cfg Config) *Reranker {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Reranker{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

type wireRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type wireResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank scores candidates against query and returns them sorted by score
// descending. Returns fewer than len(candidates) results only if the
// provider itself drops low-relevance items.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []Candidate) ([]Scored, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Text
	}

	body, err := json.Marshal(wireRequest{Model: r.cfg.Model, Query: query, Documents: docs})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "rerank", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(r.cfg.BaseURL, "/")+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "rerank", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ProviderUnavailable, "rerank", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperrors.New(apperrors.ProviderRateLimited, "rerank", "provider rate limited the request")
	}
	if resp.StatusCode >= 500 {
		return nil, apperrors.New(apperrors.ProviderUnavailable, "rerank", fmt.Sprintf("provider returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil, apperrors.New(apperrors.ProviderContract, "rerank", fmt.Sprintf("provider returned %d", resp.StatusCode))
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, apperrors.Wrap(apperrors.ParseError, "rerank", err)
	}

	scored := make([]Scored, 0, len(wire.Results))
	for _, res := range wire.Results {
		if res.Index < 0 || res.Index >= len(candidates) {
			continue
		}
		scored = append(scored, Scored{Candidate: candidates[res.Index], Score: res.RelevanceScore})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored, nil
}
