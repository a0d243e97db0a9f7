package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReranker_Rerank(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req wireRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := wireResponse{Results: []struct {
			Index          int     `json:"index"`
			RelevanceScore float64 `json:"relevance_score"`
		}{
			{Index: 1, RelevanceScore: 0.9},
			{Index: 0, RelevanceScore: 0.2},
		}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	r := New(Config{BaseURL: srv.URL, Model: "rerank-1"})
	scored, err := r.Rerank(context.Background(), "revenue growth", []Candidate{
		{ID: "a", Text: "unrelated"},
		{ID: "b", Text: "revenue grew 20% YoY"},
	})
	require.NoError(t, err)
	require.Len(t, scored, 2)
	require.Equal(t, "b", scored[0].ID)
	require.Equal(t, 0.9, scored[0].Score)
}
