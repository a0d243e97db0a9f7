package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProvider_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req wireRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := wireResponse{}
		for i := range req.Input {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: []float32{1, 0, 0}, Index: i})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL, Model: "embed-1", BatchSize: 2}, nil)
	vectors, err := p.Embed(context.Background(), []string{"a", "b", "c"}, "test")
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	require.Equal(t, []float32{1, 0, 0}, vectors[0])
}

func TestProvider_Embed_FallbackOnError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req wireRequest
		json.NewDecoder(r.Body).Decode(&req)
		calls++
		if req.Model == "embed-primary" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		resp := wireResponse{Data: []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}{{Embedding: []float32{0, 1, 0}, Index: 0}}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL, Model: "embed-primary", FallbackModel: "embed-fallback"}, nil)
	vectors, err := p.Embed(context.Background(), []string{"a"}, "test")
	require.NoError(t, err)
	require.Equal(t, []float32{0, 1, 0}, vectors[0])
	require.GreaterOrEqual(t, calls, 2)
}

func TestCosineSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0}), 0.0001)
	require.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 0.0001)
}
