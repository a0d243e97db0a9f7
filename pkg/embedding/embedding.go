// Package embedding computes vector representations for document chunks
// and retrieval queries. Since pgvector was dropped (spec.md §1), vectors
// are not kept in a vector column — pkg/kgraph stores them as JSON columns
// on Episode and Entity rows and does the similarity math
// application-side; this package is only responsible for turning text into
// vectors.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/hoferino/dealintel/ent"
	"github.com/hoferino/dealintel/ent/llmusage"
	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
	"github.com/hoferino/dealintel/pkg/shared/tenancy"
)

// Config configures the primary and fallback embedding backends.
type Config struct {
	BaseURL         string
	APIKey          string
	Model           string
	FallbackModel   string
	Timeout         time.Duration
	BatchSize       int
	BreakerMaxReqs  uint32
	BreakerInterval time.Duration
	BreakerTimeout  time.Duration
}

// Provider computes embeddings with circuit-breaker protection around the
// primary model and an automatic drop to FallbackModel when the breaker
// trips, the same per-dependency isolation kubernaut wires around its
// notification channels via sony/gobreaker.
type Provider struct {
	cfg     Config
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	usage   *ent.Client
}

// New builds a Provider, wiring a circuit breaker around the primary model
// so a degraded embedding backend fails fast instead of stalling every
// ingestion job behind its timeout.
func New(cfg Config, usage *ent.Client) *Provider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 64
	}
	maxRequests := cfg.BreakerMaxReqs
	if maxRequests == 0 {
		maxRequests = 2
	}
	interval := cfg.BreakerInterval
	if interval == 0 {
		interval = 10 * time.Second
	}
	timeout := cfg.BreakerTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embedding-primary",
		MaxRequests: maxRequests,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("embedding circuit breaker state change", "breaker", name, "from", from, "to", to)
		},
	})

	return &Provider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		usage:   usage,
	}
}

type wireRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type wireResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
	} `json:"usage"`
}

// Embed computes one vector per text in texts, batching requests at
// cfg.BatchSize and falling through to FallbackModel if the primary
// model's circuit breaker is open or the call fails.
func (p *Provider) Embed(ctx context.Context, texts []string, feature string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.cfg.BatchSize {
		end := start + p.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := p.embedBatch(ctx, texts[start:end], feature)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (p *Provider) embedBatch(ctx context.Context, texts []string, feature string) ([][]float32, error) {
	model := p.cfg.Model
	status := llmusage.StatusOk
	start := time.Now()

	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.call(ctx, p.cfg.Model, texts)
	})

	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			err = apperrors.Wrap(apperrors.ProviderUnavailable, "embedding", err)
		}
		if p.cfg.FallbackModel == "" {
			p.recordUsage(ctx, model, feature, len(texts), 0, time.Since(start), llmusage.StatusError, err.Error())
			return nil, err
		}
		slog.Warn("embedding primary failed, using fallback", "error", err)
		model = p.cfg.FallbackModel
		status = llmusage.StatusFallback
		vectors, fbErr := p.call(ctx, p.cfg.FallbackModel, texts)
		if fbErr != nil {
			p.recordUsage(ctx, model, feature, len(texts), 0, time.Since(start), llmusage.StatusError, fbErr.Error())
			return nil, fbErr
		}
		p.recordUsage(ctx, model, feature, len(texts), 0, time.Since(start), status, "")
		return vectors, nil
	}

	p.recordUsage(ctx, model, feature, len(texts), 0, time.Since(start), status, "")
	return result.([][]float32), nil
}

func (p *Provider) call(ctx context.Context, model string, texts []string) ([][]float32, error) {
	body, err := json.Marshal(wireRequest{Model: model, Input: texts})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "embedding", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(p.cfg.BaseURL, "/")+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "embedding", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ProviderUnavailable, "embedding", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperrors.New(apperrors.ProviderRateLimited, "embedding", "provider rate limited the request")
	}
	if resp.StatusCode >= 500 {
		return nil, apperrors.New(apperrors.ProviderUnavailable, "embedding", fmt.Sprintf("provider returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil, apperrors.New(apperrors.ProviderContract, "embedding", fmt.Sprintf("provider returned %d", resp.StatusCode))
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, apperrors.Wrap(apperrors.ParseError, "embedding", err)
	}

	vectors := make([][]float32, len(wire.Data))
	for _, d := range wire.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			continue
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

func (p *Provider) recordUsage(ctx context.Context, model, feature string, inputCount, outputTokens int, latency time.Duration, status llmusage.Status, errMsg string) {
	if p.usage == nil {
		return
	}
	scope, _ := tenancy.FromContext(ctx)
	builder := p.usage.LLMUsage.Create().
		SetID(uuid.NewString()).
		SetOrgID(scope.OrgID).
		SetProvider("embedding").
		SetModel(model).
		SetFeature(feature).
		SetInputTokens(inputCount).
		SetOutputTokens(outputTokens).
		SetLatencyMs(int(latency.Milliseconds())).
		SetStatus(status)
	if scope.DealID != "" {
		builder = builder.SetDealID(scope.DealID)
	}
	if errMsg != "" {
		builder = builder.SetErrorMessage(errMsg)
	}
	if _, err := builder.Save(ctx); err != nil {
		slog.Warn("failed to record embedding usage", "error", err)
	}
}

// CosineSimilarity computes the cosine similarity between two equal-length
// vectors, the application-side replacement for pgvector's <=> operator.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
