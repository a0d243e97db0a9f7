package llmprovider

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hoferino/dealintel/ent"
	"github.com/hoferino/dealintel/ent/llmusage"
	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
	"github.com/hoferino/dealintel/pkg/shared/tenancy"
)

// Provider wraps a primary Client with an optional fallback, switching to
// the fallback whenever the primary's error is TransientIO,
// ProviderUnavailable, ProviderRateLimited, or a Timeout — the class
// pkg/shared/errors.Retryable reports as retryable.
type Provider struct {
	primary      Client
	primaryName  string
	fallback     Client
	fallbackName string
	usage        *ent.Client
}

// New builds a Provider. fallback may be nil, in which case primary errors
// are returned to the caller unchanged.
func New(primaryName string, primary Client, fallbackName string, fallback Client, usage *ent.Client) *Provider {
	return &Provider{
		primary:      primary,
		primaryName:  primaryName,
		fallback:     fallback,
		fallbackName: fallbackName,
		usage:        usage,
	}
}

// Generate drains the chosen client's stream into a single slice of Chunks
// and records an LLMUsage row for the call. feature labels the call site
// (e.g. "chat", "analyze_document") for the cost dashboard.
func (p *Provider) Generate(ctx context.Context, in *GenerateInput, feature string) ([]Chunk, error) {
	scope, _ := tenancy.FromContext(ctx)
	start := time.Now()

	chunks, name, status, callErr := p.generateWithFallback(ctx, in)
	latency := time.Since(start)

	var inputTokens, outputTokens int
	var errMsg string
	for _, c := range chunks {
		if u, ok := c.(UsageChunk); ok {
			inputTokens, outputTokens = u.InputTokens, u.OutputTokens
		}
		if e, ok := c.(ErrorChunk); ok {
			errMsg = e.Err.Error()
		}
	}
	if callErr != nil {
		errMsg = callErr.Error()
	}

	p.recordUsage(ctx, scope, name, in.Model, feature, inputTokens, outputTokens, latency, status, errMsg)
	return chunks, callErr
}

func (p *Provider) generateWithFallback(ctx context.Context, in *GenerateInput) ([]Chunk, string, llmusage.Status, error) {
	chunks, err := p.drain(ctx, p.primary, in)
	if err == nil {
		return chunks, p.primaryName, llmusage.StatusOk, nil
	}
	if p.fallback == nil || !apperrors.Retryable(err) {
		return chunks, p.primaryName, llmusage.StatusError, err
	}

	slog.Warn("llm primary failed, using fallback", "provider", p.primaryName, "error", err)
	fbChunks, fbErr := p.drain(ctx, p.fallback, in)
	if fbErr == nil {
		return fbChunks, p.fallbackName, llmusage.StatusFallback, nil
	}
	return fbChunks, p.fallbackName, llmusage.StatusError, fbErr
}

// drain collects a Client's full stream into a slice, surfacing the
// terminal ErrorChunk (if any) as a plain error so callers have one
// success/failure path instead of inspecting the last chunk themselves.
func (p *Provider) drain(ctx context.Context, c Client, in *GenerateInput) ([]Chunk, error) {
	stream, err := c.Generate(ctx, in)
	if err != nil {
		return nil, err
	}

	var chunks []Chunk
	for chunk := range stream {
		chunks = append(chunks, chunk)
		if e, ok := chunk.(ErrorChunk); ok {
			return chunks, e.Err
		}
	}
	return chunks, nil
}

func (p *Provider) recordUsage(ctx context.Context, scope tenancy.Scope, provider, model, feature string, inputTokens, outputTokens int, latency time.Duration, status llmusage.Status, errMsg string) {
	if p.usage == nil {
		return
	}
	builder := p.usage.LLMUsage.Create().
		SetID(uuid.NewString()).
		SetOrgID(scope.OrgID).
		SetProvider(provider).
		SetModel(model).
		SetFeature(feature).
		SetInputTokens(inputTokens).
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
		slog.Warn("failed to record llm usage", "error", err)
	}
}

// Close closes both underlying clients.
func (p *Provider) Close() error {
	if err := p.primary.Close(); err != nil {
		return err
	}
	if p.fallback != nil {
		return p.fallback.Close()
	}
	return nil
}

// CollectText concatenates every TextChunk in chunks, the common case for
// callers that don't need incremental streaming (e.g. document analysis).
func CollectText(chunks []Chunk) string {
	var out string
	for _, c := range chunks {
		if t, ok := c.(TextChunk); ok {
			out += t.Text
		}
	}
	return out
}
