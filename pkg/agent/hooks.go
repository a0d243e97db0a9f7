package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hoferino/dealintel/pkg/cache"
	"github.com/hoferino/dealintel/pkg/ingestion"
	"github.com/hoferino/dealintel/pkg/jobqueue"
	"github.com/hoferino/dealintel/pkg/llmprovider"
	"github.com/hoferino/dealintel/pkg/retrieval"
	"github.com/hoferino/dealintel/pkg/shared/tenancy"
)

const (
	isolateTTL          = 30 * time.Minute
	summaryCacheTTL     = 24 * time.Hour
	compressTriggerSize = 20
	compressKeepRecent  = 10
)

// selectContext is the Select hook (spec.md §4.8): for factual/analytical
// intents not matching a skip pattern, run retrieval and return the
// assembled context as a system message to inject ahead of the user turn.
// Conversational/procedural intents return ("", nil) and retrieval is
// skipped entirely.
func (rt *Runtime) selectContext(ctx context.Context, scope tenancy.Scope, classification Classification, query string) (string, error) {
	if classification.skipsRetrieval() || rt.retriever == nil {
		return "", nil
	}

	result, err := rt.retriever.Retrieve(ctx, scope.GroupID(), query, 5, retrieval.Filters{})
	if err != nil {
		// Retrieval is an accuracy improvement to the turn, not a hard
		// dependency: a degraded retrieval backend shouldn't fail chat.
		return "", nil
	}
	if result.Context == "" {
		return "", nil
	}
	return "Relevant context from the data room:\n" + result.Context, nil
}

// isolateToolResult is the Isolate hook: stash the full structured tool
// result under a cache key keyed by the tool-call id (namespace
// cache:tool:). It returns only an error; the summary argument is not
// stored. Subsequent tool calls may reference the full result by id via
// resolveToolResult.
func (rt *Runtime) isolateToolResult(ctx context.Context, callID string, full any, summary string) error {
	if rt.cache == nil {
		return nil
	}
	return rt.cache.Set(ctx, cache.NamespaceTool, callID, full, isolateTTL)
}

// resolveToolResult fetches back a prior tool call's full structured
// result by its call id, for a later tool invocation that references it.
func (rt *Runtime) resolveToolResult(ctx context.Context, callID string, dest any) (bool, error) {
	if rt.cache == nil {
		return false, nil
	}
	return rt.cache.Get(ctx, cache.NamespaceTool, callID, dest)
}

// compressHistory is the Compress hook: once a conversation exceeds 20
// messages, all but the most recent 10 are summarized by an LLM into a
// single system message that replaces them in the prompt. The summary is
// cached by the hash of the summarized prefix so repeated calls with the
// same prefix (e.g. a retried turn) skip the LLM round trip.
func (rt *Runtime) compressHistory(ctx context.Context, history []llmprovider.ConversationMessage) ([]llmprovider.ConversationMessage, error) {
	if len(history) <= compressTriggerSize {
		return history, nil
	}

	cut := len(history) - compressKeepRecent
	toSummarize := history[:cut]
	recent := history[cut:]

	key := summaryCacheKey(toSummarize)
	var summary string
	if rt.cache != nil {
		var cached string
		if hit, err := rt.cache.Get(ctx, cache.NamespaceSummary, key, &cached); err == nil && hit {
			summary = cached
		}
	}

	if summary == "" {
		route := RouteFor(ComplexitySimple)
		prompt := buildSummaryPrompt(toSummarize)
		chunks, err := rt.provider.Generate(ctx, &llmprovider.GenerateInput{
			Model: route.Model,
			Messages: []llmprovider.ConversationMessage{
				{Role: "system", Content: "Summarize the following conversation history in under 200 words, preserving any facts, decisions, or corrections the user stated."},
				{Role: "user", Content: prompt},
			},
			Temperature: 0.2,
			MaxTokens:   300,
		}, "chat_compress")
		if err != nil {
			// A failed summarization should not break the turn: fall back
			// to sending the full uncompressed history this one time.
			return history, nil
		}
		summary = llmprovider.CollectText(chunks)
		if rt.cache != nil {
			_ = rt.cache.Set(ctx, cache.NamespaceSummary, key, summary, summaryCacheTTL)
		}
	}

	out := make([]llmprovider.ConversationMessage, 0, 1+len(recent))
	out = append(out, llmprovider.ConversationMessage{Role: "system", Content: "Earlier conversation summary: " + summary})
	out = append(out, recent...)
	return out, nil
}

func buildSummaryPrompt(messages []llmprovider.ConversationMessage) string {
	var b string
	for _, m := range messages {
		b += fmt.Sprintf("%s: %s\n", m.Role, m.Content)
	}
	return b
}

func summaryCacheKey(messages []llmprovider.ConversationMessage) string {
	return cache.MessageHashKey(buildSummaryPrompt(messages))
}

// writeBack is the Write hook's tool implementation: index_to_knowledge_base
// enqueues an index_episode job (C3) rather than writing synchronously, so
// the hot-path chat response is never blocked on ingestion latency. The
// user's *next* turn sees the fact, which spec.md §4.8 accepts as
// sufficient ("hot path" is relative to the conversational rhythm, not
// real time).
func (rt *Runtime) writeBack(ctx context.Context, scope tenancy.Scope, content, sourceType string) (string, error) {
	if sourceType == "" {
		sourceType = "analyst_chat"
	}
	payload := map[string]any{
		"group_id":        scope.GroupID(),
		"body":            content,
		"source_channel":  sourceType,
		"confidence_hint": ingestion.ConfidenceAnalystSourced,
	}
	_, err := rt.queue.Enqueue(ctx, jobqueue.EnqueueInput{
		OrgID:        scope.OrgID,
		DealID:       scope.DealID,
		Queue:        ingestion.QueueIndexEpisode,
		Payload:      payload,
		SingletonKey: "index_episode:" + scope.GroupID() + ":" + uuid.NewString(),
		MaxAttempts:  5,
	})
	if err != nil {
		return "", err
	}
	return "Noted — I've added that to the knowledge base.", nil
}
