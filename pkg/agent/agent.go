// Package agent implements the agent orchestrator (C10): intent and
// complexity classification, tool-tier loading with escalation, a
// complexity-routed model matrix, the Select/Isolate/Compress/Write
// context-engineering hooks, and a supervisor/specialist dispatch for
// complex turns — grounded on the teacher's pkg/agent/controller
// (react/streaming/summarize/tool_execution) and pkg/agent/orchestrator
// (tool_executor/collector/runner) packages, generalized from a
// single-provider ReAct alert investigator to a multi-tier chat agent over
// pkg/llmprovider.
package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/hoferino/dealintel/ent"
	"github.com/hoferino/dealintel/pkg/cache"
	"github.com/hoferino/dealintel/pkg/jobqueue"
	"github.com/hoferino/dealintel/pkg/kgraph"
	"github.com/hoferino/dealintel/pkg/llmprovider"
	"github.com/hoferino/dealintel/pkg/retrieval"
	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
	"github.com/hoferino/dealintel/pkg/shared/tenancy"
)

const maxToolRounds = 6

// Runtime bundles every collaborator a turn needs: the relational store,
// knowledge graph, retriever, job queue (for the Write hook), cache (for
// Isolate/Compress/classification memoization), and the LLM provider.
type Runtime struct {
	client    *ent.Client
	graph     *kgraph.Graph
	retriever *retrieval.Retriever
	queue     *jobqueue.Queue
	cache     cache.Cache
	provider  *llmprovider.Provider

	classifier *Classifier
	breaker    *gobreaker.CircuitBreaker
}

// New builds a Runtime. Only the cache and the retriever are nil-checked:
// a nil cache skips the cache-backed hooks and a nil retriever skips
// context selection (the search_documents tool still calls it). The other
// dependencies are used without nil checks.
func New(client *ent.Client, graph *kgraph.Graph, retriever *retrieval.Retriever, queue *jobqueue.Queue, c cache.Cache, provider *llmprovider.Provider) *Runtime {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "agent-llm",
		MaxRequests: 2,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("agent circuit breaker state change", "breaker", name, "from", from, "to", to)
		},
	})
	return &Runtime{
		client:     client,
		graph:      graph,
		retriever:  retriever,
		queue:      queue,
		cache:      c,
		provider:   provider,
		classifier: NewClassifier(c),
		breaker:    breaker,
	}
}

// generate wraps provider.Generate in the circuit breaker required of
// every blocking C10 call (SPEC_FULL.md §5): a tripped breaker surfaces as
// ProviderUnavailable instead of hammering an already-failing backend.
func (rt *Runtime) generate(ctx context.Context, in *llmprovider.GenerateInput, feature string) ([]llmprovider.Chunk, error) {
	result, err := rt.breaker.Execute(func() (any, error) {
		return rt.provider.Generate(ctx, in, feature)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, apperrors.Wrap(apperrors.ProviderUnavailable, "agent", err)
		}
		return nil, err
	}
	return result.([]llmprovider.Chunk), nil
}

// TurnResult is the final outcome of RunTurn, used by pkg/api to persist
// the assistant Message after streaming completes.
type TurnResult struct {
	Text       string
	Sources    []retrieval.Citation
	Cancelled  bool
	Classification Classification
	Escalations    int
}

const systemPromptBase = `You are an M&A due-diligence assistant. Answer using the provided context and cite sources in the "«snippet» [source: ...]" format they arrive in. When the user asserts a fact — a correction, a confirmation, or new data — call index_to_knowledge_base with that content and then acknowledge naturally; do not ask permission first. Never persist questions, greetings, opinions, or meta-conversation about the chat itself.`

// RunTurn handles one conversation turn end-to-end: classify, select
// (retrieve), compress history if needed, load the matching tool tier,
// run the model with escalation on out-of-tier tool calls, dispatch to
// specialists for complex analytical turns, and stream events to sink.
// ctx cancellation aborts the in-flight LLM call; any tool calls already
// in flight are allowed to finish but their results are not surfaced
// (spec.md §5 cancellation contract).
func (rt *Runtime) RunTurn(ctx context.Context, scope tenancy.Scope, history []llmprovider.ConversationMessage, userMessage string, sink EventSink) (*TurnResult, error) {
	classification := rt.classifier.Classify(ctx, userMessage)

	compressed, err := rt.compressHistory(ctx, history)
	if err != nil {
		return nil, err
	}

	systemCtx, err := rt.selectContext(ctx, scope, classification, userMessage)
	if err != nil {
		return nil, err
	}

	messages := make([]llmprovider.ConversationMessage, 0, len(compressed)+3)
	messages = append(messages, llmprovider.ConversationMessage{Role: "system", Content: systemPromptBase})
	if systemCtx != "" {
		messages = append(messages, llmprovider.ConversationMessage{Role: "system", Content: systemCtx})
	}
	messages = append(messages, compressed...)
	messages = append(messages, llmprovider.ConversationMessage{Role: "user", Content: userMessage})

	if classification.Complexity == ComplexityComplex {
		if specialists := routeSpecialists(userMessage); len(specialists) > 0 {
			return rt.runSupervised(ctx, scope, classification, messages, specialists, sink)
		}
	}

	return rt.runGeneric(ctx, scope, classification, messages, sink)
}

// runSupervised dispatches a complex turn to the matched specialists in
// parallel-free sequence (supervisor pattern: simple enough turns don't
// need goroutine fan-out) and synthesizes their outputs.
func (rt *Runtime) runSupervised(ctx context.Context, scope tenancy.Scope, classification Classification, messages []llmprovider.ConversationMessage, specialists []Specialist, sink EventSink) (*TurnResult, error) {
	var results []specialistResult
	for _, s := range specialists {
		sink.Send(TurnEvent{Type: EventCallStarted, Text: string(s)})
		r, err := rt.runSpecialist(ctx, s, messages)
		if err != nil {
			sink.Send(TurnEvent{Type: EventError, Text: err.Error()})
			continue
		}
		sink.Send(TurnEvent{Type: EventCallCompleted, Text: string(s)})
		results = append(results, r)
	}
	if len(results) == 0 {
		return rt.runGeneric(ctx, scope, classification, messages, sink)
	}

	text, err := rt.synthesize(ctx, results)
	if err != nil {
		return nil, err
	}
	streamText(sink, text)
	sink.Send(TurnEvent{Type: EventDone})
	return &TurnResult{Text: text, Classification: classification}, nil
}

// runGeneric drives the tool-calling loop for simple/medium turns and for
// complex turns with no matching specialist, escalating tier when the
// model names a tool outside what's currently loaded.
func (rt *Runtime) runGeneric(ctx context.Context, scope tenancy.Scope, classification Classification, messages []llmprovider.ConversationMessage, sink EventSink) (*TurnResult, error) {
	tier := tierFor(classification.Complexity)
	route := RouteFor(classification.Complexity)
	escalations := 0

	for round := 0; round < maxToolRounds; round++ {
		select {
		case <-ctx.Done():
			return &TurnResult{Cancelled: true, Classification: classification, Escalations: escalations}, nil
		default:
		}

		chunks, err := rt.generate(ctx, &llmprovider.GenerateInput{
			Model:       route.Model,
			Messages:    messages,
			Tools:       toolsForTier(tier),
			Temperature: route.Temperature,
			MaxTokens:   route.MaxTokens,
		}, "chat")
		if err != nil {
			sink.Send(TurnEvent{Type: EventError, Text: err.Error()})
			return nil, err
		}

		toolCalls := collectToolCalls(chunks)
		if len(toolCalls) == 0 {
			text := llmprovider.CollectText(chunks)
			streamText(sink, text)
			sink.Send(TurnEvent{Type: EventDone})
			return &TurnResult{Text: text, Classification: classification, Escalations: escalations}, nil
		}

		escalated := false
		for _, call := range toolCalls {
			sink.Send(TurnEvent{Type: EventCallStarted, Text: call.Name})
			summary, full, err := rt.executeTool(ctx, scope, tier, call.Name, call.Arguments)
			if _, ok := err.(toolNotLoadedError); ok {
				tier = escalate(tier)
				route = RouteFor(classification.Complexity)
				escalations++
				sink.Send(TurnEvent{Type: EventEscalated, Text: call.Name})
				escalated = true
				break
			}
			if err != nil {
				summary = "Tool call failed: " + err.Error()
			} else if err := rt.isolateToolResult(ctx, call.ID, full, summary); err != nil {
				slog.Warn("failed to isolate tool result", "call_id", call.ID, "error", err)
			}
			sink.Send(TurnEvent{Type: EventToolSummary, Text: summary})
			sink.Send(TurnEvent{Type: EventCallCompleted, Text: call.Name})

			messages = append(messages,
				llmprovider.ConversationMessage{Role: "assistant", Content: "", ToolCallID: call.ID},
				llmprovider.ConversationMessage{Role: "tool", Content: summary, ToolCallID: call.ID},
			)
		}
		if escalated {
			continue
		}
	}

	return nil, apperrors.New(apperrors.Internal, "agent", "turn exceeded max tool-calling rounds")
}

func collectToolCalls(chunks []llmprovider.Chunk) []llmprovider.ToolCall {
	var calls []llmprovider.ToolCall
	for _, c := range chunks {
		if tc, ok := c.(llmprovider.ToolCallChunk); ok {
			calls = append(calls, tc.Call)
		}
	}
	return calls
}

// streamText emits the full response text to sink as a single EventToken
// event: provider.Generate has already drained the whole response, so the
// caller receives the answer in one event rather than token by token.
func streamText(sink EventSink, text string) {
	sink.Send(TurnEvent{Type: EventToken, Text: text})
}
