// Package llmprovider abstracts the chat-completion backend behind a single
// streaming interface. Where tarsy's pkg/agent/llm_client.go dials a gRPC
// sidecar, dealintel's providers are plain HTTP services (OpenAI-compatible
// chat completion APIs), so Client talks net/http + SSE instead of a
// generated protobuf stub.
package llmprovider

import (
	"context"
)

// ConversationMessage is one turn in the conversation sent to the provider.
type ConversationMessage struct {
	Role    string // "system", "user", "assistant", "tool"
	Content string
	// ToolCallID links a "tool" role message back to the ToolCall that
	// produced it, mirroring the OpenAI tool-result message shape.
	ToolCallID string
}

// ToolDefinition describes a callable tool offered to the model, following
// the same JSON-schema-parameters shape tarsy's agent layer uses.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON schema
}

// ToolCall is a model-requested invocation of one of the offered tools.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON, left to the caller to unmarshal
}

// GenerateInput is everything needed to drive one Generate call.
type GenerateInput struct {
	Model       string
	Messages    []ConversationMessage
	Tools       []ToolDefinition
	Temperature float64
	MaxTokens   int
}

// ChunkType discriminates the concrete Chunk implementations.
type ChunkType string

const (
	ChunkTypeText     ChunkType = "text"
	ChunkTypeThinking ChunkType = "thinking"
	ChunkTypeToolCall ChunkType = "tool_call"
	ChunkTypeUsage    ChunkType = "usage"
	ChunkTypeError    ChunkType = "error"
)

// Chunk is one unit of a streamed Generate response. Concrete types below
// implement it via an unexported marker method, the same closed-set pattern
// tarsy's llm_client.go uses so callers switch over ChunkType exhaustively.
type Chunk interface {
	chunkType() ChunkType
	Type() ChunkType
}

// TextChunk carries a fragment of the model's visible response text.
type TextChunk struct {
	Text string
}

func (TextChunk) chunkType() ChunkType { return ChunkTypeText }
func (TextChunk) Type() ChunkType      { return ChunkTypeText }

// ThinkingChunk carries a fragment of the model's reasoning trace, when the
// provider exposes one. Kept separate from TextChunk so callers can choose
// whether to surface it to end users.
type ThinkingChunk struct {
	Text string
}

func (ThinkingChunk) chunkType() ChunkType { return ChunkTypeThinking }
func (ThinkingChunk) Type() ChunkType      { return ChunkTypeThinking }

// ToolCallChunk signals the model wants to invoke a tool. A streamed
// response may contain more than one, accumulated by argument-delta the way
// OpenAI's streaming tool_calls work, then emitted whole once complete.
type ToolCallChunk struct {
	Call ToolCall
}

func (ToolCallChunk) chunkType() ChunkType { return ChunkTypeToolCall }
func (ToolCallChunk) Type() ChunkType      { return ChunkTypeToolCall }

// UsageChunk reports token accounting for the completed generation. Always
// the last chunk on a stream that finished without error.
type UsageChunk struct {
	InputTokens  int
	OutputTokens int
}

func (UsageChunk) chunkType() ChunkType { return ChunkTypeUsage }
func (UsageChunk) Type() ChunkType      { return ChunkTypeUsage }

// ErrorChunk terminates the stream early with a provider-side failure.
type ErrorChunk struct {
	Err error
}

func (ErrorChunk) chunkType() ChunkType { return ChunkTypeError }
func (ErrorChunk) Type() ChunkType      { return ChunkTypeError }

// Client generates a streamed completion for one provider backend.
type Client interface {
	Generate(ctx context.Context, in *GenerateInput) (<-chan Chunk, error)
	Close() error
}
