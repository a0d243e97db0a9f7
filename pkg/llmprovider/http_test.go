package llmprovider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func sseServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)
		for _, f := range frames {
			fmt.Fprintf(w, "data: %s\n\n", f)
			flusher.Flush()
		}
	}))
}

func TestHTTPClient_Generate_TextStream(t *testing.T) {
	srv := sseServer(t, []string{
		`{"choices":[{"delta":{"content":"hello "}}]}`,
		`{"choices":[{"delta":{"content":"world"}}]}`,
		`{"usage":{"prompt_tokens":10,"completion_tokens":2},"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		"[DONE]",
	})
	defer srv.Close()

	client := NewHTTPClient(HTTPConfig{BaseURL: srv.URL, Model: "test-model"})
	stream, err := client.Generate(context.Background(), &GenerateInput{
		Messages: []ConversationMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	var text string
	var usage UsageChunk
	for chunk := range stream {
		switch c := chunk.(type) {
		case TextChunk:
			text += c.Text
		case UsageChunk:
			usage = c
		}
	}
	require.Equal(t, "hello world", text)
	require.Equal(t, 10, usage.InputTokens)
	require.Equal(t, 2, usage.OutputTokens)
}

func TestHTTPClient_Generate_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewHTTPClient(HTTPConfig{BaseURL: srv.URL, Model: "test-model"})
	_, err := client.Generate(context.Background(), &GenerateInput{
		Messages: []ConversationMessage{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
}

func TestHTTPClient_Generate_ToolCall(t *testing.T) {
	srv := sseServer(t, []string{
		`{"choices":[{"delta":{"tool_calls":[{"id":"call_1","function":{"name":"search","arguments":"{\"q\":"}}]},"finish_reason":""}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"id":"call_1","function":{"arguments":"\"deals\"}"}}]},"finish_reason":"tool_calls"}]}`,
		"[DONE]",
	})
	defer srv.Close()

	client := NewHTTPClient(HTTPConfig{BaseURL: srv.URL})
	stream, err := client.Generate(context.Background(), &GenerateInput{
		Messages: []ConversationMessage{{Role: "user", Content: "find deals"}},
		Tools:    []ToolDefinition{{Name: "search"}},
	})
	require.NoError(t, err)

	var calls []ToolCall
	for chunk := range stream {
		if tc, ok := chunk.(ToolCallChunk); ok {
			calls = append(calls, tc.Call)
		}
	}
	require.Len(t, calls, 1)
	require.Equal(t, "search", calls[0].Name)
	require.JSONEq(t, `{"q":"deals"}`, calls[0].Arguments)
}
