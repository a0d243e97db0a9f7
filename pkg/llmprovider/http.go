package llmprovider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

// HTTPConfig configures one OpenAI-compatible chat-completion backend.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// HTTPClient talks to an OpenAI-compatible /chat/completions endpoint with
// server-sent-events streaming, in place of tarsy's generated gRPC stub.
type HTTPClient struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPClient builds a Client bound to cfg.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type wireMessage struct {
	Role       string `json:"role"`
	Content    string `json:"content,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireToolFunc `json:"function"`
}

type wireToolFunc struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Tools       []wireTool    `json:"tools,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type wireStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			Reasoning string `json:"reasoning_content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Generate streams a chat completion, translating the provider's SSE frames
// into Chunk values on the returned channel. The channel is closed when the
// stream ends, whether cleanly or via an ErrorChunk.
func (c *HTTPClient) Generate(ctx context.Context, in *GenerateInput) (<-chan Chunk, error) {
	model := in.Model
	if model == "" {
		model = c.cfg.Model
	}

	req := wireRequest{
		Model:       model,
		Temperature: in.Temperature,
		MaxTokens:   in.MaxTokens,
		Stream:      true,
	}
	for _, m := range in.Messages {
		req.Messages = append(req.Messages, wireMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID})
	}
	for _, t := range in.Tools {
		req.Tools = append(req.Tools, wireTool{
			Type: "function",
			Function: wireToolFunc{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "llmprovider", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "llmprovider", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ProviderUnavailable, "llmprovider", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		return nil, apperrors.New(apperrors.ProviderRateLimited, "llmprovider", "provider rate limited the request")
	}
	if resp.StatusCode >= 500 {
		resp.Body.Close()
		return nil, apperrors.New(apperrors.ProviderUnavailable, "llmprovider", fmt.Sprintf("provider returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		payload, _ := io.ReadAll(resp.Body)
		return nil, apperrors.New(apperrors.ProviderContract, "llmprovider", fmt.Sprintf("provider returned %d: %s", resp.StatusCode, payload))
	}

	out := make(chan Chunk, 8)
	go c.streamResponse(resp.Body, out)
	return out, nil
}

// streamResponse reads "data: {...}" SSE frames off body, one JSON payload
// per event, until a "data: [DONE]" sentinel or EOF, emitting Chunks as it
// goes. Runs in its own goroutine so Generate returns as soon as the
// request is accepted.
func (c *HTTPClient) streamResponse(body io.ReadCloser, out chan<- Chunk) {
	defer close(out)
	defer body.Close()

	toolArgs := map[int]*ToolCall{}
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			return
		}
		if payload == "" {
			continue
		}

		var chunk wireStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			out <- ErrorChunk{Err: apperrors.Wrap(apperrors.ParseError, "llmprovider", err)}
			return
		}

		if chunk.Usage != nil {
			out <- UsageChunk{InputTokens: chunk.Usage.PromptTokens, OutputTokens: chunk.Usage.CompletionTokens}
		}

		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				out <- TextChunk{Text: choice.Delta.Content}
			}
			if choice.Delta.Reasoning != "" {
				out <- ThinkingChunk{Text: choice.Delta.Reasoning}
			}
			for i, tc := range choice.Delta.ToolCalls {
				acc, ok := toolArgs[i]
				if !ok {
					acc = &ToolCall{ID: tc.ID, Name: tc.Function.Name}
					toolArgs[i] = acc
				}
				acc.Arguments += tc.Function.Arguments
				if choice.FinishReason == "tool_calls" {
					out <- ToolCallChunk{Call: *acc}
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		out <- ErrorChunk{Err: apperrors.Wrap(apperrors.TransientIO, "llmprovider", err)}
	}
}

// Close releases idle connections held by the underlying http.Client.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
