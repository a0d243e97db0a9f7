package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hoferino/dealintel/pkg/agent"
	"github.com/hoferino/dealintel/pkg/checkpoint"
	"github.com/hoferino/dealintel/pkg/llmprovider"
	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

// handleChat handles POST /chat: runs one conversation turn through
// pkg/agent.Runtime and streams TurnEvents to the client as SSE, the way
// the teacher streams WebSocket frames from pkg/events, adapted to a
// one-shot request/response SSE stream per SPEC_FULL.md §6. Conversation
// history is resumed from the thread's latest checkpoint so a client that
// reconnects mid-conversation continues it instead of starting fresh.
func (s *Server) handleChat(c *gin.Context) {
	scope, _, _, ok := requireScope(c)
	if !ok {
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.Wrap(apperrors.Validation, "api", err))
		return
	}

	threadID := scope.ThreadID(req.ConversationID)
	history, err := s.loadChatHistory(c, threadID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	sink := agent.SinkFunc(func(ev agent.TurnEvent) {
		c.SSEvent(string(ev.Type), ev.Text)
		c.Writer.Flush()
	})

	result, err := s.runtime.RunTurn(c.Request.Context(), scope, history, req.Message, sink)
	if err != nil {
		c.SSEvent(string(agent.EventError), err.Error())
		c.Writer.Flush()
		return
	}

	if err := s.saveChatTurn(c, threadID, history, req.Message, result); err != nil {
		c.SSEvent(string(agent.EventError), err.Error())
		c.Writer.Flush()
		return
	}

	c.SSEvent(string(agent.EventDone), "")
	c.Writer.Flush()
}

// loadChatHistory resumes a conversation's message history from the
// thread's latest checkpoint.
func (s *Server) loadChatHistory(c *gin.Context, threadID string) ([]llmprovider.ConversationMessage, error) {
	state, err := s.checkpoints.GetLatest(c.Request.Context(), threadID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, nil
	}
	raw, ok := state.ChannelValues["history"].([]any)
	if !ok {
		return nil, nil
	}
	history := make([]llmprovider.ConversationMessage, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		role, _ := m["role"].(string)
		content, _ := m["content"].(string)
		history = append(history, llmprovider.ConversationMessage{Role: role, Content: content})
	}
	return history, nil
}

// saveChatTurn appends the just-completed turn to history and writes a
// new checkpoint for the thread.
func (s *Server) saveChatTurn(c *gin.Context, threadID string, history []llmprovider.ConversationMessage, userMessage string, result *agent.TurnResult) error {
	history = append(history,
		llmprovider.ConversationMessage{Role: "user", Content: userMessage},
		llmprovider.ConversationMessage{Role: "assistant", Content: result.Text},
	)

	historyValues := make([]any, 0, len(history))
	for _, m := range history {
		historyValues = append(historyValues, map[string]any{"role": m.Role, "content": m.Content})
	}

	state := checkpoint.State{
		ThreadID:     threadID,
		CheckpointID: uuid.NewString(),
		Phase:        checkpoint.PhaseCompleted,
		Node:         "chat_turn",
		ChannelValues: map[string]any{
			"history": historyValues,
		},
	}
	return s.checkpoints.Put(c.Request.Context(), state, nil)
}
