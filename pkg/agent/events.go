package agent

// EventType is the closed set of discrete events a streamed turn emits,
// per spec.md §4.8: "Tool calls emit discrete events {call_started,
// tool_summary, call_completed, final_token_stream}".
type EventType string

const (
	EventCallStarted      EventType = "call_started"
	EventToolSummary      EventType = "tool_summary"
	EventCallCompleted    EventType = "call_completed"
	EventToken            EventType = "final_token_stream"
	EventEscalated        EventType = "escalated"
	EventError            EventType = "error"
	EventDone             EventType = "done"
)

// TurnEvent is one unit pushed to the caller's EventSink while a turn
// runs. Text carries the event payload: the response text for EventToken, a tool
// name for EventCallStarted/EventCallCompleted, the short summary for
// EventToolSummary, an error message for EventError.
type TurnEvent struct {
	Type EventType `json:"type"`
	Text string    `json:"text,omitempty"`
}

// EventSink receives TurnEvents as a turn executes. pkg/api's SSE handler
// is the production implementation; tests use a simple slice-appending
// sink.
type EventSink interface {
	Send(TurnEvent)
}

// SinkFunc adapts a plain function to EventSink.
type SinkFunc func(TurnEvent)

func (f SinkFunc) Send(e TurnEvent) { f(e) }
