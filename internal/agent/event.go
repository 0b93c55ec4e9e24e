package agent

// EventType is emitted by the loop for observability.
type EventType string

const (
	EventTypeRunStarted       EventType = "run_started"
	EventTypeAssistantMessage EventType = "assistant_message"
	EventTypeToolCall         EventType = "tool_call"
	EventTypeToolResult       EventType = "tool_result"
	EventTypeRunCompleted     EventType = "run_completed"
	EventTypeRunFailed        EventType = "run_failed"
)

// Event is intentionally compact so sinks can map it to console lines or logs.
type Event struct {
	RunID       RunID       `json:"run_id"`
	Step        int         `json:"step"`
	Type        EventType   `json:"type"`
	Message     *Message    `json:"message,omitempty"`
	ToolCall    *ToolCall   `json:"tool_call,omitempty"`
	ToolResult  *ToolResult `json:"tool_result,omitempty"`
	Description string      `json:"description,omitempty"`
}

// CloneEvent returns a deep copy safe for buffering sinks.
func CloneEvent(in Event) Event {
	out := in
	if in.Message != nil {
		message := CloneMessage(*in.Message)
		out.Message = &message
	}
	if in.ToolCall != nil {
		call := CloneToolCall(*in.ToolCall)
		out.ToolCall = &call
	}
	if in.ToolResult != nil {
		result := *in.ToolResult
		out.ToolResult = &result
	}
	return out
}
