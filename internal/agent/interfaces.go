package agent

import "context"

// ModelRequest is the model input contract required by the loop.
type ModelRequest struct {
	Messages []Message
	Tools    []ToolDefinition
}

// Model produces assistant messages that may include tool calls. The call
// blocks until the remote service responds or the transport fails; it is
// the only suspending operation in the system.
type Model interface {
	Generate(ctx context.Context, request ModelRequest) (Message, error)
}

// ToolExecutor resolves and executes one tool call at a time.
type ToolExecutor interface {
	Execute(ctx context.Context, call ToolCall) (ToolResult, error)
}

// EventSink receives normalized loop events.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}

// IDGenerator creates run IDs at the runtime boundary.
type IDGenerator interface {
	NewRunID(ctx context.Context) (RunID, error)
}
