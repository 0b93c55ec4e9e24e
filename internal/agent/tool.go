package agent

import "maps"

// ToolDefinition declares a callable capability exposed to the model.
// Mutating marks tools that change filesystem state and therefore must
// pass the authorization gate; it is not part of the wire schema.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
	Mutating    bool           `json:"-"`
}

// ToolCall is requested by an assistant message and immutable once received.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolResult is the normalized output of one tool call.
type ToolResult struct {
	CallID        string            `json:"call_id"`
	Name          string            `json:"name"`
	Content       string            `json:"content"`
	IsError       bool              `json:"is_error,omitempty"`
	FailureReason ToolFailureReason `json:"failure_reason,omitempty"`
	Simulated     bool              `json:"simulated,omitempty"`
}

// ToolResultMessage converts a tool result to a transcript turn.
func ToolResultMessage(result ToolResult) Message {
	return Message{
		Role:       RoleTool,
		Name:       result.Name,
		ToolCallID: result.CallID,
		Content:    result.Content,
		IsError:    result.IsError,
	}
}

// CloneToolCall returns a deep copy of a tool call.
func CloneToolCall(in ToolCall) ToolCall {
	out := in
	if in.Arguments != nil {
		out.Arguments = make(map[string]any, len(in.Arguments))
		maps.Copy(out.Arguments, in.Arguments)
	}
	return out
}

// CloneToolDefinitions returns deep copies of all definitions.
func CloneToolDefinitions(in []ToolDefinition) []ToolDefinition {
	out := make([]ToolDefinition, len(in))
	for i := range in {
		out[i] = in[i]
		if in[i].InputSchema != nil {
			out[i].InputSchema = make(map[string]any, len(in[i].InputSchema))
			maps.Copy(out[i].InputSchema, in[i].InputSchema)
		}
	}
	return out
}
