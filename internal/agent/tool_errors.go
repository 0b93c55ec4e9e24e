package agent

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ToolFailureReason classifies a failed tool call for the model.
type ToolFailureReason string

const (
	ToolFailureReasonUnknownTool      ToolFailureReason = "unknown_tool"
	ToolFailureReasonInvalidArguments ToolFailureReason = "invalid_arguments"
	ToolFailureReasonNotFound         ToolFailureReason = "not_found"
	ToolFailureReasonNotADirectory    ToolFailureReason = "not_a_directory"
	ToolFailureReasonPathConflict     ToolFailureReason = "path_conflict"
	ToolFailureReasonUserDeclined     ToolFailureReason = "user_declined"
	ToolFailureReasonExecutorError    ToolFailureReason = "executor_error"
)

// ToolFailure is an executor error carrying its machine-readable reason.
type ToolFailure struct {
	Reason ToolFailureReason
	Err    error
}

func (f *ToolFailure) Error() string {
	if f.Err == nil {
		return string(f.Reason)
	}
	return fmt.Sprintf("%s: %s", f.Reason, f.Err.Error())
}

func (f *ToolFailure) Unwrap() error {
	return f.Err
}

// NewToolFailure wraps err with a failure reason.
func NewToolFailure(reason ToolFailureReason, err error) error {
	return &ToolFailure{Reason: reason, Err: err}
}

// ToolErrorResult builds the structured error result reported back into the
// transcript. The content is a JSON document so the model sees one
// consistent error shape across all tools.
func ToolErrorResult(call ToolCall, reason ToolFailureReason, err error) ToolResult {
	message := string(reason)
	if err != nil {
		message = err.Error()
	}
	content, marshalErr := json.Marshal(map[string]any{
		"error":  message,
		"reason": string(reason),
	})
	if marshalErr != nil {
		content = []byte(fmt.Sprintf("%s: %s", reason, message))
	}
	return ToolResult{
		CallID:        call.ID,
		Name:          call.Name,
		Content:       string(content),
		IsError:       true,
		FailureReason: reason,
	}
}

// FailureReasonForError maps an executor error to its reported reason.
func FailureReasonForError(err error) ToolFailureReason {
	var failure *ToolFailure
	if errors.As(err, &failure) {
		return failure.Reason
	}
	return ToolFailureReasonExecutorError
}
