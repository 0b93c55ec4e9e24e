package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultMaxSteps bounds the number of model turns per run. Each step is
// one remote call, so the ceiling is also the hard backstop against
// runaway request loops.
const DefaultMaxSteps = 12

// Loop drives the request/respond/execute/resubmit cycle:
// model -> tool calls -> tool results -> model -> ... until the model
// signals end_turn, a terminal fault occurs, or the step ceiling is hit.
//
// Tool calls within one assistant turn execute strictly in the order the
// model emitted them, and their results are appended in that same order,
// so the transcript remains a deterministic, replayable log.
type Loop struct {
	model  Model
	tools  ToolExecutor
	events EventSink
}

// LoopInput configures one execution.
type LoopInput struct {
	MaxSteps int
	Tools    []ToolDefinition
}

func NewLoop(model Model, tools ToolExecutor, events EventSink) (*Loop, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	if tools == nil {
		return nil, errors.New("tool executor is required")
	}
	if events == nil {
		events = noopEventSink{}
	}
	return &Loop{
		model:  model,
		tools:  tools,
		events: events,
	}, nil
}

func (l *Loop) Execute(ctx context.Context, state RunState, input LoopInput) (RunState, error) {
	maxSteps := input.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	definitions := indexToolDefinitions(input.Tools)

	if err := transitionRunStatus(&state, RunStatusRunning); err != nil {
		return state, err
	}
	_ = l.events.Publish(ctx, Event{
		RunID:       state.ID,
		Type:        EventTypeRunStarted,
		Description: fmt.Sprintf("mode=%s max_steps=%d", state.Mode, maxSteps),
	})

	// A protocol fault (unknown tool, malformed response) is reported back
	// to the model once so it can self-correct; the same fault signature on
	// the next turn means non-progress and fails the run.
	previousFaults := ""

	for state.Step < maxSteps {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return l.failRun(ctx, state, ctxErr)
		}
		state.Step++

		assistant, err := l.model.Generate(ctx, ModelRequest{
			Messages: CloneMessages(state.Messages),
			Tools:    CloneToolDefinitions(input.Tools),
		})
		if err != nil {
			return l.failRun(ctx, state, fmt.Errorf("model call: %w", err))
		}
		if assistant.Role == "" {
			assistant.Role = RoleAssistant
		}
		state.Messages = append(state.Messages, CloneMessage(assistant))
		_ = l.events.Publish(ctx, Event{
			RunID:   state.ID,
			Step:    state.Step,
			Type:    EventTypeAssistantMessage,
			Message: &assistant,
		})

		if len(assistant.ToolCalls) == 0 {
			fault, done := terminalOrFault(assistant)
			if done {
				if err := transitionRunStatus(&state, RunStatusCompleted); err != nil {
					return state, err
				}
				state.Output = assistant.Content
				_ = l.events.Publish(ctx, Event{
					RunID:       state.ID,
					Step:        state.Step,
					Type:        EventTypeRunCompleted,
					Description: "model signalled end of turn",
				})
				return state, nil
			}
			if fault == previousFaults {
				return l.failRun(ctx, state, fmt.Errorf("%w: %s", ErrRepeatedProtocolFault, fault))
			}
			previousFaults = fault
			state.Messages = append(state.Messages, Message{
				Role: RoleUser,
				Content: fmt.Sprintf(
					"The previous response was out of contract (%s). Reply with text or call one of the available tools.",
					fault,
				),
			})
			continue
		}

		turnFaults := make([]string, 0)
		for i := range assistant.ToolCalls {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return l.failRun(ctx, state, ctxErr)
			}
			call := assistant.ToolCalls[i]

			definition, defined := definitions[call.Name]
			var validationErr error
			if defined {
				validationErr = ValidateToolCallArguments(call, definition)
			}

			var result ToolResult
			switch {
			case !defined:
				result = ToolErrorResult(call, ToolFailureReasonUnknownTool,
					fmt.Errorf("tool %q is not defined", call.Name))
				turnFaults = append(turnFaults, "unknown_tool:"+call.Name)
			case validationErr != nil:
				result = ToolErrorResult(call, ToolFailureReasonInvalidArguments, validationErr)
			default:
				_ = l.events.Publish(ctx, Event{
					RunID:    state.ID,
					Step:     state.Step,
					Type:     EventTypeToolCall,
					ToolCall: &call,
				})
				executed, toolErr := l.tools.Execute(ctx, call)
				if toolErr != nil {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return l.failRun(ctx, state, ctxErr)
					}
					result = ToolErrorResult(call, FailureReasonForError(toolErr), toolErr)
				} else {
					result = executed
				}
			}
			if result.CallID == "" {
				result.CallID = call.ID
			}
			if result.Name == "" {
				result.Name = call.Name
			}

			state.Messages = append(state.Messages, ToolResultMessage(result))
			resultCopy := result
			_ = l.events.Publish(ctx, Event{
				RunID:      state.ID,
				Step:       state.Step,
				Type:       EventTypeToolResult,
				ToolResult: &resultCopy,
			})
		}

		signature := strings.Join(turnFaults, ",")
		if signature != "" && signature == previousFaults {
			return l.failRun(ctx, state, fmt.Errorf("%w: %s", ErrRepeatedProtocolFault, signature))
		}
		previousFaults = signature
	}

	if err := transitionRunStatus(&state, RunStatusMaxStepsExceeded); err != nil {
		return state, errors.Join(ErrMaxStepsExceeded, err)
	}
	state.Error = ErrMaxStepsExceeded.Error()
	_ = l.events.Publish(ctx, Event{
		RunID:       state.ID,
		Step:        state.Step,
		Type:        EventTypeRunFailed,
		Description: ErrMaxStepsExceeded.Error(),
	})
	return state, ErrMaxStepsExceeded
}

// terminalOrFault classifies an assistant turn without tool calls: either a
// clean end of the conversation or an out-of-contract response.
func terminalOrFault(assistant Message) (fault string, done bool) {
	hasText := strings.TrimSpace(assistant.Content) != ""
	switch assistant.StopReason {
	case StopReasonEndTurn, "":
		if hasText {
			return "", true
		}
		return "response had neither text nor tool calls", false
	case StopReasonToolUse:
		return "stop_reason was tool_use but no tool calls were present", false
	default:
		return fmt.Sprintf("unsupported stop_reason %q", assistant.StopReason), false
	}
}

func (l *Loop) failRun(ctx context.Context, state RunState, runErr error) (RunState, error) {
	if transitionErr := transitionRunStatus(&state, RunStatusFailed); transitionErr != nil {
		return state, errors.Join(runErr, transitionErr)
	}
	state.Error = runErr.Error()
	_ = l.events.Publish(ctx, Event{
		RunID:       state.ID,
		Step:        state.Step,
		Type:        EventTypeRunFailed,
		Description: runErr.Error(),
	})
	return state, runErr
}

type noopEventSink struct{}

func (noopEventSink) Publish(context.Context, Event) error {
	return nil
}
