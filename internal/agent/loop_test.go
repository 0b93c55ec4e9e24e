package agent_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/organize-agent/organize/internal/agent"
	eventinginmem "github.com/organize-agent/organize/internal/eventing/inmem"
	"github.com/organize-agent/organize/internal/modeltest"
)

type executorFunc func(ctx context.Context, call agent.ToolCall) (agent.ToolResult, error)

func (f executorFunc) Execute(ctx context.Context, call agent.ToolCall) (agent.ToolResult, error) {
	return f(ctx, call)
}

func echoExecutor(t *testing.T) (agent.ToolExecutor, *[]agent.ToolCall) {
	t.Helper()
	calls := &[]agent.ToolCall{}
	executor := executorFunc(func(_ context.Context, call agent.ToolCall) (agent.ToolResult, error) {
		*calls = append(*calls, agent.CloneToolCall(call))
		return agent.ToolResult{
			CallID:  call.ID,
			Name:    call.Name,
			Content: fmt.Sprintf("ok:%s", call.ID),
		}, nil
	})
	return executor, calls
}

var listTool = agent.ToolDefinition{
	Name: "list_directory",
	InputSchema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string"},
		},
		"required": []any{"path"},
	},
}

func newRunState(t *testing.T) agent.RunState {
	t.Helper()
	return agent.NewRunState(agent.RunInput{
		RunID:        "run-1",
		Mode:         agent.ModeLive,
		SystemPrompt: "system",
		UserPrompt:   "organize /tmp/files",
	})
}

func TestLoopExecute_CompletesOnEndTurn(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel(modeltest.Response{
		Message: agent.Message{Content: "all tidy", StopReason: agent.StopReasonEndTurn},
	})
	executor, calls := echoExecutor(t)
	events := eventinginmem.New()
	loop, err := agent.NewLoop(model, executor, events)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	state, err := loop.Execute(context.Background(), newRunState(t), agent.LoopInput{
		MaxSteps: 3,
		Tools:    []agent.ToolDefinition{listTool},
	})
	if err != nil {
		t.Fatalf("execute returned error: %v", err)
	}
	if state.Status != agent.RunStatusCompleted {
		t.Fatalf("unexpected status: %s", state.Status)
	}
	if state.Output != "all tidy" {
		t.Fatalf("unexpected output: %q", state.Output)
	}
	if len(*calls) != 0 {
		t.Fatalf("executor should not have been called, got %d calls", len(*calls))
	}

	gotEvents := events.Events()
	wantTypes := []agent.EventType{
		agent.EventTypeRunStarted,
		agent.EventTypeAssistantMessage,
		agent.EventTypeRunCompleted,
	}
	if len(gotEvents) != len(wantTypes) {
		t.Fatalf("unexpected event count: got=%d want=%d", len(gotEvents), len(wantTypes))
	}
	for i := range wantTypes {
		if gotEvents[i].Type != wantTypes[i] {
			t.Fatalf("event[%d] type mismatch: got=%s want=%s", i, gotEvents[i].Type, wantTypes[i])
		}
	}
}

func TestLoopExecute_AnswersEveryToolCallInOrder(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel(
		modeltest.Response{
			Message: agent.Message{
				StopReason: agent.StopReasonToolUse,
				ToolCalls: []agent.ToolCall{
					{ID: "call-1", Name: "list_directory", Arguments: map[string]any{"path": "a"}},
					{ID: "call-2", Name: "list_directory", Arguments: map[string]any{"path": "b"}},
					{ID: "call-3", Name: "list_directory", Arguments: map[string]any{"path": "c"}},
				},
			},
		},
		modeltest.Response{
			Message: agent.Message{Content: "done", StopReason: agent.StopReasonEndTurn},
		},
	)
	executor, calls := echoExecutor(t)
	loop, err := agent.NewLoop(model, executor, nil)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	state, err := loop.Execute(context.Background(), newRunState(t), agent.LoopInput{
		MaxSteps: 3,
		Tools:    []agent.ToolDefinition{listTool},
	})
	if err != nil {
		t.Fatalf("execute returned error: %v", err)
	}

	wantOrder := []string{"call-1", "call-2", "call-3"}
	if len(*calls) != len(wantOrder) {
		t.Fatalf("unexpected executed call count: got=%d want=%d", len(*calls), len(wantOrder))
	}
	for i, want := range wantOrder {
		if (*calls)[i].ID != want {
			t.Fatalf("call[%d] executed out of order: got=%s want=%s", i, (*calls)[i].ID, want)
		}
	}

	// Every tool call is answered by exactly one tool turn, in call order,
	// before the next model request.
	var toolTurns []agent.Message
	for _, message := range state.Messages {
		if message.Role == agent.RoleTool {
			toolTurns = append(toolTurns, message)
		}
	}
	if len(toolTurns) != len(wantOrder) {
		t.Fatalf("unexpected tool turn count: got=%d want=%d", len(toolTurns), len(wantOrder))
	}
	for i, want := range wantOrder {
		if toolTurns[i].ToolCallID != want {
			t.Fatalf("tool turn[%d] answers wrong call: got=%s want=%s", i, toolTurns[i].ToolCallID, want)
		}
	}

	requests := model.Requests()
	if len(requests) != 2 {
		t.Fatalf("unexpected model request count: %d", len(requests))
	}
	secondRequest := requests[1].Messages
	if got := len(secondRequest); got != 6 {
		// system + user + assistant + three tool turns
		t.Fatalf("unexpected resubmitted transcript length: %d", got)
	}
}

func TestLoopExecute_InvalidArgumentsReportedAsToolError(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel(
		modeltest.Response{
			Message: agent.Message{
				StopReason: agent.StopReasonToolUse,
				ToolCalls: []agent.ToolCall{
					{ID: "call-1", Name: "list_directory", Arguments: map[string]any{"wrong": "x"}},
				},
			},
		},
		modeltest.Response{
			Message: agent.Message{Content: "adjusted", StopReason: agent.StopReasonEndTurn},
		},
	)
	executor, calls := echoExecutor(t)
	loop, err := agent.NewLoop(model, executor, nil)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	state, err := loop.Execute(context.Background(), newRunState(t), agent.LoopInput{
		MaxSteps: 3,
		Tools:    []agent.ToolDefinition{listTool},
	})
	if err != nil {
		t.Fatalf("execute returned error: %v", err)
	}
	if state.Status != agent.RunStatusCompleted {
		t.Fatalf("unexpected status: %s", state.Status)
	}
	if len(*calls) != 0 {
		t.Fatalf("invalid arguments must not reach the executor, got %d calls", len(*calls))
	}

	var toolTurn *agent.Message
	for i := range state.Messages {
		if state.Messages[i].Role == agent.RoleTool {
			toolTurn = &state.Messages[i]
			break
		}
	}
	if toolTurn == nil {
		t.Fatalf("expected a tool error turn in the transcript")
	}
	if !toolTurn.IsError {
		t.Fatalf("tool turn should be marked as error: %+v", toolTurn)
	}
}

func TestLoopExecute_ExecutorFailureIsRecoverable(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel(
		modeltest.Response{
			Message: agent.Message{
				StopReason: agent.StopReasonToolUse,
				ToolCalls: []agent.ToolCall{
					{ID: "call-1", Name: "list_directory", Arguments: map[string]any{"path": "missing"}},
				},
			},
		},
		modeltest.Response{
			Message: agent.Message{Content: "giving up on missing", StopReason: agent.StopReasonEndTurn},
		},
	)
	executor := executorFunc(func(_ context.Context, call agent.ToolCall) (agent.ToolResult, error) {
		return agent.ToolResult{}, agent.NewToolFailure(agent.ToolFailureReasonNotFound,
			errors.New("directory does not exist"))
	})
	loop, err := agent.NewLoop(model, executor, nil)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	state, err := loop.Execute(context.Background(), newRunState(t), agent.LoopInput{
		MaxSteps: 3,
		Tools:    []agent.ToolDefinition{listTool},
	})
	if err != nil {
		t.Fatalf("not-found must not abort the run: %v", err)
	}
	if state.Status != agent.RunStatusCompleted {
		t.Fatalf("unexpected status: %s", state.Status)
	}
}

func TestLoopExecute_UnknownToolRepeatedFailsRun(t *testing.T) {
	t.Parallel()

	badTurn := modeltest.Response{
		Message: agent.Message{
			StopReason: agent.StopReasonToolUse,
			ToolCalls: []agent.ToolCall{
				{ID: "call-1", Name: "delete_everything", Arguments: map[string]any{}},
			},
		},
	}
	model := modeltest.NewScriptedModel(badTurn, badTurn)
	executor, calls := echoExecutor(t)
	loop, err := agent.NewLoop(model, executor, nil)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	state, err := loop.Execute(context.Background(), newRunState(t), agent.LoopInput{
		MaxSteps: 5,
		Tools:    []agent.ToolDefinition{listTool},
	})
	if !errors.Is(err, agent.ErrRepeatedProtocolFault) {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Status != agent.RunStatusFailed {
		t.Fatalf("unexpected status: %s", state.Status)
	}
	if len(*calls) != 0 {
		t.Fatalf("unknown tool must never execute, got %d calls", len(*calls))
	}
}

func TestLoopExecute_EmptyResponseFaultThenRecovery(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel(
		modeltest.Response{Message: agent.Message{StopReason: agent.StopReasonEndTurn}},
		modeltest.Response{Message: agent.Message{Content: "recovered", StopReason: agent.StopReasonEndTurn}},
	)
	executor, _ := echoExecutor(t)
	loop, err := agent.NewLoop(model, executor, nil)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	state, err := loop.Execute(context.Background(), newRunState(t), agent.LoopInput{
		MaxSteps: 3,
		Tools:    []agent.ToolDefinition{listTool},
	})
	if err != nil {
		t.Fatalf("one malformed turn must be recoverable: %v", err)
	}
	if state.Status != agent.RunStatusCompleted {
		t.Fatalf("unexpected status: %s", state.Status)
	}
	if state.Output != "recovered" {
		t.Fatalf("unexpected output: %q", state.Output)
	}
}

func TestLoopExecute_RepeatedEmptyResponseFailsRun(t *testing.T) {
	t.Parallel()

	empty := modeltest.Response{Message: agent.Message{StopReason: agent.StopReasonEndTurn}}
	model := modeltest.NewScriptedModel(empty, empty)
	executor, _ := echoExecutor(t)
	loop, err := agent.NewLoop(model, executor, nil)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	state, err := loop.Execute(context.Background(), newRunState(t), agent.LoopInput{
		MaxSteps: 5,
		Tools:    []agent.ToolDefinition{listTool},
	})
	if !errors.Is(err, agent.ErrRepeatedProtocolFault) {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Status != agent.RunStatusFailed {
		t.Fatalf("unexpected status: %s", state.Status)
	}
}

func TestLoopExecute_MaxStepsExceeded(t *testing.T) {
	t.Parallel()

	toolTurn := modeltest.Response{
		Message: agent.Message{
			StopReason: agent.StopReasonToolUse,
			ToolCalls: []agent.ToolCall{
				{ID: "call-1", Name: "list_directory", Arguments: map[string]any{"path": "."}},
			},
		},
	}
	model := modeltest.NewScriptedModel(toolTurn, toolTurn, toolTurn)
	executor, _ := echoExecutor(t)
	loop, err := agent.NewLoop(model, executor, nil)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	state, err := loop.Execute(context.Background(), newRunState(t), agent.LoopInput{
		MaxSteps: 2,
		Tools:    []agent.ToolDefinition{listTool},
	})
	if !errors.Is(err, agent.ErrMaxStepsExceeded) {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Status != agent.RunStatusMaxStepsExceeded {
		t.Fatalf("unexpected status: %s", state.Status)
	}
	if state.Step != 2 {
		t.Fatalf("unexpected step count: %d", state.Step)
	}
}

func TestLoopExecute_ModelErrorFailsRun(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel(modeltest.Response{Err: errors.New("boom")})
	executor, _ := echoExecutor(t)
	loop, err := agent.NewLoop(model, executor, nil)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	state, err := loop.Execute(context.Background(), newRunState(t), agent.LoopInput{
		MaxSteps: 3,
		Tools:    []agent.ToolDefinition{listTool},
	})
	if err == nil {
		t.Fatalf("expected an error")
	}
	if state.Status != agent.RunStatusFailed {
		t.Fatalf("unexpected status: %s", state.Status)
	}
	if state.Error == "" {
		t.Fatalf("state error should be recorded")
	}
}
