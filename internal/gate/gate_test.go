package gate_test

import (
	"context"
	"strings"
	"testing"

	"github.com/organize-agent/organize/internal/agent"
	"github.com/organize-agent/organize/internal/gate"
)

type executorSpy struct {
	calls []agent.ToolCall
}

func (s *executorSpy) Execute(_ context.Context, call agent.ToolCall) (agent.ToolResult, error) {
	s.calls = append(s.calls, agent.CloneToolCall(call))
	return agent.ToolResult{CallID: call.ID, Name: call.Name, Content: "executed"}, nil
}

type simulatorSpy struct {
	calls []agent.ToolCall
}

func (s *simulatorSpy) Simulate(call agent.ToolCall) (agent.ToolResult, error) {
	s.calls = append(s.calls, agent.CloneToolCall(call))
	return agent.ToolResult{CallID: call.ID, Name: call.Name, Content: "simulated", Simulated: true}, nil
}

func testTools() []agent.ToolDefinition {
	return []agent.ToolDefinition{
		{Name: "list_directory"},
		{Name: "create_folder", Mutating: true},
		{Name: "move_file", Mutating: true},
	}
}

func TestExecute_ReadOnlyBypassesGate(t *testing.T) {
	t.Parallel()

	next := &executorSpy{}
	simulator := &simulatorSpy{}
	checkpoint, err := gate.New(gate.Config{
		Mode:      agent.ModeDryRun,
		Next:      next,
		Simulator: simulator,
		Tools:     testTools(),
	})
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}

	result, err := checkpoint.Execute(context.Background(), agent.ToolCall{
		ID:   "call-1",
		Name: "list_directory",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Simulated {
		t.Fatalf("read-only calls must execute for real, even in dry-run mode")
	}
	if len(next.calls) != 1 || len(simulator.calls) != 0 {
		t.Fatalf("unexpected routing: next=%d simulator=%d", len(next.calls), len(simulator.calls))
	}
}

func TestExecute_DryRunSimulatesMutations(t *testing.T) {
	t.Parallel()

	next := &executorSpy{}
	simulator := &simulatorSpy{}
	checkpoint, err := gate.New(gate.Config{
		Mode:      agent.ModeDryRun,
		Next:      next,
		Simulator: simulator,
		Tools:     testTools(),
	})
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}

	result, err := checkpoint.Execute(context.Background(), agent.ToolCall{
		ID:        "call-1",
		Name:      "move_file",
		Arguments: map[string]any{"source": "a.txt", "destination": "docs/a.txt"},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Simulated {
		t.Fatalf("dry-run result should be tagged simulated: %+v", result)
	}
	if len(next.calls) != 0 {
		t.Fatalf("the real executor must never run in dry-run mode")
	}
	if len(simulator.calls) != 1 {
		t.Fatalf("unexpected simulator call count: %d", len(simulator.calls))
	}
}

func TestExecute_LiveConfirmYes(t *testing.T) {
	t.Parallel()

	next := &executorSpy{}
	var promptText strings.Builder
	checkpoint, err := gate.New(gate.Config{
		Mode:     agent.ModeLive,
		Next:     next,
		Prompter: gate.NewTerminalPrompter(strings.NewReader("y\n"), &promptText),
		Tools:    testTools(),
	})
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}

	result, err := checkpoint.Execute(context.Background(), agent.ToolCall{
		ID:        "call-1",
		Name:      "create_folder",
		Arguments: map[string]any{"path": "docs"},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.IsError {
		t.Fatalf("approved call should execute: %+v", result)
	}
	if len(next.calls) != 1 {
		t.Fatalf("unexpected executor call count: %d", len(next.calls))
	}
	if !strings.Contains(promptText.String(), "create_folder") || !strings.Contains(promptText.String(), `path="docs"`) {
		t.Fatalf("prompt should name the tool and arguments: %q", promptText.String())
	}
}

func TestExecute_LiveConfirmNo(t *testing.T) {
	t.Parallel()

	next := &executorSpy{}
	checkpoint, err := gate.New(gate.Config{
		Mode:     agent.ModeLive,
		Next:     next,
		Prompter: gate.NewTerminalPrompter(strings.NewReader("n\n"), &strings.Builder{}),
		Tools:    testTools(),
	})
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}

	result, err := checkpoint.Execute(context.Background(), agent.ToolCall{
		ID:        "call-1",
		Name:      "move_file",
		Arguments: map[string]any{"source": "a.txt", "destination": "docs/a.txt"},
	})
	if err != nil {
		t.Fatalf("a decline is a tool error, not an execution error: %v", err)
	}
	if !result.IsError || result.FailureReason != agent.ToolFailureReasonUserDeclined {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(next.calls) != 0 {
		t.Fatalf("declined call must not execute")
	}
}

func TestExecute_AutoApproveSkipsPrompt(t *testing.T) {
	t.Parallel()

	next := &executorSpy{}
	checkpoint, err := gate.New(gate.Config{
		Mode:        agent.ModeLive,
		Next:        next,
		AutoApprove: true,
		Tools:       testTools(),
	})
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}

	result, err := checkpoint.Execute(context.Background(), agent.ToolCall{
		ID:        "call-1",
		Name:      "create_folder",
		Arguments: map[string]any{"path": "docs"},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.IsError || len(next.calls) != 1 {
		t.Fatalf("auto-approved call should execute: %+v", result)
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := gate.New(gate.Config{Mode: agent.ModeDryRun, Next: &executorSpy{}}); err == nil {
		t.Fatalf("dry-run mode requires a simulator")
	}
	if _, err := gate.New(gate.Config{Mode: agent.ModeLive, Next: &executorSpy{}}); err == nil {
		t.Fatalf("live mode requires a prompter")
	}
	if _, err := gate.New(gate.Config{Mode: agent.ModeLive, Prompter: gate.NewTerminalPrompter(strings.NewReader(""), &strings.Builder{})}); err == nil {
		t.Fatalf("a next executor is required")
	}
}

func TestTerminalPrompter_Answers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{input: "y\n", want: true},
		{input: "yes\n", want: true},
		{input: "Y\n", want: true},
		{input: "n\n", want: false},
		{input: "no\n", want: false},
		{input: "\n", want: false},
		{input: "", want: false}, // EOF declines
	}

	for _, tt := range tests {
		prompter := gate.NewTerminalPrompter(strings.NewReader(tt.input), &strings.Builder{})
		got, err := prompter.Confirm(context.Background(), "move_file")
		if err != nil {
			t.Fatalf("confirm(%q): %v", tt.input, err)
		}
		if got != tt.want {
			t.Fatalf("confirm(%q): got=%t want=%t", tt.input, got, tt.want)
		}
	}
}
