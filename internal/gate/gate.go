// Package gate is the single checkpoint every mutating tool call passes
// through before it can touch the filesystem. Read-only calls bypass it.
package gate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/organize-agent/organize/internal/agent"
)

var (
	ErrNextExecutorRequired = errors.New("gate requires a next executor")
	ErrSimulatorRequired    = errors.New("gate requires a simulator in dry-run mode")
	ErrPrompterRequired     = errors.New("gate requires a prompter in live mode")
)

// Simulator produces the success-shaped result a mutating call would have
// returned, without executing it.
type Simulator interface {
	Simulate(call agent.ToolCall) (agent.ToolResult, error)
}

// Prompter blocks for the user's yes/no answer to a pending action.
type Prompter interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Config wires a Gate.
type Config struct {
	Mode        agent.Mode
	Next        agent.ToolExecutor
	Simulator   Simulator
	Prompter    Prompter
	AutoApprove bool
	Tools       []agent.ToolDefinition
	Logger      *slog.Logger
}

// Gate decorates the executor chain: list calls pass straight through,
// mutating calls are simulated in dry-run mode or confirmed by the user
// in live mode. No filesystem mutation happens without crossing it.
type Gate struct {
	mode        agent.Mode
	next        agent.ToolExecutor
	simulator   Simulator
	prompter    Prompter
	autoApprove bool
	mutating    map[string]bool
	logger      *slog.Logger
}

var _ agent.ToolExecutor = (*Gate)(nil)

func New(cfg Config) (*Gate, error) {
	if cfg.Next == nil {
		return nil, ErrNextExecutorRequired
	}
	if cfg.Mode == agent.ModeDryRun && cfg.Simulator == nil {
		return nil, ErrSimulatorRequired
	}
	if cfg.Mode != agent.ModeDryRun && !cfg.AutoApprove && cfg.Prompter == nil {
		return nil, ErrPrompterRequired
	}

	mutating := make(map[string]bool, len(cfg.Tools))
	for _, definition := range cfg.Tools {
		if definition.Mutating {
			mutating[definition.Name] = true
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Gate{
		mode:        cfg.Mode,
		next:        cfg.Next,
		simulator:   cfg.Simulator,
		prompter:    cfg.Prompter,
		autoApprove: cfg.AutoApprove,
		mutating:    mutating,
		logger:      logger,
	}, nil
}

func (g *Gate) Execute(ctx context.Context, call agent.ToolCall) (agent.ToolResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return agent.ToolResult{}, ctxErr
	}
	if !g.mutating[call.Name] {
		return g.next.Execute(ctx, call)
	}

	if g.mode == agent.ModeDryRun {
		g.logger.Debug("simulating mutating tool call", "tool", call.Name)
		return g.simulator.Simulate(call)
	}

	if !g.autoApprove {
		approved, err := g.prompter.Confirm(ctx, describeAction(call))
		if err != nil {
			return agent.ToolResult{}, fmt.Errorf("confirm %s: %w", call.Name, err)
		}
		if !approved {
			g.logger.Info("user declined tool call", "tool", call.Name)
			return agent.ToolErrorResult(call, agent.ToolFailureReasonUserDeclined,
				fmt.Errorf("user declined %s", call.Name)), nil
		}
	} else {
		g.logger.Info("auto-approving tool call", "tool", call.Name)
	}

	return g.next.Execute(ctx, call)
}

// describeAction renders the pending action for the confirmation prompt:
// tool name plus its arguments in a stable order.
func describeAction(call agent.ToolCall) string {
	keys := make([]string, 0, len(call.Arguments))
	for key := range call.Arguments {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		value := call.Arguments[key]
		if text, ok := value.(string); ok {
			parts = append(parts, fmt.Sprintf("%s=%q", key, text))
			continue
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			parts = append(parts, fmt.Sprintf("%s=%v", key, value))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", key, encoded))
	}
	return fmt.Sprintf("%s %s", call.Name, strings.Join(parts, " "))
}
