package organizer

import (
	"fmt"

	"github.com/organize-agent/organize/internal/agent"
)

// Simulate synthesizes the success result a mutating call would have
// produced, tagged as simulated, so the model can keep planning in
// dry-run mode without any filesystem change.
func (e *Executor) Simulate(call agent.ToolCall) (agent.ToolResult, error) {
	var (
		content string
		err     error
	)
	switch call.Name {
	case ToolCreateFolder:
		content, err = e.simulateCreateFolder(call.Arguments)
	case ToolMoveFile:
		content, err = e.simulateMoveFile(call.Arguments)
	default:
		return agent.ToolResult{}, fmt.Errorf("tool %q has no simulated form", call.Name)
	}
	if err != nil {
		return agent.ToolResult{}, err
	}
	return agent.ToolResult{
		CallID:    call.ID,
		Name:      call.Name,
		Content:   content,
		Simulated: true,
	}, nil
}

func (e *Executor) simulateCreateFolder(arguments map[string]any) (string, error) {
	path, err := stringArgument(arguments, "path")
	if err != nil {
		return "", err
	}
	resolved, err := e.policy.ResolvePath(path)
	if err != nil {
		return "", err
	}
	return marshalResult(map[string]any{
		"created":   true,
		"path":      resolved,
		"simulated": true,
	})
}

func (e *Executor) simulateMoveFile(arguments map[string]any) (string, error) {
	source, err := stringArgument(arguments, "source")
	if err != nil {
		return "", err
	}
	destination, err := stringArgument(arguments, "destination")
	if err != nil {
		return "", err
	}
	resolvedSource, err := e.policy.ResolvePath(source)
	if err != nil {
		return "", err
	}
	resolvedDestination, err := e.policy.ResolvePath(destination)
	if err != nil {
		return "", err
	}
	return marshalResult(map[string]any{
		"moved":       true,
		"source":      resolvedSource,
		"destination": resolvedDestination,
		"simulated":   true,
	})
}
