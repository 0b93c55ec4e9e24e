// Package registry holds the static tool catalog: every tool the model may
// call, its input schema, and its handler binding. The catalog is built
// once at startup and never mutated afterwards.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/organize-agent/organize/internal/agent"
)

var (
	ErrToolUnregistered = errors.New("tool is not registered")
	ErrNilHandler       = errors.New("tool handler is nil")
	ErrToolNameEmpty    = errors.New("tool name is empty")
	ErrDuplicateTool    = errors.New("tool is registered twice")
)

// Handler executes business logic for one tool call and returns the
// result content the model will see.
type Handler func(ctx context.Context, arguments map[string]any) (string, error)

// Registry maps tool names to their definitions and handlers.
type Registry struct {
	definitions map[string]agent.ToolDefinition
	handlers    map[string]Handler
	ordered     []agent.ToolDefinition
}

// New builds the catalog. Every definition must have a non-empty unique
// name and a handler; there is no registration after construction.
func New(definitions []agent.ToolDefinition, handlers map[string]Handler) (*Registry, error) {
	r := &Registry{
		definitions: make(map[string]agent.ToolDefinition, len(definitions)),
		handlers:    make(map[string]Handler, len(definitions)),
		ordered:     agent.CloneToolDefinitions(definitions),
	}
	for _, definition := range r.ordered {
		if definition.Name == "" {
			return nil, ErrToolNameEmpty
		}
		if _, exists := r.definitions[definition.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTool, definition.Name)
		}
		handler, ok := handlers[definition.Name]
		if !ok || handler == nil {
			return nil, fmt.Errorf("%w: %q", ErrNilHandler, definition.Name)
		}
		r.definitions[definition.Name] = definition
		r.handlers[definition.Name] = handler
	}
	return r, nil
}

// Definitions returns the catalog in registration order.
func (r *Registry) Definitions() []agent.ToolDefinition {
	return agent.CloneToolDefinitions(r.ordered)
}

// Resolve returns the definition for a tool name.
func (r *Registry) Resolve(name string) (agent.ToolDefinition, error) {
	definition, ok := r.definitions[name]
	if !ok {
		return agent.ToolDefinition{}, fmt.Errorf("%w: %q", ErrToolUnregistered, name)
	}
	return definition, nil
}

// Validate checks arguments against the named tool's input schema.
func (r *Registry) Validate(name string, arguments map[string]any) error {
	definition, err := r.Resolve(name)
	if err != nil {
		return err
	}
	return agent.ValidateToolArguments(definition.InputSchema, arguments)
}

var _ agent.ToolExecutor = (*Registry)(nil)

// Execute dispatches one tool call to its handler.
func (r *Registry) Execute(ctx context.Context, call agent.ToolCall) (agent.ToolResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return agent.ToolResult{}, ctxErr
	}
	if call.Name == "" {
		return agent.ToolResult{}, fmt.Errorf("%w: call %q", ErrToolNameEmpty, call.ID)
	}
	handler, ok := r.handlers[call.Name]
	if !ok {
		return agent.ToolResult{}, fmt.Errorf("%w: %q", ErrToolUnregistered, call.Name)
	}

	content, err := handler(ctx, call.Arguments)
	if err != nil {
		return agent.ToolResult{}, err
	}
	return agent.ToolResult{
		CallID:  call.ID,
		Name:    call.Name,
		Content: content,
	}, nil
}
