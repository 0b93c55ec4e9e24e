// Package modeltest provides a deterministic model adapter for tests.
package modeltest

import (
	"context"
	"fmt"
	"sync"

	"github.com/organize-agent/organize/internal/agent"
)

// Response configures one model turn in a scripted sequence.
type Response struct {
	Message agent.Message
	Err     error
}

// ScriptedModel returns its configured responses in order.
type ScriptedModel struct {
	mu        sync.Mutex
	index     int
	requests  []agent.ModelRequest
	responses []Response
}

func NewScriptedModel(responses ...Response) *ScriptedModel {
	cloned := make([]Response, len(responses))
	copy(cloned, responses)
	return &ScriptedModel{responses: cloned}
}

var _ agent.Model = (*ScriptedModel)(nil)

func (m *ScriptedModel) Generate(_ context.Context, request agent.ModelRequest) (agent.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, agent.ModelRequest{
		Messages: agent.CloneMessages(request.Messages),
		Tools:    agent.CloneToolDefinitions(request.Tools),
	})

	if m.index >= len(m.responses) {
		return agent.Message{}, fmt.Errorf("script exhausted at step %d", m.index+1)
	}
	current := m.responses[m.index]
	m.index++
	if current.Err != nil {
		return agent.Message{}, current.Err
	}

	message := agent.CloneMessage(current.Message)
	if message.Role == "" {
		message.Role = agent.RoleAssistant
	}
	return message, nil
}

// Requests returns every request the model has seen, in order.
func (m *ScriptedModel) Requests() []agent.ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]agent.ModelRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
