// Package inmem captures loop events in memory for deterministic tests.
package inmem

import (
	"context"
	"sync"

	"github.com/organize-agent/organize/internal/agent"
)

// Sink buffers events and exposes snapshots.
type Sink struct {
	mu     sync.RWMutex
	events []agent.Event
}

var _ agent.EventSink = (*Sink)(nil)

func New() *Sink {
	return &Sink{events: make([]agent.Event, 0)}
}

func (s *Sink) Publish(ctx context.Context, event agent.Event) error {
	if ctx == nil {
		return agent.ErrContextNil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, agent.CloneEvent(event))
	return nil
}

// Events returns a deep copy of everything published so far.
func (s *Sink) Events() []agent.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]agent.Event, len(s.events))
	for i := range s.events {
		out[i] = agent.CloneEvent(s.events[i])
	}
	return out
}
