// Package retry bounds transient failures at the remote model boundary.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/organize-agent/organize/internal/agent"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second
)

// Config controls retry behavior for a wrapped model.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	ShouldRetry func(error) bool
}

// WrapModel decorates a model with bounded retries and exponential
// backoff: BaseDelay, then doubled per attempt. Context cancellation is
// never retried.
func WrapModel(model agent.Model, cfg Config) agent.Model {
	if model == nil {
		return nil
	}
	return &modelWrapper{
		next: model,
		cfg:  cfg,
	}
}

type modelWrapper struct {
	next agent.Model
	cfg  Config
}

func (w *modelWrapper) Generate(ctx context.Context, request agent.ModelRequest) (agent.Message, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return agent.Message{}, ctxErr
	}

	attempts := normalizedAttempts(w.cfg.MaxAttempts)
	delay := w.cfg.BaseDelay
	if delay <= 0 {
		delay = DefaultBaseDelay
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		message, err := w.next.Generate(ctx, request)
		if err == nil {
			return message, nil
		}
		lastErr = err
		if attempt == attempts || !shouldRetry(ctx, w.cfg, err) {
			break
		}
		if err := sleep(ctx, delay); err != nil {
			return agent.Message{}, err
		}
		delay *= 2
	}
	return agent.Message{}, lastErr
}

func normalizedAttempts(maxAttempts int) int {
	if maxAttempts < 1 {
		return DefaultMaxAttempts
	}
	return maxAttempts
}

func shouldRetry(ctx context.Context, cfg Config, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if cfg.ShouldRetry == nil {
		return true
	}
	return cfg.ShouldRetry(err)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
