// Package idgen creates run identifiers.
package idgen

import (
	"context"

	"github.com/google/uuid"

	"github.com/organize-agent/organize/internal/agent"
)

// UUIDGenerator issues random run IDs with a stable prefix.
type UUIDGenerator struct {
	prefix string
}

func New(prefix string) *UUIDGenerator {
	if prefix == "" {
		prefix = "run"
	}
	return &UUIDGenerator{prefix: prefix}
}

var _ agent.IDGenerator = (*UUIDGenerator)(nil)

func (g *UUIDGenerator) NewRunID(_ context.Context) (agent.RunID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return agent.RunID(g.prefix + "-" + id.String()), nil
}
