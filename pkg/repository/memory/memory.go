package memory

import (
	"context"
	"sync"
	"time"

	"github.com/secmon-lab/riskmatrix/pkg/domain/interfaces"
)

type Memory struct {
	risk *riskRepository

	mu       sync.RWMutex
	seededAt time.Time
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		risk: newRiskRepository(),
	}
}

func (m *Memory) Risk() interfaces.RiskRepository {
	return m.risk
}

func (m *Memory) MarkSeeded(ctx context.Context, version string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seededAt = at.UTC()
	return nil
}

func (m *Memory) SeededAt(ctx context.Context) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.seededAt, nil
}

func (m *Memory) Close() error {
	return nil
}
