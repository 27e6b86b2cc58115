package service

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger is a process-local RefreshLedger for tests and single
// instance development setups.
type MemoryLedger struct {
	mu       sync.Mutex
	consumed map[string]time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{consumed: make(map[string]time.Time)}
}

func (m *MemoryLedger) ConsumeRefreshToken(_ context.Context, jti, _, _ string, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, seen := m.consumed[jti]; seen {
		return false, nil
	}
	m.consumed[jti] = expiresAt
	return true, nil
}

// DeleteExpiredRefreshTokens forgets tokens that expired before the given
// instant; they can no longer be presented anyway.
func (m *MemoryLedger) DeleteExpiredRefreshTokens(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for jti, exp := range m.consumed {
		if exp.Before(before) {
			delete(m.consumed, jti)
			n++
		}
	}
	return n, nil
}

func (m *MemoryLedger) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.consumed)
}
