package credstore

import (
	"context"
	"sync"
)

// Memory is an in-process Store.
type Memory struct {
	mu    sync.RWMutex
	pair  TokenPair
	set   bool
	saves int
}

// NewMemory returns a Memory store, seeded with pair unless it is zero.
func NewMemory(pair TokenPair) *Memory {
	return &Memory{pair: pair, set: !pair.IsZero()}
}

func (m *Memory) Load(context.Context) (TokenPair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.set {
		return TokenPair{}, ErrNotFound
	}
	return m.pair, nil
}

func (m *Memory) Save(_ context.Context, pair TokenPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pair, m.set = pair, true
	m.saves++
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pair, m.set = TokenPair{}, false
	return nil
}

// Saves counts successful Save calls.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
