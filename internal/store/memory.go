package store

import (
	"context"
	"log/slog"
	"sync"
)

// MemoryStore is a Repository that keeps encoded state in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
	saves  int
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Load decodes the stored values.
func (m *MemoryStore) Load(_ context.Context) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return decodeState(m.values, slog.Default()), nil
}

// Save encodes and stores every present value.
func (m *MemoryStore) Save(_ context.Context, state *State) error {
	values, err := encodeState(state)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	m.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Ping always succeeds.
func (m *MemoryStore) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
