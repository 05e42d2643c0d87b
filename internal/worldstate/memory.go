package worldstate

import (
	"context"
	"sync"
)

// MemState is an in-memory world state used by tests and the single-node
// dev runtime.
type MemState struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemState creates an empty in-memory world state
func NewMemState() *MemState {
	return &MemState{entries: make(map[string][]byte)}
}

func (m *MemState) GetState(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.entries[key]
	if !ok {
		return nil, nil
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *MemState) PutState(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.entries[key] = stored
	return nil
}

// PutStates applies all writes under a single lock acquisition
func (m *MemState) PutStates(_ context.Context, writes []Write) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range writes {
		stored := make([]byte, len(w.Value))
		copy(stored, w.Value)
		m.entries[w.Key] = stored
	}
	return nil
}

// Len returns the number of stored entries
func (m *MemState) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
