package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore keeps the encoded state in memory. Encoding on every save
// gives callers the same copy semantics as SQLiteStore.
type MemoryStore struct {
	mu    sync.RWMutex
	data  []byte
	saves int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := NewState()
	if m.data == nil {
		return st, nil
	}
	if err := json.Unmarshal(m.data, st); err != nil {
		return nil, fmt.Errorf("Load: decode state: %w", err)
	}
	return st, nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, st *State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("Save: encode state: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = raw
	m.saves++
	return nil
}

// Saves reports how many times Save succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	return nil
}
