package gcsuploader

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/tax-tracker/internal/clock"
	"github.com/google/uuid"
)

// MemoryArchive keeps documents in memory. It backs local runs without a
// bucket and tests.
type MemoryArchive struct {
	mu    sync.RWMutex
	objs  map[string][]byte
	clock clock.Clock
}

// NewMemoryArchive returns an empty archive.
func NewMemoryArchive(clk clock.Clock) *MemoryArchive {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &MemoryArchive{objs: make(map[string][]byte), clock: clk}
}

// Put implements Archive. URIs use the mem:// scheme.
func (m *MemoryArchive) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	uri := "mem://" + ObjectName("uploads", m.clock.Now(), uuid.NewString(), name)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objs[uri] = append([]byte(nil), data...)
	return uri, nil
}

// Get implements Archive.
func (m *MemoryArchive) Get(_ context.Context, uri string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objs[uri]
	if !ok {
		return nil, fmt.Errorf("Get: %s: %w", uri, ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// Len reports how many documents are stored.
func (m *MemoryArchive) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objs)
}
