package store

import (
	"context"
	"maps"
	"sync"
)

// MemoryKV is an in-memory KV.
type MemoryKV struct {
	mu     sync.Mutex
	data   map[string]string
	closed bool
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

// Get implements KV.
func (m *MemoryKV) Get(_ context.Context, keys ...string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Set implements KV.
func (m *MemoryKV) Set(_ context.Context, items map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	maps.Copy(m.data, items)
	return nil
}

// Delete implements KV.
func (m *MemoryKV) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// Close implements KV.
func (m *MemoryKV) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// Snapshot returns a copy of the stored data.
func (m *MemoryKV) Snapshot() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.data)
}
