package fallback

import (
	"context"
	"sync"
)

// KV is the storage backend injected into the fallback store. Business logic
// never touches ambient storage directly; tests swap in MemoryKV.
type KV interface {
	// Get returns the value for key and whether the key exists
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores the value for key, overwriting any previous value
	Set(ctx context.Context, key, value string) error
	// Close releases backend resources
	Close() error
}

// MemoryKV is an in-memory KV backend for tests and the "memory" config option
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryKV creates an empty in-memory backend
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

// Get returns the stored value for key
func (m *MemoryKV) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	return value, ok, nil
}

// Set stores the value for key
func (m *MemoryKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = value
	return nil
}

// Close is a no-op for the in-memory backend
func (m *MemoryKV) Close() error {
	return nil
}
