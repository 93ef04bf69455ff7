package settings

import (
	"context"
	"sync"
)

// MemoryStore keeps settings in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[Scope]map[string]string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[Scope]map[string]string)}
}

func (m *MemoryStore) GetValue(_ context.Context, key string, scope Scope) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[scope][key]
	return v, ok, nil
}

func (m *MemoryStore) SetValue(_ context.Context, key, value string, scope Scope) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[scope] == nil {
		m.values[scope] = make(map[string]string)
	}
	m.values[scope][key] = value
	return value, nil
}
