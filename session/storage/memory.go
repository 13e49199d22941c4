package storage

import (
	"maps"
	"sync"
)

const MemoryStoreName = "memory"

// MemoryStore is a process-local Store. Payloads are copied in and out so
// callers never share a map with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]any
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string]any),
	}
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, found := m.data[id]
	return found
}

func (m *MemoryStore) Get(id string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, found := m.data[id]
	if !found {
		return nil, ErrSessionNotFound
	}

	return maps.Clone(data), nil
}

func (m *MemoryStore) Save(id string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[id] = maps.Clone(data)
	return nil
}

func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, id)
	return nil
}

func (m *MemoryStore) Move(oldID, newID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, found := m.data[oldID]
	if !found {
		return ErrSessionNotFound
	}
	delete(m.data, oldID)
	m.data[newID] = data
	return nil
}
