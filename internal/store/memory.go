package store

import (
	"context"
	"sync"
)

// memoryBackend keeps encoded records in maps. Records are stored as bytes
// so callers never share memory with the store.
type memoryBackend struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewMemoryStore returns an in-process store for tests and single-node runs.
func NewMemoryStore() Store {
	return &recordStore{b: &memoryBackend{data: make(map[string]map[string][]byte)}}
}

func (m *memoryBackend) load(_ context.Context, kind, id string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[kind][id]
	return data, ok, nil
}

func (m *memoryBackend) list(_ context.Context, kind string) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]byte, 0, len(m.data[kind]))
	for _, data := range m.data[kind] {
		out = append(out, data)
	}
	return out, nil
}

func (m *memoryBackend) commit(_ context.Context, recs []record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		byID, ok := m.data[r.kind]
		if !ok {
			byID = make(map[string][]byte)
			m.data[r.kind] = byID
		}
		byID[r.id] = r.data
	}
	return nil
}

func (m *memoryBackend) close() error { return nil }
