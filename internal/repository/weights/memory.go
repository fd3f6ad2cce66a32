package weights

import (
	"context"
	"maps"
	"sync"
)

// MemoryStore keeps the last saved table in process memory only.
type MemoryStore struct {
	mu    sync.Mutex
	table map[string]float64
}

// NewMemoryStore creates an ephemeral persister, optionally pre-seeded.
func NewMemoryStore(seed map[string]float64) *MemoryStore {
	return &MemoryStore{table: maps.Clone(seed)}
}

// LoadAll returns a copy of the last saved table.
func (m *MemoryStore) LoadAll(_ context.Context) (map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float64, len(m.table))
	maps.Copy(out, m.table)
	return out, nil
}

// SaveAll replaces the stored table with a copy.
func (m *MemoryStore) SaveAll(_ context.Context, table map[string]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.table = maps.Clone(table)
	return nil
}
