package cyclelog

import (
	"context"
	"sync"
)

// MemoryStore keeps records in a bounded ring. It backs the simulate command
// and deployments without history on disk.
type MemoryStore struct {
	mu   sync.RWMutex
	recs []Record
	max  int
}

// NewMemoryStore keeps at most limit records; zero means 10000.
func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = 10000
	}
	return &MemoryStore{max: limit}
}

func (m *MemoryStore) Append(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	if over := len(m.recs) - m.max; over > 0 {
		m.recs = append([]Record(nil), m.recs[over:]...)
	}
	return nil
}

func (m *MemoryStore) Query(_ context.Context, q Query) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []Record
	for _, r := range m.recs {
		if q.match(r) {
			res = append(res, r)
		}
	}
	return q.trim(res), nil
}

// All returns a copy of every stored record.
func (m *MemoryStore) All() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Record(nil), m.recs...)
}

func (m *MemoryStore) Close() error { return nil }
