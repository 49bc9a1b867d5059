package state

import (
	"sort"
	"sync"
)

// MemoryStore is a Store for tests and embedders that do not need durability.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]RunRecord
	nextSeq int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]RunRecord)}
}

func (m *MemoryStore) Get(stepName string) (RunRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[stepName]
	return rec, ok, nil
}

func (m *MemoryStore) Put(rec RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.records[rec.StepName]; ok {
		rec.Seq = existing.Seq
	} else {
		rec.Seq = m.nextSeq
		m.nextSeq++
	}
	m.records[rec.StepName] = rec
	return nil
}

func (m *MemoryStore) Snapshot() ([]RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RunRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}
