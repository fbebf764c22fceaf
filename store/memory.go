package store

import (
	"fmt"
	"sync"

	"github.com/mwarner/userstore/schema"
)

// MemoryStore keeps the snapshot in memory only. Data is lost on
// restart. Safe for concurrent use; records are deep-copied at the API
// boundary so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	def     *schema.Definition
	records []Record
}

func NewMemoryStore(def *schema.Definition) *MemoryStore {
	return &MemoryStore{def: def, records: []Record{}}
}

func (m *MemoryStore) List() ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneAll(m.records), nil
}

func (m *MemoryStore) Create(rec Record) (Record, error) {
	rec, err := prepare(m.def, rec)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.records {
		if existing.ID() == rec.ID() {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, rec.ID())
		}
	}
	m.records = append(m.records, rec)
	return rec.Clone(), nil
}

func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, rec := range m.records {
		if rec.ID() == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrNotFound, id)
}

func (m *MemoryStore) Close() error {
	return nil
}
