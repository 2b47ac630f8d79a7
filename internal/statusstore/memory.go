package statusstore

import (
	"context"
	"sync"

	"github.com/Lllllllleong/documentdeletion/internal/models"
)

type memoryRecord struct {
	status  models.Status
	history []models.Status
	writes  []Update
}

// MemoryStore is an in-process Store. It keeps the status history of every record
// so callers can assert the exact transition sequence.
type MemoryStore struct {
	mu      sync.Mutex
	records map[models.DocumentKey]*memoryRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[models.DocumentKey]*memoryRecord)}
}

// Seed creates or resets a record with an initial status.
func (m *MemoryStore) Seed(key models.DocumentKey, initial models.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = &memoryRecord{status: initial, history: []models.Status{initial}}
}

func (m *MemoryStore) CompareAndSetStatus(_ context.Context, key models.DocumentKey, expected Precondition, update Update) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[key]
	if !ok || !expected.Allows(rec.status) {
		return false, nil
	}
	rec.status = update.Status
	rec.history = append(rec.history, update.Status)
	rec.writes = append(rec.writes, update)
	return true, nil
}

// Status returns the current status of key.
func (m *MemoryStore) Status(key models.DocumentKey) (models.Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return "", false
	}
	return rec.status, true
}

// History returns the seeded status followed by every applied status.
func (m *MemoryStore) History(key models.DocumentKey) []models.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return nil
	}
	return append([]models.Status(nil), rec.history...)
}

// Writes returns every update applied to key.
func (m *MemoryStore) Writes(key models.DocumentKey) []Update {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return nil
	}
	return append([]Update(nil), rec.writes...)
}
