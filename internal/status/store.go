// Package status holds the shared mapping from upload id to lifecycle state.
// The submission handler creates records, the worker loop mutates them, and
// the status handler reads them under arbitrary concurrent polling.
package status

import (
	"errors"
	"sync"
	"time"

	"filegate/internal/model"
)

// ErrNotFound is returned when an id was never issued.
var ErrNotFound = errors.New("upload not found")

// Store is the status store contract. It is injected into every component
// that needs it rather than accessed as ambient global state.
type Store interface {
	// Create inserts a record in StatePending. It happens synchronously in
	// the submission path, so a client can never observe an unknown id for an
	// id it was handed.
	Create(id string)
	// Get returns a copy of the record for id.
	Get(id string) (model.UploadRecord, error)
	// Set transitions the record to state; detail explains a failure and is
	// empty otherwise.
	Set(id string, state model.UploadState, detail string) error
}

// MemoryStore implements Store with an RWMutex-guarded map. Records are never
// evicted; the store does not survive a restart and neither does anything
// that references its ids.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*model.UploadRecord
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*model.UploadRecord)}
}

// Create inserts a pending record for id, replacing any previous entry.
func (m *MemoryStore) Create(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	m.records[id] = &model.UploadRecord{
		ID:        id,
		State:     model.StatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Get returns a copy so callers cannot mutate internal state.
func (m *MemoryStore) Get(id string) (model.UploadRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return model.UploadRecord{}, ErrNotFound
	}
	return *rec, nil
}

// Set updates the state and detail for id.
func (m *MemoryStore) Set(id string, state model.UploadState, detail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.State = state
	rec.ErrorDetail = detail
	rec.UpdatedAt = time.Now().UTC()
	return nil
}
