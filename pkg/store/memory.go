package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
)

// MemoryStore keeps records in memory. Records are copied on the way in
// and out.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	closed  bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Create implements Store.
func (m *MemoryStore) Create(rec *Record) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRecord)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if _, ok := m.records[rec.ID]; ok {
		return fmt.Errorf("%w: %s", ErrExists, rec.ID)
	}

	stored := rec.Clone()
	stamp(stored, time.Now().UTC())
	m.records[rec.ID] = stored

	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	rec, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return rec.Clone(), nil
}

// Update implements Store.
func (m *MemoryStore) Update(id string, fn func(*Record) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	rec, ok := m.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := rec.Clone()

	err := fn(next)
	if err != nil {
		return err
	}

	next.ID = id
	stamp(next, time.Now().UTC())
	m.records[id] = next

	return nil
}

// AppendFindings implements Store.
func (m *MemoryStore) AppendFindings(id string, findings []finding.Finding) error {
	return m.Update(id, func(rec *Record) error {
		rec.Findings = append(rec.Findings, cloneFindings(findings)...)

		return nil
	})
}

// UpdateFinding implements Store.
func (m *MemoryStore) UpdateFinding(id string, number int, fn func(*finding.Finding) error) (finding.Finding, error) {
	return updateFinding(m, id, number, fn)
}

// List implements Store.
func (m *MemoryStore) List() ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec.Brief())
	}

	sortNewestFirst(out)

	return out, nil
}

// Ping implements Store.
func (m *MemoryStore) Ping() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}
