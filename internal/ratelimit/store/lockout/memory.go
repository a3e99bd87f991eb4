// Package lockout persists failed-login records keyed by identifier and
// source IP.
package lockout

import (
	"context"
	"sync"
	"time"

	"shahid/internal/ratelimit/models"
)

// MemoryStore keeps failure records in a map. Entries are dropped lazily on
// read once their TTL has passed.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*entry
}

type entry struct {
	record    models.FailureRecord
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*entry)}
}

// Get returns the record for a key, or nil when none exists.
func (s *MemoryStore) Get(ctx context.Context, key string) (*models.FailureRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	if time.Now().After(e.expiresAt) {
		delete(s.records, key)
		return nil, nil
	}
	record := e.record
	return &record, nil
}

// Put stores the record with a TTL covering the failure window plus any
// active lock.
func (s *MemoryStore) Put(ctx context.Context, key string, record *models.FailureRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = &entry{record: *record, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Delete removes a record, resetting the identifier's failure history.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}
