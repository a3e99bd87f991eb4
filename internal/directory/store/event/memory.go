// Package event provides the directory event stores.
package event

import (
	"context"
	"sort"
	"sync"

	"shahid/internal/directory/models"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/sentinel"
)

// ListFilter narrows event listings.
type ListFilter struct {
	Status *models.DirectoryStatus
	Limit  int
	Offset int
}

// MemoryStore keeps events in a map guarded by a mutex.
type MemoryStore struct {
	mu     sync.Mutex
	events map[id.EventID]*models.Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[id.EventID]*models.Event)}
}

func cloneEvent(e *models.Event) *models.Event {
	clone := *e
	clone.ParticipantIDs = append([]id.PersonID(nil), e.ParticipantIDs...)
	clone.JournalistIDs = append([]id.UserID(nil), e.JournalistIDs...)
	return &clone
}

func (s *MemoryStore) Create(ctx context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; ok {
		return sentinel.ErrConflict
	}
	s.events[event.ID] = cloneEvent(event)
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneEvent(event), nil
}

// List returns events newest first by event date.
func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*models.Event, 0, len(s.events))
	for _, e := range s.events {
		if filter.Status != nil && e.Status != *filter.Status {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Date.After(matched[j].Date)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if filter.Offset >= len(matched) {
		return nil, nil
	}
	end := filter.Offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]*models.Event, 0, end-filter.Offset)
	for _, e := range matched[filter.Offset:end] {
		out = append(out, cloneEvent(e))
	}
	return out, nil
}

func (s *MemoryStore) Execute(ctx context.Context, eventID id.EventID, validate func(*models.Event) error, mutate func(*models.Event)) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(event); err != nil {
		return nil, err
	}
	mutate(event)
	return cloneEvent(event), nil
}

func (s *MemoryStore) Delete(ctx context.Context, eventID id.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[eventID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.events, eventID)
	return nil
}
