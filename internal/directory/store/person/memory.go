// Package person provides the directory person stores.
package person

import (
	"context"
	"sort"
	"sync"

	"shahid/internal/directory/models"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/sentinel"
)

// ListFilter narrows person listings.
type ListFilter struct {
	Status *models.DirectoryStatus
	Role   *models.PersonRole
	Limit  int
	Offset int
}

// MemoryStore keeps people in a map guarded by a mutex.
type MemoryStore struct {
	mu     sync.Mutex
	people map[id.PersonID]*models.Person
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{people: make(map[id.PersonID]*models.Person)}
}

func (s *MemoryStore) Create(ctx context.Context, person *models.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.people[person.ID]; ok {
		return sentinel.ErrConflict
	}
	clone := *person
	s.people[person.ID] = &clone
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, personID id.PersonID) (*models.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	person, ok := s.people[personID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *person
	return &clone, nil
}

func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]*models.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*models.Person, 0, len(s.people))
	for _, p := range s.people {
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.Role != nil && p.Role != *filter.Role {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Name < matched[j].Name
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

	out := make([]*models.Person, 0, end-filter.Offset)
	for _, p := range matched[filter.Offset:end] {
		clone := *p
		out = append(out, &clone)
	}
	return out, nil
}

func (s *MemoryStore) Execute(ctx context.Context, personID id.PersonID, validate func(*models.Person) error, mutate func(*models.Person)) (*models.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	person, ok := s.people[personID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(person); err != nil {
		return nil, err
	}
	mutate(person)
	clone := *person
	return &clone, nil
}

func (s *MemoryStore) Delete(ctx context.Context, personID id.PersonID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.people[personID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.people, personID)
	return nil
}
