// Package method persists stored payment methods.
package method

import (
	"context"
	"sort"
	"sync"

	"shahid/internal/payments/models"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/sentinel"
)

// MemoryStore backs tests and demo mode.
type MemoryStore struct {
	mu      sync.RWMutex
	methods map[id.MethodID]*models.PaymentMethod
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{methods: make(map[id.MethodID]*models.PaymentMethod)}
}

func (s *MemoryStore) Create(ctx context.Context, method *models.PaymentMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *method
	s.methods[method.ID] = &clone
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, methodID id.MethodID) (*models.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	method, ok := s.methods[methodID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *method
	return &clone, nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var methods []*models.PaymentMethod
	for _, method := range s.methods {
		if method.UserID == userID {
			clone := *method
			methods = append(methods, &clone)
		}
	}
	sort.Slice(methods, func(i, j int) bool {
		return methods[i].CreatedAt.After(methods[j].CreatedAt)
	})
	return methods, nil
}

func (s *MemoryStore) Execute(ctx context.Context, methodID id.MethodID, validate func(*models.PaymentMethod) error, mutate func(*models.PaymentMethod)) (*models.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	method, ok := s.methods[methodID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	working := *method
	if err := validate(&working); err != nil {
		return nil, err
	}
	mutate(&working)
	s.methods[methodID] = &working

	clone := working
	return &clone, nil
}

// ClearDefault removes the default mark from every method of the user. Runs
// before setting a new default so at most one method carries the flag.
func (s *MemoryStore) ClearDefault(ctx context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, method := range s.methods {
		if method.UserID == userID {
			method.Default = false
		}
	}
	return nil
}
