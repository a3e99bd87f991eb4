// Package request provides the verification request stores.
package request

import (
	"context"
	"sort"
	"sync"

	"shahid/internal/verification/models"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/sentinel"
)

// MemoryStore keeps requests in maps guarded by a mutex. CreateIfNoneOpen
// enforces the one-open-request-per-user invariant.
type MemoryStore struct {
	mu       sync.Mutex
	requests map[id.RequestID]*models.Request
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[id.RequestID]*models.Request)}
}

// CreateIfNoneOpen inserts the request unless the user already has an open
// one, in which case it returns ErrConflict.
func (s *MemoryStore) CreateIfNoneOpen(ctx context.Context, request *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.requests {
		if existing.UserID == request.UserID && existing.Status.IsOpen() {
			return sentinel.ErrConflict
		}
	}
	clone := *request
	s.requests[request.ID] = &clone
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *request
	return &clone, nil
}

// ListByUser returns the user's requests, newest first.
func (s *MemoryStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Request
	for _, r := range s.requests {
		if r.UserID == userID {
			clone := *r
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// List returns requests filtered by status (empty matches all), oldest first
// so reviewers work the queue in order.
func (s *MemoryStore) List(ctx context.Context, status models.RequestStatus, limit, offset int) ([]*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*models.Request, 0, len(s.requests))
	for _, r := range s.requests {
		if status != "" && r.Status != status {
			continue
		}
		matched = append(matched, r)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	if limit <= 0 {
		limit = 50
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]*models.Request, 0, end-offset)
	for _, r := range matched[offset:end] {
		clone := *r
		out = append(out, &clone)
	}
	return out, nil
}

func (s *MemoryStore) Execute(ctx context.Context, requestID id.RequestID, validate func(*models.Request) error, mutate func(*models.Request)) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(request); err != nil {
		return nil, err
	}
	mutate(request)
	clone := *request
	return &clone, nil
}
