// Package user provides the account stores: an in-memory implementation for
// tests and demo mode, and the Postgres implementation for production.
package user

import (
	"context"
	"sort"
	"strings"
	"sync"

	"shahid/internal/identity/models"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/sentinel"
)

// MemoryStore keeps users in maps guarded by a mutex. Usernames and emails
// are unique case-insensitively, matching the Postgres lower() unique indexes.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[id.UserID]*models.User
	byUsername map[string]id.UserID
	byEmail    map[string]id.UserID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[id.UserID]*models.User),
		byUsername: make(map[string]id.UserID),
		byEmail:    make(map[string]id.UserID),
	}
}

func usernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *MemoryStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := usernameKey(user.Username)
	if _, exists := s.byUsername[key]; exists {
		return sentinel.ErrConflict
	}
	emailIdx := emailKey(user.Email)
	if emailIdx != "" {
		if _, exists := s.byEmail[emailIdx]; exists {
			return sentinel.ErrConflict
		}
	}
	if _, exists := s.users[user.ID]; exists {
		return sentinel.ErrConflict
	}

	clone := *user
	s.users[user.ID] = &clone
	s.byUsername[key] = user.ID
	if emailIdx != "" {
		s.byEmail[emailIdx] = user.ID
	}
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byUsername[usernameKey(username)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.users[userID]
	return &clone, nil
}

// Execute validates and mutates a user while holding the store lock.
func (s *MemoryStore) Execute(ctx context.Context, userID id.UserID, validate func(*models.User) error, mutate func(*models.User)) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(user); err != nil {
		return nil, err
	}
	mutate(user)
	clone := *user
	return &clone, nil
}

// ListFilter narrows List. Nil fields match everything.
type ListFilter struct {
	Role   *models.Role
	Banned *bool
	Limit  int
	Offset int
}

func (f ListFilter) matches(u *models.User) bool {
	if f.Role != nil && u.Role != *f.Role {
		return false
	}
	if f.Banned != nil && u.Banned != *f.Banned {
		return false
	}
	return true
}

func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		if filter.matches(u) {
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	offset := filter.Offset
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + filter.Limit
	if end > len(all) {
		end = len(all)
	}

	out := make([]*models.User, 0, end-offset)
	for _, u := range all[offset:end] {
		clone := *u
		out = append(out, &clone)
	}
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byUsername, usernameKey(user.Username))
	if key := emailKey(user.Email); key != "" {
		delete(s.byEmail, key)
	}
	delete(s.users, userID)
	return nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}
