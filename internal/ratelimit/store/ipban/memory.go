// Package ipban persists admin-placed IP bans.
package ipban

import (
	"context"
	"sort"
	"sync"

	"shahid/internal/ratelimit/models"
	"shahid/pkg/platform/sentinel"
)

// MemoryStore keeps bans in a map keyed by address.
type MemoryStore struct {
	mu   sync.RWMutex
	bans map[string]*models.IPBan
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bans: make(map[string]*models.IPBan)}
}

func (s *MemoryStore) Create(ctx context.Context, ban *models.IPBan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bans[ban.IP]; exists {
		return sentinel.ErrConflict
	}
	clone := *ban
	s.bans[ban.IP] = &clone
	return nil
}

func (s *MemoryStore) FindByIP(ctx context.Context, ip string) (*models.IPBan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ban, ok := s.bans[ip]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *ban
	return &clone, nil
}

func (s *MemoryStore) Delete(ctx context.Context, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bans[ip]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.bans, ip)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*models.IPBan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bans := make([]*models.IPBan, 0, len(s.bans))
	for _, ban := range s.bans {
		clone := *ban
		bans = append(bans, &clone)
	}
	sort.Slice(bans, func(i, j int) bool {
		return bans[i].CreatedAt.After(bans[j].CreatedAt)
	})
	return bans, nil
}
