// Package subscription persists subscriptions, one row per user.
package subscription

import (
	"context"
	"sync"

	"shahid/internal/payments/models"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/sentinel"
)

// MemoryStore backs tests and demo mode.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[id.SubscriptionID]*models.Subscription
	byUser map[id.UserID]id.SubscriptionID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[id.SubscriptionID]*models.Subscription),
		byUser: make(map[id.UserID]id.SubscriptionID),
	}
}

func (s *MemoryStore) Create(ctx context.Context, sub *models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUser[sub.UserID]; exists {
		return sentinel.ErrConflict
	}
	clone := cloneSub(sub)
	s.byID[sub.ID] = clone
	s.byUser[sub.UserID] = sub.ID
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, subID id.SubscriptionID) (*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.byID[subID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneSub(sub), nil
}

func (s *MemoryStore) FindByUser(ctx context.Context, userID id.UserID) (*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subID, ok := s.byUser[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneSub(s.byID[subID]), nil
}

func (s *MemoryStore) FindByProviderRef(ctx context.Context, gateway, providerRef string) (*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.byID {
		if sub.Gateway == gateway && sub.ProviderRef == providerRef {
			return cloneSub(sub), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) Execute(ctx context.Context, subID id.SubscriptionID, validate func(*models.Subscription) error, mutate func(*models.Subscription)) (*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.byID[subID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	working := cloneSub(sub)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.byID[subID] = working

	return cloneSub(working), nil
}

func cloneSub(sub *models.Subscription) *models.Subscription {
	clone := *sub
	if sub.CancelledAt != nil {
		cancelled := *sub.CancelledAt
		clone.CancelledAt = &cancelled
	}
	return &clone
}
