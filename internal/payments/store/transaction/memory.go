// Package transaction persists payment transactions.
package transaction

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
	mu           sync.RWMutex
	transactions map[id.TransactionID]*models.Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{transactions: make(map[id.TransactionID]*models.Transaction)}
}

func (s *MemoryStore) Create(ctx context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := cloneTx(tx)
	s.transactions[tx.ID] = clone
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, txID id.TransactionID) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[txID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneTx(tx), nil
}

// FindByProviderRef locates a transaction by the gateway's reference. Webhook
// deliveries identify transactions this way.
func (s *MemoryStore) FindByProviderRef(ctx context.Context, gateway, providerRef string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tx := range s.transactions {
		if tx.Gateway == gateway && tx.ProviderRef == providerRef {
			return cloneTx(tx), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID id.UserID, limit, offset int) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var txs []*models.Transaction
	for _, tx := range s.transactions {
		if tx.UserID == userID {
			txs = append(txs, cloneTx(tx))
		}
	}
	sort.Slice(txs, func(i, j int) bool {
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})

	if limit <= 0 {
		limit = 50
	}
	if offset >= len(txs) {
		return nil, nil
	}
	end := offset + limit
	if end > len(txs) {
		end = len(txs)
	}
	return txs[offset:end], nil
}

func (s *MemoryStore) Execute(ctx context.Context, txID id.TransactionID, validate func(*models.Transaction) error, mutate func(*models.Transaction)) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[txID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	working := cloneTx(tx)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.transactions[txID] = working

	return cloneTx(working), nil
}

func cloneTx(tx *models.Transaction) *models.Transaction {
	clone := *tx
	if tx.MethodID != nil {
		methodID := *tx.MethodID
		clone.MethodID = &methodID
	}
	if tx.CompletedAt != nil {
		completed := *tx.CompletedAt
		clone.CompletedAt = &completed
	}
	return &clone
}
