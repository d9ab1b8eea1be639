// Package memory is an in-process deal store for tests and single-node
// deployments without a database.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/AlexZinkM/escrow-custody/internal/model"
	"github.com/AlexZinkM/escrow-custody/internal/store"
)

// Store allocates indexes from an atomic counter starting at 0.
type Store struct {
	next atomic.Int64

	mu        sync.RWMutex
	deals     map[string]*model.Deal
	addresses map[string]string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		deals:     make(map[string]*model.Deal),
		addresses: make(map[string]string),
	}
}

// NextIndex returns a fresh account index. Concurrent callers never see
// the same value.
func (s *Store) NextIndex(ctx context.Context) (uint32, error) {
	n := s.next.Add(1) - 1
	if n >= store.MaxAccountIndex {
		return 0, store.IndexExhausted(n)
	}
	return uint32(n), nil
}

// SaveDeal records deal once. Reusing a deal id or address is a conflict.
func (s *Store) SaveDeal(ctx context.Context, deal *model.Deal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.deals[deal.ID]; ok {
		return store.Duplicate(deal.ID)
	}
	key := deal.Wallet.Asset.Family().String() + ":" + deal.Wallet.Address
	if _, ok := s.addresses[key]; ok {
		return store.Duplicate(deal.ID)
	}
	cp := *deal
	s.deals[deal.ID] = &cp
	s.addresses[key] = deal.ID
	return nil
}

// GetDeal returns a copy of the recorded deal.
func (s *Store) GetDeal(ctx context.Context, dealID string) (*model.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.deals[dealID]
	if !ok {
		return nil, store.NotFound(dealID)
	}
	cp := *d
	return &cp, nil
}

// MarkReleased records the transaction that settled the deal. A deal is
// released at most once.
func (s *Store) MarkReleased(ctx context.Context, dealID, txID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deals[dealID]
	if !ok {
		return store.NotFound(dealID)
	}
	if d.ReleasedTxID != "" {
		return store.AlreadyReleased(dealID, d.ReleasedTxID)
	}
	d.ReleasedTxID = txID
	return nil
}
