// Package memory is an in-process store.Repository used by tests, the CLI
// and single-node deployments.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/store"
)

// Store keeps transactions and account snapshots in memory and is safe for
// concurrent use. Data is lost on restart.
type Store struct {
	mu       sync.RWMutex
	txs      map[string]*domain.Transaction // by ID
	refs     map[string]string              // user_id|reference -> ID
	accounts map[string]*domain.AccountInfo // by user ID
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		txs:      make(map[string]*domain.Transaction),
		refs:     make(map[string]string),
		accounts: make(map[string]*domain.AccountInfo),
	}
}

func refKey(userID, ref string) string {
	return userID + "|" + ref
}

// FindDuplicate implements store.TransactionRepository.
func (s *Store) FindDuplicate(ctx context.Context, q store.DuplicateQuery) (bool, error) {
	if q.Empty() {
		return false, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if q.Reference != "" {
		if _, ok := s.refs[refKey(q.UserID, q.Reference)]; ok {
			return true, nil
		}
	}
	for _, tx := range s.txs {
		if q.Matches(*tx) {
			return true, nil
		}
	}
	return false, nil
}

// CreateTransaction implements store.TransactionRepository. A second row with
// the same (user, reference) is rejected with store.ErrDuplicate.
func (s *Store) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("CreateTransaction: transaction ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.Reference != "" {
		key := refKey(tx.UserID, tx.Reference)
		if _, exists := s.refs[key]; exists {
			return store.ErrDuplicate
		}
		s.refs[key] = tx.ID
	}

	txCopy := *tx
	s.txs[tx.ID] = &txCopy
	return nil
}

// ListTransactions implements store.TransactionRepository.
func (s *Store) ListTransactions(ctx context.Context, userID string, filter store.TransactionFilter) ([]domain.Transaction, error) {
	s.mu.RLock()
	result := make([]domain.Transaction, 0)
	for _, tx := range s.txs {
		if tx.UserID != userID || !filter.Matches(*tx) {
			continue
		}
		result = append(result, *tx)
	}
	s.mu.RUnlock()

	store.SortNewestFirst(result)
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// DeleteTransaction implements store.TransactionRepository.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[id]
	if !ok || tx.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.txs, id)
	if tx.Reference != "" {
		delete(s.refs, refKey(userID, tx.Reference))
	}
	return nil
}

// UpsertAccountInfo implements store.AccountInfoRepository.
func (s *Store) UpsertAccountInfo(ctx context.Context, info *domain.AccountInfo) error {
	if info.UserID == "" {
		return fmt.Errorf("UpsertAccountInfo: user ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	infoCopy := *info
	s.accounts[info.UserID] = &infoCopy
	return nil
}

// GetAccountInfo implements store.AccountInfoRepository.
func (s *Store) GetAccountInfo(ctx context.Context, userID string) (*domain.AccountInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.accounts[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	infoCopy := *info
	return &infoCopy, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

var _ store.Repository = (*Store)(nil)
