// Package store defines the persistence contracts shared by the memory,
// SQLite and BigQuery backends.
package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-ingest/internal/domain"
)

var (
	// ErrNotFound is returned when a user-scoped record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicate is returned by CreateTransaction when the backend's unique
	// (user_id, transaction_reference) constraint rejects the row.
	ErrDuplicate = errors.New("store: duplicate transaction")
)

// TransactionRepository provides an interface for transaction persistence.
type TransactionRepository interface {
	// FindDuplicate reports whether any stored transaction of q.UserID
	// satisfies at least one of the conditions in q.
	FindDuplicate(ctx context.Context, q DuplicateQuery) (bool, error)

	// CreateTransaction inserts a single transaction.
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error

	// ListTransactions returns the user's transactions, newest first.
	ListTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]domain.Transaction, error)

	// DeleteTransaction removes a transaction owned by userID.
	DeleteTransaction(ctx context.Context, userID, id string) error
}

// AccountInfoRepository provides an interface for the per-user account snapshot.
type AccountInfoRepository interface {
	// UpsertAccountInfo replaces the snapshot for info.UserID.
	UpsertAccountInfo(ctx context.Context, info *domain.AccountInfo) error

	// GetAccountInfo returns ErrNotFound when the user has no snapshot.
	GetAccountInfo(ctx context.Context, userID string) (*domain.AccountInfo, error)
}

// Repository is what a storage backend provides.
type Repository interface {
	TransactionRepository
	AccountInfoRepository
	Close() error
}

// ContentMatch is the date + amount + description + type duplicate condition.
type ContentMatch struct {
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	Type        domain.TxType
}

// MomentMatch is the wallet-only date + time + amount duplicate condition.
type MomentMatch struct {
	Date   time.Time
	Time   string
	Amount decimal.Decimal
}

// DuplicateQuery is an OR of up to three conditions, scoped to one user.
// Nil or empty conditions are not evaluated.
type DuplicateQuery struct {
	UserID    string
	Reference string
	Content   *ContentMatch
	Moment    *MomentMatch
}

// Empty reports whether no condition survived.
func (q DuplicateQuery) Empty() bool {
	return q.Reference == "" && q.Content == nil && q.Moment == nil
}

// Matches evaluates q against a stored transaction. Backends that cannot push
// the predicate down use it directly.
func (q DuplicateQuery) Matches(tx domain.Transaction) bool {
	if tx.UserID != q.UserID {
		return false
	}
	if q.Reference != "" && tx.Reference == q.Reference {
		return true
	}
	if c := q.Content; c != nil &&
		sameDay(tx.Date, c.Date) &&
		tx.Amount.Equal(c.Amount) &&
		tx.Description == c.Description &&
		tx.Type == c.Type {
		return true
	}
	if m := q.Moment; m != nil &&
		sameDay(tx.Date, m.Date) &&
		tx.Time == m.Time &&
		tx.Amount.Equal(m.Amount) {
		return true
	}
	return false
}

// TransactionFilter narrows ListTransactions. Zero values mean no filter.
type TransactionFilter struct {
	From     *time.Time
	To       *time.Time
	Type     domain.TxType
	Category string
	Limit    int
}

// Matches applies every set field of f to tx.
func (f TransactionFilter) Matches(tx domain.Transaction) bool {
	if f.From != nil && tx.Date.Before(truncateDay(*f.From)) {
		return false
	}
	if f.To != nil && tx.Date.After(truncateDay(*f.To)) {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Category != "" && !strings.EqualFold(tx.Category, f.Category) {
		return false
	}
	return true
}

// SortNewestFirst orders by date, then time, then creation, all descending.
func SortNewestFirst(txs []domain.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.Time != b.Time {
			return a.Time > b.Time
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
