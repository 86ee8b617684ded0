package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/store"
)

// BuildDuplicateQuery returns the OR of the duplicate conditions for tx.
// A condition is only included when all of its fields are set.
func BuildDuplicateQuery(tx domain.Transaction, bankType domain.BankType) store.DuplicateQuery {
	q := store.DuplicateQuery{UserID: tx.UserID, Reference: tx.Reference}

	if !tx.Date.IsZero() && !tx.Amount.IsZero() && tx.Description != "" && tx.Type != "" {
		q.Content = &store.ContentMatch{
			Date:        tx.Date,
			Amount:      tx.Amount,
			Description: tx.Description,
			Type:        tx.Type,
		}
	}
	if bankType == domain.BankWallet && !tx.Date.IsZero() && tx.Time != "" && !tx.Amount.IsZero() {
		q.Moment = &store.MomentMatch{Date: tx.Date, Time: tx.Time, Amount: tx.Amount}
	}
	return q
}

// DuplicateResolver writes a transaction unless the user already has it.
type DuplicateResolver struct {
	repo store.TransactionRepository
	log  zerolog.Logger
}

// NewDuplicateResolver creates a resolver over repo.
func NewDuplicateResolver(repo store.TransactionRepository, log zerolog.Logger) *DuplicateResolver {
	return &DuplicateResolver{repo: repo, log: log}
}

// WriteOrSkip reports written=false for a duplicate. A unique constraint
// violation on insert is treated as a duplicate too.
func (r *DuplicateResolver) WriteOrSkip(ctx context.Context, tx domain.Transaction, bankType domain.BankType) (bool, error) {
	q := BuildDuplicateQuery(tx, bankType)
	if !q.Empty() {
		found, err := r.repo.FindDuplicate(ctx, q)
		if err != nil {
			return false, fmt.Errorf("WriteOrSkip: finding duplicate: %w", err)
		}
		if found {
			r.log.Debug().
				Str("user_id", tx.UserID).
				Str("reference", tx.Reference).
				Msg("Skipping duplicate transaction")
			return false, nil
		}
	}

	err := r.repo.CreateTransaction(ctx, &tx)
	if errors.Is(err, store.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("WriteOrSkip: creating transaction: %w", err)
	}
	return true, nil
}
