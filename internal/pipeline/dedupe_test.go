package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/store"
)

// mockTransactionRepository is a hand-written mock with overridable funcs.
type mockTransactionRepository struct {
	FindDuplicateFunc     func(ctx context.Context, q store.DuplicateQuery) (bool, error)
	CreateTransactionFunc func(ctx context.Context, tx *domain.Transaction) error
	created               []domain.Transaction
}

func (m *mockTransactionRepository) FindDuplicate(ctx context.Context, q store.DuplicateQuery) (bool, error) {
	if m.FindDuplicateFunc != nil {
		return m.FindDuplicateFunc(ctx, q)
	}
	return false, nil
}

func (m *mockTransactionRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	if m.CreateTransactionFunc != nil {
		if err := m.CreateTransactionFunc(ctx, tx); err != nil {
			return err
		}
	}
	m.created = append(m.created, *tx)
	return nil
}

func (m *mockTransactionRepository) ListTransactions(ctx context.Context, userID string, f store.TransactionFilter) ([]domain.Transaction, error) {
	return m.created, nil
}

func (m *mockTransactionRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	return nil
}

func sampleTx() domain.Transaction {
	return domain.Transaction{
		ID:          "t1",
		UserID:      "alice",
		Date:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Time:        "14:32:10",
		Description: "Transfer to John Smith",
		Type:        domain.TxDebit,
		Amount:      decimal.RequireFromString("5000"),
		Reference:   "OPAY-1",
	}
}

func TestBuildDuplicateQuery(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(tx *domain.Transaction)
		bankType    domain.BankType
		wantRef     bool
		wantContent bool
		wantMoment  bool
	}{
		{"wallet has all three", func(tx *domain.Transaction) {}, domain.BankWallet, true, true, true},
		{"traditional never uses moment", func(tx *domain.Transaction) {}, domain.BankTraditional, true, true, false},
		{"no reference", func(tx *domain.Transaction) { tx.Reference = "" }, domain.BankWallet, false, true, true},
		{"no time", func(tx *domain.Transaction) { tx.Time = "" }, domain.BankWallet, true, true, false},
		{"no description", func(tx *domain.Transaction) { tx.Description = "" }, domain.BankTraditional, true, false, false},
		{"zero amount drops amount conditions", func(tx *domain.Transaction) { tx.Amount = decimal.Zero }, domain.BankWallet, true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := sampleTx()
			tt.mutate(&tx)
			q := BuildDuplicateQuery(tx, tt.bankType)

			if q.UserID != "alice" {
				t.Errorf("UserID = %q", q.UserID)
			}
			if (q.Reference != "") != tt.wantRef {
				t.Errorf("reference = %q, want present=%v", q.Reference, tt.wantRef)
			}
			if (q.Content != nil) != tt.wantContent {
				t.Errorf("content = %+v, want present=%v", q.Content, tt.wantContent)
			}
			if (q.Moment != nil) != tt.wantMoment {
				t.Errorf("moment = %+v, want present=%v", q.Moment, tt.wantMoment)
			}
		})
	}
}

func TestDuplicateResolver_WriteOrSkip(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		repo        *mockTransactionRepository
		wantWritten bool
		wantErr     bool
	}{
		{
			name:        "new transaction is written",
			repo:        &mockTransactionRepository{},
			wantWritten: true,
		},
		{
			name: "existing match is skipped",
			repo: &mockTransactionRepository{
				FindDuplicateFunc: func(ctx context.Context, q store.DuplicateQuery) (bool, error) { return true, nil },
			},
		},
		{
			name: "unique violation counts as skipped",
			repo: &mockTransactionRepository{
				CreateTransactionFunc: func(ctx context.Context, tx *domain.Transaction) error { return store.ErrDuplicate },
			},
		},
		{
			name: "lookup failure",
			repo: &mockTransactionRepository{
				FindDuplicateFunc: func(ctx context.Context, q store.DuplicateQuery) (bool, error) {
					return false, errors.New("db down")
				},
			},
			wantErr: true,
		},
		{
			name: "write failure",
			repo: &mockTransactionRepository{
				CreateTransactionFunc: func(ctx context.Context, tx *domain.Transaction) error { return errors.New("disk full") },
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewDuplicateResolver(tt.repo, zerolog.Nop())
			written, err := r.WriteOrSkip(ctx, sampleTx(), domain.BankWallet)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if written != tt.wantWritten {
				t.Errorf("written = %v, want %v", written, tt.wantWritten)
			}
			if got := len(tt.repo.created) == 1; got != tt.wantWritten {
				t.Errorf("created %d rows, want written=%v", len(tt.repo.created), tt.wantWritten)
			}
		})
	}
}
