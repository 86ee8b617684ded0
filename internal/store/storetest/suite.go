// Package storetest holds behaviour tests every store.Repository must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/store"
)

// Factory returns a fresh, empty repository.
type Factory func(t *testing.T) store.Repository

func day(s string) time.Time {
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewTransaction builds a valid transaction for tests.
func NewTransaction(id, user, date, desc, amount string, typ domain.TxType, ref string) *domain.Transaction {
	return &domain.Transaction{
		ID:          id,
		UserID:      user,
		Date:        day(date),
		Description: desc,
		Type:        typ,
		Amount:      decimal.RequireFromString(amount),
		Channel:     "Bank Statement Import",
		Reference:   ref,
		Category:    "Other",
		BankType:    domain.BankTraditional,
		CreatedAt:   time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Run executes the suite against repositories produced by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Run("DuplicateByReference", func(t *testing.T) { testDuplicateByReference(t, newRepo(t)) })
	t.Run("DuplicateByContent", func(t *testing.T) { testDuplicateByContent(t, newRepo(t)) })
	t.Run("DuplicateByMoment", func(t *testing.T) { testDuplicateByMoment(t, newRepo(t)) })
	t.Run("UniqueReference", func(t *testing.T) { testUniqueReference(t, newRepo(t)) })
	t.Run("ListFilters", func(t *testing.T) { testListFilters(t, newRepo(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newRepo(t)) })
	t.Run("AccountInfo", func(t *testing.T) { testAccountInfo(t, newRepo(t)) })
}

func mustCreate(t *testing.T, repo store.Repository, tx *domain.Transaction) {
	t.Helper()
	if err := repo.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("CreateTransaction(%s): %v", tx.ID, err)
	}
}

func mustFind(t *testing.T, repo store.Repository, q store.DuplicateQuery) bool {
	t.Helper()
	found, err := repo.FindDuplicate(context.Background(), q)
	if err != nil {
		t.Fatalf("FindDuplicate: %v", err)
	}
	return found
}

func testDuplicateByReference(t *testing.T, repo store.Repository) {
	mustCreate(t, repo, NewTransaction("t1", "alice", "2024-01-15", "POS Shoprite", "3000", domain.TxDebit, "FT123"))

	if !mustFind(t, repo, store.DuplicateQuery{UserID: "alice", Reference: "FT123"}) {
		t.Error("expected reference hit for owner")
	}
	if mustFind(t, repo, store.DuplicateQuery{UserID: "bob", Reference: "FT123"}) {
		t.Error("reference hit leaked across users")
	}
	if mustFind(t, repo, store.DuplicateQuery{UserID: "alice"}) {
		t.Error("empty query must not match")
	}
}

func testDuplicateByContent(t *testing.T, repo store.Repository) {
	mustCreate(t, repo, NewTransaction("t1", "alice", "2024-01-15", "POS Shoprite", "3000", domain.TxDebit, "R1"))

	q := store.DuplicateQuery{
		UserID:    "alice",
		Reference: "OTHER",
		Content: &store.ContentMatch{
			Date:        day("2024-01-15"),
			Amount:      decimal.RequireFromString("3000.00"),
			Description: "POS Shoprite",
			Type:        domain.TxDebit,
		},
	}
	if !mustFind(t, repo, q) {
		t.Error("expected content hit")
	}

	q.Content.Type = domain.TxCredit
	if mustFind(t, repo, q) {
		t.Error("content match must include type")
	}
}

func testDuplicateByMoment(t *testing.T, repo store.Repository) {
	tx := NewTransaction("t1", "alice", "2024-01-15", "Transfer to Ade", "500", domain.TxDebit, "R1")
	tx.Time = "14:32:10"
	mustCreate(t, repo, tx)

	q := store.DuplicateQuery{
		UserID: "alice",
		Moment: &store.MomentMatch{Date: day("2024-01-15"), Time: "14:32:10", Amount: decimal.RequireFromString("500")},
	}
	if !mustFind(t, repo, q) {
		t.Error("expected moment hit")
	}
	q.Moment.Time = "14:32:11"
	if mustFind(t, repo, q) {
		t.Error("moment match must include time")
	}
}

func testUniqueReference(t *testing.T, repo store.Repository) {
	mustCreate(t, repo, NewTransaction("t1", "alice", "2024-01-15", "A", "1", domain.TxDebit, "DUP"))

	err := repo.CreateTransaction(context.Background(),
		NewTransaction("t2", "alice", "2024-01-16", "B", "2", domain.TxDebit, "DUP"))
	if !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("err = %v, want store.ErrDuplicate", err)
	}

	// Same reference for another user is fine, as are rows without one.
	mustCreate(t, repo, NewTransaction("t3", "bob", "2024-01-15", "A", "1", domain.TxDebit, "DUP"))
	mustCreate(t, repo, NewTransaction("t4", "alice", "2024-01-17", "C", "3", domain.TxDebit, ""))
	mustCreate(t, repo, NewTransaction("t5", "alice", "2024-01-18", "D", "4", domain.TxDebit, ""))
}

func testListFilters(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	balance := decimal.RequireFromString("87500.5")

	t1 := NewTransaction("t1", "alice", "2024-01-10", "Jumia", "12500", domain.TxDebit, "R1")
	t1.Category = "Shopping"
	t1.BalanceAfter = &balance
	t2 := NewTransaction("t2", "alice", "2024-01-20", "Salary", "250000", domain.TxCredit, "R2")
	t2.Category = "Salary"
	t3 := NewTransaction("t3", "alice", "2024-02-05", "Uber", "2000", domain.TxDebit, "R3")
	t3.Category = "Transportation"
	t4 := NewTransaction("t4", "bob", "2024-01-15", "Other user", "1", domain.TxDebit, "R4")
	for _, tx := range []*domain.Transaction{t1, t2, t3, t4} {
		mustCreate(t, repo, tx)
	}

	all, err := repo.ListTransactions(ctx, "alice", store.TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d transactions, want 3", len(all))
	}
	if all[0].ID != "t3" || all[2].ID != "t1" {
		t.Errorf("order = %s,%s,%s; want newest first", all[0].ID, all[1].ID, all[2].ID)
	}
	if !all[2].Amount.Equal(decimal.RequireFromString("12500")) {
		t.Errorf("amount = %s", all[2].Amount)
	}
	if all[2].BalanceAfter == nil || !all[2].BalanceAfter.Equal(balance) {
		t.Errorf("balance = %v", all[2].BalanceAfter)
	}
	if all[2].Reference != "R1" || all[2].Category != "Shopping" {
		t.Errorf("round trip = %+v", all[2])
	}

	from, to := day("2024-01-15"), day("2024-01-31")
	cases := []struct {
		name   string
		filter store.TransactionFilter
		want   []string
	}{
		{"date range", store.TransactionFilter{From: &from, To: &to}, []string{"t2"}},
		{"type", store.TransactionFilter{Type: domain.TxDebit}, []string{"t3", "t1"}},
		{"category any case", store.TransactionFilter{Category: "shopping"}, []string{"t1"}},
		{"limit", store.TransactionFilter{Limit: 2}, []string{"t3", "t2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := repo.ListTransactions(ctx, "alice", tc.filter)
			if err != nil {
				t.Fatalf("ListTransactions: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %d, want %d", len(got), len(tc.want))
			}
			for i, id := range tc.want {
				if got[i].ID != id {
					t.Errorf("[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func testDelete(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	mustCreate(t, repo, NewTransaction("t1", "alice", "2024-01-15", "A", "1", domain.TxDebit, "R1"))

	if err := repo.DeleteTransaction(ctx, "bob", "t1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("foreign delete err = %v, want ErrNotFound", err)
	}
	if err := repo.DeleteTransaction(ctx, "alice", "t1"); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, "alice", "t1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
	// The reference is free again.
	mustCreate(t, repo, NewTransaction("t2", "alice", "2024-01-15", "A", "1", domain.TxDebit, "R1"))
}

func testAccountInfo(t *testing.T, repo store.Repository) {
	ctx := context.Background()

	if _, err := repo.GetAccountInfo(ctx, "alice"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	start, end := day("2024-01-01"), day("2024-01-31")
	info := &domain.AccountInfo{
		UserID:         "alice",
		AccountName:    "Alice",
		AccountNumber:  "0123456789",
		BankName:       "Zenith Bank",
		AccountType:    "Savings",
		Currency:       domain.DefaultCurrency,
		PeriodStart:    &start,
		PeriodEnd:      &end,
		OpeningBalance: decimal.RequireFromString("1000"),
		ClosingBalance: decimal.RequireFromString("2500.75"),
		BankType:       domain.BankTraditional,
		UpdatedAt:      time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.UpsertAccountInfo(ctx, info); err != nil {
		t.Fatalf("UpsertAccountInfo: %v", err)
	}

	updated := *info
	updated.ClosingBalance = decimal.RequireFromString("3000")
	updated.PeriodEnd = nil
	if err := repo.UpsertAccountInfo(ctx, &updated); err != nil {
		t.Fatalf("UpsertAccountInfo (update): %v", err)
	}

	got, err := repo.GetAccountInfo(ctx, "alice")
	if err != nil {
		t.Fatalf("GetAccountInfo: %v", err)
	}
	if !got.ClosingBalance.Equal(decimal.RequireFromString("3000")) {
		t.Errorf("closing = %s, want 3000", got.ClosingBalance)
	}
	if got.PeriodStart == nil || !got.PeriodStart.Equal(start) {
		t.Errorf("period start = %v", got.PeriodStart)
	}
	if got.PeriodEnd != nil {
		t.Errorf("period end = %v, want nil", got.PeriodEnd)
	}
	if got.AccountNumber != "0123456789" || got.BankType != domain.BankTraditional {
		t.Errorf("round trip = %+v", got)
	}
}
