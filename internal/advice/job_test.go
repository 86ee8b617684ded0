package advice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/jobs"
	"github.com/dvloznov/statement-ingest/internal/store"
)

type mockLister struct {
	ListTransactionsFunc func(ctx context.Context, userID string, f store.TransactionFilter) ([]domain.Transaction, error)
}

func (m *mockLister) ListTransactions(ctx context.Context, userID string, f store.TransactionFilter) ([]domain.Transaction, error) {
	return m.ListTransactionsFunc(ctx, userID, f)
}

type mockProvider struct {
	GenerateFunc func(ctx context.Context, txs []domain.Transaction) (string, error)
}

func (m *mockProvider) Generate(ctx context.Context, txs []domain.Transaction) (string, error) {
	return m.GenerateFunc(ctx, txs)
}

type otherJob struct{}

func (otherJob) GetID() string             { return "x" }
func (otherJob) GetType() jobs.JobType     { return "other" }
func (otherJob) GetStatus() jobs.JobStatus { return jobs.JobStatusPending }

func TestJobHandler(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var gotUser string
	var gotFilter store.TransactionFilter
	lister := &mockLister{ListTransactionsFunc: func(ctx context.Context, userID string, f store.TransactionFilter) ([]domain.Transaction, error) {
		gotUser, gotFilter = userID, f
		return sampleTransactions(), nil
	}}
	provider := &mockProvider{GenerateFunc: func(ctx context.Context, txs []domain.Transaction) (string, error) {
		if len(txs) != 5 {
			t.Errorf("provider got %d transactions", len(txs))
		}
		return "save more", nil
	}}

	handler := NewJobHandler(lister, provider, zerolog.Nop())
	job := &jobs.GenerateAdviceJob{JobID: "j1", UserID: "alice", From: &from}
	if err := handler(context.Background(), job); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if job.Advice != "save more" {
		t.Errorf("advice = %q", job.Advice)
	}
	if gotUser != "alice" || gotFilter.From == nil || !gotFilter.From.Equal(from) {
		t.Errorf("listed %q with %+v", gotUser, gotFilter)
	}

	if err := handler(context.Background(), otherJob{}); err == nil {
		t.Error("expected error for foreign job type")
	}

	failing := NewJobHandler(lister, &mockProvider{GenerateFunc: func(context.Context, []domain.Transaction) (string, error) {
		return "", errors.New("quota")
	}}, zerolog.Nop())
	if err := failing(context.Background(), &jobs.GenerateAdviceJob{UserID: "alice"}); err == nil {
		t.Error("expected provider error to propagate")
	}
}
