package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/store"
)

// Repository is the BigQuery implementation of store.Repository. It holds a
// shared client so each operation reuses one connection.
//
// BigQuery has no unique constraints. The insert guards on the reference
// inside one DML statement, but two concurrent uploads can still race.
type Repository struct {
	client  *bigquery.Client
	dataset Dataset
}

// NewRepository creates a client for projectID and targets datasetID.
func NewRepository(ctx context.Context, projectID, datasetID string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return NewRepositoryWithClient(client, Dataset{ProjectID: projectID, DatasetID: datasetID}), nil
}

// NewRepositoryWithClient wraps an existing client.
func NewRepositoryWithClient(client *bigquery.Client, ds Dataset) *Repository {
	return &Repository{client: client, dataset: ds}
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *Repository) FindDuplicate(ctx context.Context, q store.DuplicateQuery) (bool, error) {
	return FindDuplicateWithClient(ctx, r.client, r.dataset, q)
}

func (r *Repository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	return InsertTransactionWithClient(ctx, r.client, r.dataset, tx)
}

func (r *Repository) ListTransactions(ctx context.Context, userID string, filter store.TransactionFilter) ([]domain.Transaction, error) {
	return ListTransactionsWithClient(ctx, r.client, r.dataset, userID, filter)
}

func (r *Repository) DeleteTransaction(ctx context.Context, userID, id string) error {
	return DeleteTransactionWithClient(ctx, r.client, r.dataset, userID, id)
}

func (r *Repository) UpsertAccountInfo(ctx context.Context, info *domain.AccountInfo) error {
	return UpsertAccountInfoWithClient(ctx, r.client, r.dataset, info)
}

func (r *Repository) GetAccountInfo(ctx context.Context, userID string) (*domain.AccountInfo, error) {
	return GetAccountInfoWithClient(ctx, r.client, r.dataset, userID)
}

var _ store.Repository = (*Repository)(nil)
