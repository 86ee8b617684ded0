package bigquery

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/store"
)

const transactionColumns = `
			transaction_id,
			user_id,
			transaction_date,
			transaction_time,
			description,
			direction,
			amount,
			balance_after,
			channel,
			external_reference,
			counterparty,
			category_name,
			bank_type,
			created_ts`

// buildDuplicateQuery returns the SQL and parameters for FindDuplicateWithClient.
// Only the conditions present in q are added to the OR.
func buildDuplicateQuery(ds Dataset, q store.DuplicateQuery) (string, []bigquery.QueryParameter) {
	params := []bigquery.QueryParameter{{Name: "user_id", Value: q.UserID}}
	var conds []string

	if q.Reference != "" {
		conds = append(conds, "external_reference = @reference")
		params = append(params, bigquery.QueryParameter{Name: "reference", Value: q.Reference})
	}
	if c := q.Content; c != nil {
		conds = append(conds, "(transaction_date = @c_date AND amount = @c_amount AND description = @c_description AND direction = @c_direction)")
		params = append(params,
			bigquery.QueryParameter{Name: "c_date", Value: civil.DateOf(c.Date)},
			bigquery.QueryParameter{Name: "c_amount", Value: c.Amount.Rat()},
			bigquery.QueryParameter{Name: "c_description", Value: c.Description},
			bigquery.QueryParameter{Name: "c_direction", Value: string(c.Type)},
		)
	}
	if m := q.Moment; m != nil {
		conds = append(conds, "(transaction_date = @m_date AND transaction_time = @m_time AND amount = @m_amount)")
		params = append(params,
			bigquery.QueryParameter{Name: "m_date", Value: civil.DateOf(m.Date)},
			bigquery.QueryParameter{Name: "m_time", Value: m.Time},
			bigquery.QueryParameter{Name: "m_amount", Value: m.Amount.Rat()},
		)
	}

	sql := fmt.Sprintf(`
		SELECT 1
		FROM %s
		WHERE user_id = @user_id
		  AND (%s)
		LIMIT 1
	`, ds.Table(transactionsTable), strings.Join(conds, " OR "))
	return sql, params
}

// FindDuplicateWithClient reports whether a stored transaction satisfies q.
func FindDuplicateWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, dq store.DuplicateQuery) (bool, error) {
	if dq.Empty() {
		return false, nil
	}

	sql, params := buildDuplicateQuery(ds, dq)
	q := client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return false, fmt.Errorf("FindDuplicateWithClient: query read: %w", err)
	}

	var row []bigquery.Value
	err = it.Next(&row)
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("FindDuplicateWithClient: iter next: %w", err)
	}
	return true, nil
}

// buildInsertTransaction returns a DML insert that skips the row when the
// user already has the same external reference. Streaming inserts are avoided
// so rows can be deleted right after upload.
func buildInsertTransaction(ds Dataset, row *TransactionRow) (string, []bigquery.QueryParameter) {
	var balance bigquery.NullString
	if row.BalanceAfter != nil {
		balance = bigquery.NullString{StringVal: row.BalanceAfter.FloatString(2), Valid: true}
	}

	sql := fmt.Sprintf(`
		INSERT INTO %[1]s (%[2]s
		)
		SELECT
			@transaction_id,
			@user_id,
			@transaction_date,
			@transaction_time,
			@description,
			@direction,
			@amount,
			CAST(@balance_after AS NUMERIC),
			@channel,
			@external_reference,
			@counterparty,
			@category_name,
			@bank_type,
			@created_ts
		FROM UNNEST([1])
		WHERE @external_reference IS NULL
		   OR NOT EXISTS (
			SELECT 1 FROM %[1]s
			WHERE user_id = @user_id AND external_reference = @external_reference
		   )
	`, ds.Table(transactionsTable), transactionColumns)

	params := []bigquery.QueryParameter{
		{Name: "transaction_id", Value: row.TransactionID},
		{Name: "user_id", Value: row.UserID},
		{Name: "transaction_date", Value: row.TransactionDate},
		{Name: "transaction_time", Value: row.TransactionTime},
		{Name: "description", Value: row.Description},
		{Name: "direction", Value: row.Direction},
		{Name: "amount", Value: row.Amount},
		{Name: "balance_after", Value: balance},
		{Name: "channel", Value: row.Channel},
		{Name: "external_reference", Value: row.ExternalReference},
		{Name: "counterparty", Value: row.Counterparty},
		{Name: "category_name", Value: row.CategoryName},
		{Name: "bank_type", Value: row.BankType},
		{Name: "created_ts", Value: row.CreatedTS},
	}
	return sql, params
}

// InsertTransactionWithClient inserts one transaction. It returns
// store.ErrDuplicate when the reference already exists for the user.
func InsertTransactionWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, tx *domain.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("InsertTransactionWithClient: transaction_id is required")
	}

	sql, params := buildInsertTransaction(ds, NewTransactionRow(tx))
	q := client.Query(sql)
	q.Parameters = params

	affected, err := runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("InsertTransactionWithClient: %w", err)
	}
	if affected == 0 {
		return store.ErrDuplicate
	}
	return nil
}

// buildListQuery returns the SQL and parameters for ListTransactionsWithClient.
func buildListQuery(ds Dataset, userID string, f store.TransactionFilter) (string, []bigquery.QueryParameter) {
	var b strings.Builder
	fmt.Fprintf(&b, `
		SELECT%s
		FROM %s
		WHERE user_id = @user_id`, transactionColumns, ds.Table(transactionsTable))
	params := []bigquery.QueryParameter{{Name: "user_id", Value: userID}}

	if f.From != nil {
		b.WriteString("\n		  AND transaction_date >= @from_date")
		params = append(params, bigquery.QueryParameter{Name: "from_date", Value: civil.DateOf(*f.From)})
	}
	if f.To != nil {
		b.WriteString("\n		  AND transaction_date <= @to_date")
		params = append(params, bigquery.QueryParameter{Name: "to_date", Value: civil.DateOf(*f.To)})
	}
	if f.Type != "" {
		b.WriteString("\n		  AND direction = @direction")
		params = append(params, bigquery.QueryParameter{Name: "direction", Value: string(f.Type)})
	}
	if f.Category != "" {
		b.WriteString("\n		  AND LOWER(category_name) = LOWER(@category)")
		params = append(params, bigquery.QueryParameter{Name: "category", Value: f.Category})
	}
	b.WriteString("\n		ORDER BY transaction_date DESC, transaction_time DESC, created_ts DESC")
	if f.Limit > 0 {
		b.WriteString("\n		LIMIT @limit")
		params = append(params, bigquery.QueryParameter{Name: "limit", Value: int64(f.Limit)})
	}
	return b.String(), params
}

// ListTransactionsWithClient returns the user's transactions, newest first.
func ListTransactionsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string, f store.TransactionFilter) ([]domain.Transaction, error) {
	sql, params := buildListQuery(ds, userID, f)
	q := client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactionsWithClient: query read: %w", err)
	}

	txs := make([]domain.Transaction, 0)
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactionsWithClient: iter next: %w", err)
		}
		txs = append(txs, r.ToDomain())
	}
	return txs, nil
}

// DeleteTransactionWithClient deletes a transaction owned by userID.
func DeleteTransactionWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID, id string) error {
	q := client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE transaction_id = @transaction_id
		  AND user_id = @user_id
	`, ds.Table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: id},
		{Name: "user_id", Value: userID},
	}

	affected, err := runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("DeleteTransactionWithClient: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// runDML runs a DML statement to completion and returns the affected row count.
func runDML(ctx context.Context, q *bigquery.Query) (int64, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}

	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			return qs.NumDMLAffectedRows, nil
		}
	}
	return 0, nil
}
