package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/store"
)

func buildUpsertAccountInfo(ds Dataset, row *AccountInfoRow) (string, []bigquery.QueryParameter) {
	sql := fmt.Sprintf(`
		MERGE %s T
		USING (
			SELECT
				@user_id AS user_id,
				@account_name AS account_name,
				@account_number AS account_number,
				@bank_name AS bank_name,
				@account_type AS account_type,
				@currency AS currency,
				@period_start AS period_start,
				@period_end AS period_end,
				@opening_balance AS opening_balance,
				@closing_balance AS closing_balance,
				@wallet_balance AS wallet_balance,
				@total_debits AS total_debits,
				@total_credits AS total_credits,
				@bank_type AS bank_type,
				@updated_ts AS updated_ts
		) S
		ON T.user_id = S.user_id
		WHEN MATCHED THEN UPDATE SET
			account_name = S.account_name,
			account_number = S.account_number,
			bank_name = S.bank_name,
			account_type = S.account_type,
			currency = S.currency,
			period_start = S.period_start,
			period_end = S.period_end,
			opening_balance = S.opening_balance,
			closing_balance = S.closing_balance,
			wallet_balance = S.wallet_balance,
			total_debits = S.total_debits,
			total_credits = S.total_credits,
			bank_type = S.bank_type,
			updated_ts = S.updated_ts
		WHEN NOT MATCHED THEN INSERT ROW
	`, ds.Table(accountInfoTable))

	params := []bigquery.QueryParameter{
		{Name: "user_id", Value: row.UserID},
		{Name: "account_name", Value: row.AccountName},
		{Name: "account_number", Value: row.AccountNumber},
		{Name: "bank_name", Value: row.BankName},
		{Name: "account_type", Value: row.AccountType},
		{Name: "currency", Value: row.Currency},
		{Name: "period_start", Value: row.PeriodStart},
		{Name: "period_end", Value: row.PeriodEnd},
		{Name: "opening_balance", Value: row.OpeningBalance},
		{Name: "closing_balance", Value: row.ClosingBalance},
		{Name: "wallet_balance", Value: row.WalletBalance},
		{Name: "total_debits", Value: row.TotalDebits},
		{Name: "total_credits", Value: row.TotalCredits},
		{Name: "bank_type", Value: row.BankType},
		{Name: "updated_ts", Value: row.UpdatedTS},
	}
	return sql, params
}

// UpsertAccountInfoWithClient replaces the account snapshot for info.UserID.
func UpsertAccountInfoWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, info *domain.AccountInfo) error {
	sql, params := buildUpsertAccountInfo(ds, NewAccountInfoRow(info))
	q := client.Query(sql)
	q.Parameters = params

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("UpsertAccountInfoWithClient: %w", err)
	}
	return nil
}

// GetAccountInfoWithClient returns store.ErrNotFound when the user has no snapshot.
func GetAccountInfoWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string) (*domain.AccountInfo, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			user_id,
			account_name,
			account_number,
			bank_name,
			account_type,
			currency,
			period_start,
			period_end,
			opening_balance,
			closing_balance,
			wallet_balance,
			total_debits,
			total_credits,
			bank_type,
			updated_ts
		FROM %s
		WHERE user_id = @user_id
		LIMIT 1
	`, ds.Table(accountInfoTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetAccountInfoWithClient: query read: %w", err)
	}

	var row AccountInfoRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetAccountInfoWithClient: iter next: %w", err)
	}
	return row.ToDomain(), nil
}
