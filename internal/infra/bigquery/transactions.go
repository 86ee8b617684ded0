package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-ingest/internal/domain"
)

const (
	transactionsTable = "transactions"
	accountInfoTable  = "account_info"
)

// Dataset names the BigQuery project and dataset holding the ingest tables.
type Dataset struct {
	ProjectID string
	DatasetID string
}

// Table returns the fully qualified, backtick-quoted table name.
func (d Dataset) Table(name string) string {
	return "`" + d.ProjectID + "." + d.DatasetID + "." + name + "`"
}

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	TransactionTime string     `bigquery:"transaction_time"` // HH:MM:SS or ""

	Description string `bigquery:"description"` // REQUIRED
	Direction   string `bigquery:"direction"`   // credit | debit

	Amount       *big.Rat `bigquery:"amount"`        // REQUIRED NUMERIC
	BalanceAfter *big.Rat `bigquery:"balance_after"` // NULLABLE NUMERIC

	Channel           string              `bigquery:"channel"`
	ExternalReference bigquery.NullString `bigquery:"external_reference"` // NULLABLE
	Counterparty      string              `bigquery:"counterparty"`
	CategoryName      string              `bigquery:"category_name"`
	BankType          string              `bigquery:"bank_type"`

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// NewTransactionRow converts a domain transaction into its table row.
func NewTransactionRow(tx *domain.Transaction) *TransactionRow {
	row := &TransactionRow{
		TransactionID:     tx.ID,
		UserID:            tx.UserID,
		TransactionDate:   civil.DateOf(tx.Date),
		TransactionTime:   tx.Time,
		Description:       tx.Description,
		Direction:         string(tx.Type),
		Amount:            tx.Amount.Rat(),
		Channel:           tx.Channel,
		ExternalReference: bigquery.NullString{StringVal: tx.Reference, Valid: tx.Reference != ""},
		Counterparty:      tx.Counterparty,
		CategoryName:      tx.Category,
		BankType:          string(tx.BankType),
		CreatedTS:         tx.CreatedAt.UTC(),
	}
	if tx.BalanceAfter != nil {
		row.BalanceAfter = tx.BalanceAfter.Rat()
	}
	return row
}

// ToDomain converts a row back to a domain transaction.
func (r *TransactionRow) ToDomain() domain.Transaction {
	tx := domain.Transaction{
		ID:           r.TransactionID,
		UserID:       r.UserID,
		Date:         r.TransactionDate.In(time.UTC),
		Time:         r.TransactionTime,
		Description:  r.Description,
		Type:         domain.TxType(r.Direction),
		Amount:       ratToDecimal(r.Amount),
		Channel:      r.Channel,
		Counterparty: r.Counterparty,
		Category:     r.CategoryName,
		BankType:     domain.BankType(r.BankType),
		CreatedAt:    r.CreatedTS,
	}
	if r.ExternalReference.Valid {
		tx.Reference = r.ExternalReference.StringVal
	}
	if r.BalanceAfter != nil {
		b := ratToDecimal(r.BalanceAfter)
		tx.BalanceAfter = &b
	}
	return tx
}

type AccountInfoRow struct {
	UserID        string `bigquery:"user_id"` // REQUIRED
	AccountName   string `bigquery:"account_name"`
	AccountNumber string `bigquery:"account_number"`
	BankName      string `bigquery:"bank_name"`
	AccountType   string `bigquery:"account_type"`
	Currency      string `bigquery:"currency"`

	PeriodStart bigquery.NullDate `bigquery:"period_start"` // NULLABLE
	PeriodEnd   bigquery.NullDate `bigquery:"period_end"`   // NULLABLE

	OpeningBalance *big.Rat `bigquery:"opening_balance"` // NUMERIC
	ClosingBalance *big.Rat `bigquery:"closing_balance"` // NUMERIC
	WalletBalance  *big.Rat `bigquery:"wallet_balance"`  // NUMERIC
	TotalDebits    *big.Rat `bigquery:"total_debits"`    // NUMERIC
	TotalCredits   *big.Rat `bigquery:"total_credits"`   // NUMERIC

	BankType  string    `bigquery:"bank_type"`
	UpdatedTS time.Time `bigquery:"updated_ts"`
}

// NewAccountInfoRow converts a domain snapshot into its table row.
func NewAccountInfoRow(info *domain.AccountInfo) *AccountInfoRow {
	return &AccountInfoRow{
		UserID:         info.UserID,
		AccountName:    info.AccountName,
		AccountNumber:  info.AccountNumber,
		BankName:       info.BankName,
		AccountType:    info.AccountType,
		Currency:       info.Currency,
		PeriodStart:    nullDate(info.PeriodStart),
		PeriodEnd:      nullDate(info.PeriodEnd),
		OpeningBalance: info.OpeningBalance.Rat(),
		ClosingBalance: info.ClosingBalance.Rat(),
		WalletBalance:  info.WalletBalance.Rat(),
		TotalDebits:    info.TotalDebits.Rat(),
		TotalCredits:   info.TotalCredits.Rat(),
		BankType:       string(info.BankType),
		UpdatedTS:      info.UpdatedAt.UTC(),
	}
}

// ToDomain converts a row back to a domain snapshot.
func (r *AccountInfoRow) ToDomain() *domain.AccountInfo {
	return &domain.AccountInfo{
		UserID:         r.UserID,
		AccountName:    r.AccountName,
		AccountNumber:  r.AccountNumber,
		BankName:       r.BankName,
		AccountType:    r.AccountType,
		Currency:       r.Currency,
		PeriodStart:    dateOrNil(r.PeriodStart),
		PeriodEnd:      dateOrNil(r.PeriodEnd),
		OpeningBalance: ratToDecimal(r.OpeningBalance),
		ClosingBalance: ratToDecimal(r.ClosingBalance),
		WalletBalance:  ratToDecimal(r.WalletBalance),
		TotalDebits:    ratToDecimal(r.TotalDebits),
		TotalCredits:   ratToDecimal(r.TotalCredits),
		BankType:       domain.BankType(r.BankType),
		UpdatedAt:      r.UpdatedTS,
	}
}

// NUMERIC holds nine fractional digits; money only ever needs two.
func ratToDecimal(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigRat(r, 2)
}

func nullDate(t *time.Time) bigquery.NullDate {
	if t == nil {
		return bigquery.NullDate{}
	}
	return bigquery.NullDate{Date: civil.DateOf(*t), Valid: true}
}

func dateOrNil(d bigquery.NullDate) *time.Time {
	if !d.Valid {
		return nil
	}
	t := d.Date.In(time.UTC)
	return &t
}
