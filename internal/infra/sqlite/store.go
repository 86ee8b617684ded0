// Package sqlite is a file-backed store.Repository built on mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/store"
)

//go:embed schema.sql
var schema string

const timestampLayout = time.RFC3339Nano

// Store implements store.Repository on a single SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at dbPath and applies the schema.
// ":memory:" is accepted for tests.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("Open: creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("Open: opening database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: pinging database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// FindDuplicate implements store.TransactionRepository.
func (s *Store) FindDuplicate(ctx context.Context, q store.DuplicateQuery) (bool, error) {
	if q.Empty() {
		return false, nil
	}

	var (
		conds []string
		args  = []any{q.UserID}
	)
	if q.Reference != "" {
		conds = append(conds, "transaction_reference = ?")
		args = append(args, q.Reference)
	}
	if c := q.Content; c != nil {
		conds = append(conds, "(date = ? AND amount = ? AND description = ? AND type = ?)")
		args = append(args, c.Date.Format(domain.DateLayout), c.Amount.StringFixed(2), c.Description, string(c.Type))
	}
	if m := q.Moment; m != nil {
		conds = append(conds, "(date = ? AND time = ? AND amount = ?)")
		args = append(args, m.Date.Format(domain.DateLayout), m.Time, m.Amount.StringFixed(2))
	}

	query := `SELECT 1 FROM transactions WHERE user_id = ? AND (` + strings.Join(conds, " OR ") + `) LIMIT 1`
	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("FindDuplicate: querying: %w", err)
	}
	return true, nil
}

// CreateTransaction implements store.TransactionRepository.
func (s *Store) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	var balance sql.NullString
	if tx.BalanceAfter != nil {
		balance = sql.NullString{String: tx.BalanceAfter.StringFixed(2), Valid: true}
	}
	ref := sql.NullString{String: tx.Reference, Valid: tx.Reference != ""}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, user_id, date, time, description, type, amount, balance_after,
			channel, transaction_reference, counterparty, category, bank_type, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, tx.ID, tx.UserID, tx.Date.Format(domain.DateLayout), tx.Time, tx.Description, string(tx.Type),
		tx.Amount.StringFixed(2), balance, tx.Channel, ref, tx.Counterparty, tx.Category,
		string(tx.BankType), tx.CreatedAt.UTC().Format(timestampLayout))
	if isUniqueViolation(err) {
		return store.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("CreateTransaction: inserting row: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// ListTransactions implements store.TransactionRepository.
func (s *Store) ListTransactions(ctx context.Context, userID string, filter store.TransactionFilter) ([]domain.Transaction, error) {
	query := `
		SELECT id, user_id, date, time, description, type, amount, balance_after,
			   channel, COALESCE(transaction_reference, ''), counterparty, category, bank_type, created_at
		FROM transactions
		WHERE user_id = ?`
	args := []any{userID}

	if filter.From != nil {
		query += ` AND date >= ?`
		args = append(args, filter.From.Format(domain.DateLayout))
	}
	if filter.To != nil {
		query += ` AND date <= ?`
		args = append(args, filter.To.Format(domain.DateLayout))
	}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(filter.Type))
	}
	if filter.Category != "" {
		query += ` AND category = ? COLLATE NOCASE`
		args = append(args, filter.Category)
	}
	query += ` ORDER BY date DESC, time DESC, created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: querying: %w", err)
	}
	defer rows.Close()

	txs := make([]domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanTransaction(rows *sql.Rows) (domain.Transaction, error) {
	var (
		tx                   domain.Transaction
		date, txType, amount string
		balance              sql.NullString
		bankType, createdAt  string
	)
	if err := rows.Scan(&tx.ID, &tx.UserID, &date, &tx.Time, &tx.Description, &txType, &amount, &balance,
		&tx.Channel, &tx.Reference, &tx.Counterparty, &tx.Category, &bankType, &createdAt); err != nil {
		return tx, fmt.Errorf("scanning transaction: %w", err)
	}

	var err error
	if tx.Date, err = time.Parse(domain.DateLayout, date); err != nil {
		return tx, fmt.Errorf("parsing date %q: %w", date, err)
	}
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return tx, fmt.Errorf("parsing amount %q: %w", amount, err)
	}
	if balance.Valid {
		b, err := decimal.NewFromString(balance.String)
		if err != nil {
			return tx, fmt.Errorf("parsing balance %q: %w", balance.String, err)
		}
		tx.BalanceAfter = &b
	}
	if tx.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
		return tx, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	tx.Type = domain.TxType(txType)
	tx.BankType = domain.BankType(bankType)
	return tx, nil
}

// DeleteTransaction implements store.TransactionRepository.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: deleting row: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteTransaction: rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpsertAccountInfo implements store.AccountInfoRepository.
func (s *Store) UpsertAccountInfo(ctx context.Context, info *domain.AccountInfo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account_info (
			user_id, account_name, account_number, bank_name, account_type, currency,
			period_start, period_end, opening_balance, closing_balance, wallet_balance,
			total_debits, total_credits, bank_type, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			account_name = excluded.account_name,
			account_number = excluded.account_number,
			bank_name = excluded.bank_name,
			account_type = excluded.account_type,
			currency = excluded.currency,
			period_start = excluded.period_start,
			period_end = excluded.period_end,
			opening_balance = excluded.opening_balance,
			closing_balance = excluded.closing_balance,
			wallet_balance = excluded.wallet_balance,
			total_debits = excluded.total_debits,
			total_credits = excluded.total_credits,
			bank_type = excluded.bank_type,
			updated_at = excluded.updated_at
	`, info.UserID, info.AccountName, info.AccountNumber, info.BankName, info.AccountType, info.Currency,
		nullDate(info.PeriodStart), nullDate(info.PeriodEnd),
		info.OpeningBalance.StringFixed(2), info.ClosingBalance.StringFixed(2), info.WalletBalance.StringFixed(2),
		info.TotalDebits.StringFixed(2), info.TotalCredits.StringFixed(2),
		string(info.BankType), info.UpdatedAt.UTC().Format(timestampLayout))
	if err != nil {
		return fmt.Errorf("UpsertAccountInfo: upserting row: %w", err)
	}
	return nil
}

// GetAccountInfo implements store.AccountInfoRepository.
func (s *Store) GetAccountInfo(ctx context.Context, userID string) (*domain.AccountInfo, error) {
	var (
		info                                   domain.AccountInfo
		periodStart, periodEnd                 sql.NullString
		opening, closing, wallet, debits, cred string
		bankType, updatedAt                    string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, account_name, account_number, bank_name, account_type, currency,
			   period_start, period_end, opening_balance, closing_balance, wallet_balance,
			   total_debits, total_credits, bank_type, updated_at
		FROM account_info WHERE user_id = ?
	`, userID).Scan(&info.UserID, &info.AccountName, &info.AccountNumber, &info.BankName, &info.AccountType,
		&info.Currency, &periodStart, &periodEnd, &opening, &closing, &wallet, &debits, &cred,
		&bankType, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetAccountInfo: querying: %w", err)
	}

	info.PeriodStart = parseNullDate(periodStart)
	info.PeriodEnd = parseNullDate(periodEnd)
	info.OpeningBalance = decimalOrZero(opening)
	info.ClosingBalance = decimalOrZero(closing)
	info.WalletBalance = decimalOrZero(wallet)
	info.TotalDebits = decimalOrZero(debits)
	info.TotalCredits = decimalOrZero(cred)
	info.BankType = domain.BankType(bankType)
	if t, err := time.Parse(timestampLayout, updatedAt); err == nil {
		info.UpdatedAt = t
	}
	return &info, nil
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(domain.DateLayout), Valid: true}
}

func parseNullDate(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(domain.DateLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func decimalOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

var _ store.Repository = (*Store)(nil)
