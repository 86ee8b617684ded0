package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical date shape used across the service.
const DateLayout = "2006-01-02"

// DefaultCurrency is the only currency the service stores.
const DefaultCurrency = "NGN"

// WalletBrand is the wallet brand token recognised in filenames and statement text.
const WalletBrand = "opay"

// TxType is the canonical polarity of a transaction.
type TxType string

const (
	TxCredit TxType = "credit"
	TxDebit  TxType = "debit"
)

// ParseTxType resolves explicit polarity tokens and the legacy income/expense hints.
func ParseTxType(s string) (TxType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "credit", "cr", "+", "income":
		return TxCredit, true
	case "debit", "dr", "-", "expense":
		return TxDebit, true
	}
	return "", false
}

// BankType selects the parsing strategy and dedup rules for a statement.
type BankType string

const (
	BankWallet      BankType = "wallet"
	BankTraditional BankType = "traditional"
)

// ParseBankType accepts the bank type names used in uploads.
func ParseBankType(s string) (BankType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wallet", "opay", "mobile":
		return BankWallet, true
	case "traditional", "bank":
		return BankTraditional, true
	}
	return "", false
}

// Source records how a statement entered the system.
type Source string

const (
	SourceUpload Source = "upload"
	SourceManual Source = "manual"
)

// Transaction is the canonical, validated record persisted per user.
// Only the normalizer in the pipeline package builds these from raw input.
type Transaction struct {
	ID           string
	UserID       string
	Date         time.Time
	Time         string // HH:MM:SS, empty when the source had no time
	Description  string
	Type         TxType
	Amount       decimal.Decimal
	BalanceAfter *decimal.Decimal
	Channel      string
	Reference    string
	Counterparty string
	Category     string
	BankType     BankType
	CreatedAt    time.Time
}

// LegacyType is the income/expense view older clients still read.
func (t Transaction) LegacyType() string {
	if t.Type == TxCredit {
		return "income"
	}
	return "expense"
}

type transactionJSON struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Date         string    `json:"date"`
	Time         string    `json:"time,omitempty"`
	Description  string    `json:"description"`
	Type         TxType    `json:"type"`
	LegacyType   string    `json:"legacy_type"`
	Amount       string    `json:"amount"`
	BalanceAfter *string   `json:"balance_after"`
	Channel      string    `json:"channel"`
	Reference    string    `json:"transaction_reference"`
	Counterparty string    `json:"counterparty,omitempty"`
	Category     string    `json:"category"`
	BankType     BankType  `json:"bank_type,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// MarshalJSON renders dates as YYYY-MM-DD and money with two decimals.
func (t Transaction) MarshalJSON() ([]byte, error) {
	out := transactionJSON{
		ID:           t.ID,
		UserID:       t.UserID,
		Date:         t.Date.Format(DateLayout),
		Time:         t.Time,
		Description:  t.Description,
		Type:         t.Type,
		LegacyType:   t.LegacyType(),
		Amount:       t.Amount.StringFixed(2),
		Channel:      t.Channel,
		Reference:    t.Reference,
		Counterparty: t.Counterparty,
		Category:     t.Category,
		BankType:     t.BankType,
		CreatedAt:    t.CreatedAt,
	}
	if t.BalanceAfter != nil {
		b := t.BalanceAfter.StringFixed(2)
		out.BalanceAfter = &b
	}
	return json.Marshal(out)
}
