package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountInfo is the per-user statement summary. Each upload that carries
// account details overwrites the previous snapshot.
type AccountInfo struct {
	UserID         string          `json:"user_id"`
	AccountName    string          `json:"account_name"`
	AccountNumber  string          `json:"account_number"`
	BankName       string          `json:"bank_name"`
	AccountType    string          `json:"account_type"`
	Currency       string          `json:"currency"`
	PeriodStart    *time.Time      `json:"period_start,omitempty"`
	PeriodEnd      *time.Time      `json:"period_end,omitempty"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	WalletBalance  decimal.Decimal `json:"wallet_balance"`
	TotalDebits    decimal.Decimal `json:"total_debits"`
	TotalCredits   decimal.Decimal `json:"total_credits"`
	BankType       BankType        `json:"bank_type"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
