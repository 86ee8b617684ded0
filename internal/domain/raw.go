package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FlexString holds a loosely typed JSON scalar as text. Numbers keep their
// literal form so "5000", 5000 and "5,000.00" all reach the normalizer intact.
type FlexString string

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	case '{', '[':
		return fmt.Errorf("expected scalar value, got %s", string(data[:1]))
	}
	*f = FlexString(string(data))
	return nil
}

// String returns the trimmed text.
func (f FlexString) String() string {
	return strings.TrimSpace(string(f))
}

// Empty reports whether the value carries no text.
func (f FlexString) Empty() bool {
	return f.String() == ""
}

// StatementPeriod is the raw start/end pair found on a statement.
type StatementPeriod struct {
	StartDate FlexString `json:"start_date"`
	EndDate   FlexString `json:"end_date"`
}

// RawAccountInfo is whatever account detail an extractor managed to find.
type RawAccountInfo struct {
	AccountName     FlexString       `json:"account_name"`
	AccountNumber   FlexString       `json:"account_number"`
	BankName        FlexString       `json:"bank_name"`
	AccountType     FlexString       `json:"account_type"`
	Currency        FlexString       `json:"currency"`
	StatementPeriod *StatementPeriod `json:"statement_period,omitempty"`
	OpeningBalance  FlexString       `json:"opening_balance"`
	ClosingBalance  FlexString       `json:"closing_balance"`
	WalletBalance   FlexString       `json:"wallet_balance"`
	TotalDebits     FlexString       `json:"total_debits"`
	TotalCredits    FlexString       `json:"total_credits"`
}

// RawTransaction is a transaction recovered from a file before validation.
// Amounts may be signed, zero or garbage.
type RawTransaction struct {
	Date                 FlexString `json:"date"`
	Time                 FlexString `json:"time"`
	Description          FlexString `json:"description"`
	Type                 FlexString `json:"type"`
	Amount               FlexString `json:"amount"`
	BalanceAfter         FlexString `json:"balance_after"`
	Category             FlexString `json:"category"`
	TransactionReference FlexString `json:"transaction_reference"`
	Channel              FlexString `json:"channel"`
	Counterparty         FlexString `json:"counterparty"`
}

// RawStatement is the output of every extractor. Transactions keep document order.
type RawStatement struct {
	BankType     BankType         `json:"bankType,omitempty"`
	AccountInfo  *RawAccountInfo  `json:"accountInfo,omitempty"`
	Transactions []RawTransaction `json:"transactions"`
	Source       Source           `json:"-"`
}
