package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-ingest/internal/categorize"
	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/statement"
)

// Default channel labels by origin.
const (
	ChannelManual = "Manual Entry"
	ChannelWallet = "OPay Wallet"
	ChannelImport = "Bank Statement Import"
)

// NormalizedStatement is a statement after validation. Rejected counts raw
// transactions that could not be turned into canonical records.
type NormalizedStatement struct {
	BankType     domain.BankType
	AccountInfo  *domain.AccountInfo
	Transactions []domain.Transaction
	Rejected     int
}

// Normalizer is the only place raw statements become canonical records.
type Normalizer struct {
	log   zerolog.Logger
	now   func() time.Time
	newID func() string
}

// NewNormalizer creates a Normalizer that logs rejected rows at debug level.
func NewNormalizer(log zerolog.Logger) *Normalizer {
	return &Normalizer{log: log, now: time.Now, newID: uuid.NewString}
}

// Normalize validates raw for userID. Bad rows are counted, never fatal.
func (n *Normalizer) Normalize(userID string, raw *domain.RawStatement) NormalizedStatement {
	bankType := raw.BankType
	if bankType == "" {
		bankType = domain.BankTraditional
	}
	out := NormalizedStatement{
		BankType:     bankType,
		Transactions: make([]domain.Transaction, 0, len(raw.Transactions)),
	}
	if raw.AccountInfo != nil {
		out.AccountInfo = n.accountInfo(userID, bankType, raw.AccountInfo)
	}

	refs := statement.NewRefGenerator(referencePrefix(raw.Source))
	for i, rt := range raw.Transactions {
		tx, err := n.Transaction(userID, rt, bankType, raw.Source, refs)
		if err != nil {
			out.Rejected++
			n.log.Debug().Err(err).Int("row", i).Str("user_id", userID).Msg("Rejected transaction")
			continue
		}
		out.Transactions = append(out.Transactions, tx)
	}
	return out
}

// Transaction converts a single raw transaction. refs supplies references
// when the source has none.
func (n *Normalizer) Transaction(userID string, rt domain.RawTransaction, bankType domain.BankType, source domain.Source, refs *statement.RefGenerator) (domain.Transaction, error) {
	date, ok := statement.ParseDate(rt.Date.String())
	if !ok {
		return domain.Transaction{}, fmt.Errorf("invalid date %q", rt.Date.String())
	}

	amount, err := statement.ParseAmount(rt.Amount.String())
	if err != nil {
		return domain.Transaction{}, err
	}
	// Stores keep two decimal places; anything rounding to zero is not money.
	amount = amount.Abs().Round(2)
	if amount.IsZero() {
		return domain.Transaction{}, errors.New("amount is zero")
	}

	description := strings.Join(strings.Fields(rt.Description.String()), " ")
	if description == "" {
		return domain.Transaction{}, errors.New("description is empty")
	}

	txType, ok := domain.ParseTxType(rt.Type.String())
	if !ok {
		txType = domain.TxDebit
	}

	category, ok := categorize.Canonical(rt.Category.String())
	if !ok {
		category = categorize.Classify(description)
	}

	reference := rt.TransactionReference.String()
	if reference == "" {
		reference = refs.Next()
	}

	channel := rt.Channel.String()
	if channel == "" {
		channel = defaultChannel(source, bankType)
	}

	tx := domain.Transaction{
		ID:           n.newID(),
		UserID:       userID,
		Date:         date,
		Description:  description,
		Type:         txType,
		Amount:       amount,
		Channel:      channel,
		Reference:    reference,
		Counterparty: rt.Counterparty.String(),
		Category:     category,
		BankType:     bankType,
		CreatedAt:    n.now().UTC(),
	}
	if t, ok := statement.NormalizeTime(rt.Time.String()); ok {
		tx.Time = t
	}
	if !rt.BalanceAfter.Empty() {
		if b, err := statement.ParseAmount(rt.BalanceAfter.String()); err == nil {
			tx.BalanceAfter = &b
		}
	}
	return tx, nil
}

func (n *Normalizer) accountInfo(userID string, bankType domain.BankType, raw *domain.RawAccountInfo) *domain.AccountInfo {
	info := &domain.AccountInfo{
		UserID:         userID,
		AccountName:    raw.AccountName.String(),
		AccountNumber:  raw.AccountNumber.String(),
		BankName:       raw.BankName.String(),
		AccountType:    raw.AccountType.String(),
		Currency:       strings.ToUpper(raw.Currency.String()),
		OpeningBalance: amountOrZero(raw.OpeningBalance),
		ClosingBalance: amountOrZero(raw.ClosingBalance),
		WalletBalance:  amountOrZero(raw.WalletBalance),
		TotalDebits:    amountOrZero(raw.TotalDebits),
		TotalCredits:   amountOrZero(raw.TotalCredits),
		BankType:       bankType,
		UpdatedAt:      n.now().UTC(),
	}
	if info.Currency == "" {
		info.Currency = domain.DefaultCurrency
	}
	if info.AccountType == "" {
		info.AccountType = "Savings"
		if bankType == domain.BankWallet {
			info.AccountType = "Wallet"
		}
	}
	if info.BankName == "" && bankType == domain.BankWallet {
		info.BankName = "OPay"
	}
	if p := raw.StatementPeriod; p != nil {
		if d, ok := statement.ParseDate(p.StartDate.String()); ok {
			info.PeriodStart = &d
		}
		if d, ok := statement.ParseDate(p.EndDate.String()); ok {
			info.PeriodEnd = &d
		}
	}
	return info
}

func amountOrZero(s domain.FlexString) decimal.Decimal {
	if s.Empty() {
		return decimal.Zero
	}
	d, err := statement.ParseAmount(s.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func referencePrefix(source domain.Source) string {
	if source == domain.SourceManual {
		return statement.PrefixManual
	}
	return statement.PrefixImport
}

func defaultChannel(source domain.Source, bankType domain.BankType) string {
	switch {
	case source == domain.SourceManual:
		return ChannelManual
	case bankType == domain.BankWallet:
		return ChannelWallet
	}
	return ChannelImport
}
