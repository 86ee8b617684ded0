// Package advice summarises stored transactions and turns the summary into
// short spending advice, either from fixed rules or from Gemini.
package advice

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-ingest/internal/categorize"
	"github.com/dvloznov/statement-ingest/internal/domain"
)

// CategoryTotal is the debit total of one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Count    int             `json:"count"`
}

// Summary aggregates a set of transactions. ByCategory covers debits only
// and is sorted by amount, largest first.
type Summary struct {
	TotalCredits decimal.Decimal `json:"total_credits"`
	TotalDebits  decimal.Decimal `json:"total_debits"`
	Net          decimal.Decimal `json:"net"`
	Count        int             `json:"count"`
	From         *time.Time      `json:"from,omitempty"`
	To           *time.Time      `json:"to,omitempty"`
	ByCategory   []CategoryTotal `json:"by_category"`
}

// Summarize totals txs.
func Summarize(txs []domain.Transaction) Summary {
	s := Summary{
		TotalCredits: decimal.Zero,
		TotalDebits:  decimal.Zero,
		ByCategory:   []CategoryTotal{},
	}
	byCat := make(map[string]*CategoryTotal)

	for _, tx := range txs {
		s.Count++
		if s.From == nil || tx.Date.Before(*s.From) {
			d := tx.Date
			s.From = &d
		}
		if s.To == nil || tx.Date.After(*s.To) {
			d := tx.Date
			s.To = &d
		}

		if tx.Type == domain.TxCredit {
			s.TotalCredits = s.TotalCredits.Add(tx.Amount)
			continue
		}
		s.TotalDebits = s.TotalDebits.Add(tx.Amount)

		cat := tx.Category
		if cat == "" {
			cat = categorize.Other
		}
		ct, ok := byCat[cat]
		if !ok {
			ct = &CategoryTotal{Category: cat, Amount: decimal.Zero}
			byCat[cat] = ct
		}
		ct.Amount = ct.Amount.Add(tx.Amount)
		ct.Count++
	}
	s.Net = s.TotalCredits.Sub(s.TotalDebits)

	for _, ct := range byCat {
		s.ByCategory = append(s.ByCategory, *ct)
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		a, b := s.ByCategory[i], s.ByCategory[j]
		if c := a.Amount.Cmp(b.Amount); c != 0 {
			return c > 0
		}
		return a.Category < b.Category
	})
	return s
}

// Share returns the category's fraction of total debits as a percentage.
func (s Summary) Share(ct CategoryTotal) decimal.Decimal {
	if s.TotalDebits.IsZero() {
		return decimal.Zero
	}
	return ct.Amount.Div(s.TotalDebits).Mul(decimal.NewFromInt(100)).Round(1)
}
