package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/statement-ingest/internal/categorize"
	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/statement"
)

// CSVExtractor reads exported statements with a header row. Column names are
// matched loosely so exports from different banks work without mapping.
type CSVExtractor struct{}

func NewCSVExtractor() *CSVExtractor {
	return &CSVExtractor{}
}

// csvColumns holds header indexes; -1 means absent.
type csvColumns struct {
	date, time, description, amount, kind, balance int
	debit, credit                                  int
	category, reference, channel                   int
}

func (c csvColumns) missing() []string {
	var out []string
	if c.date < 0 {
		out = append(out, "date")
	}
	if c.description < 0 {
		out = append(out, "description")
	}
	if c.amount < 0 && c.debit < 0 && c.credit < 0 {
		out = append(out, "amount")
	}
	return out
}

func indexColumns(header []string) csvColumns {
	cols := csvColumns{
		date: -1, time: -1, description: -1, amount: -1, kind: -1, balance: -1,
		debit: -1, credit: -1, category: -1, reference: -1, channel: -1,
	}
	set := func(idx *int, i int) {
		if *idx < 0 {
			*idx = i
		}
	}

	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		debitSide := containsAnyWord(h, "debit", "withdrawal", "money out")
		creditSide := containsAnyWord(h, "credit", "deposit", "money in")
		switch {
		case strings.Contains(h, "date"):
			set(&cols.date, i)
		case strings.Contains(h, "time"):
			set(&cols.time, i)
		case containsAnyWord(h, "description", "narration", "details", "remarks", "memo"):
			set(&cols.description, i)
		case strings.Contains(h, "balance"):
			set(&cols.balance, i)
		// "Debit Amount" and "Credit Amount" are split columns, not the amount.
		case containsAnyWord(h, "amount", "value") && debitSide == creditSide:
			set(&cols.amount, i)
		case strings.Contains(h, "type"),
			strings.Contains(h, "credit") && strings.Contains(h, "debit"),
			h == "dr/cr", h == "cr/dr":
			set(&cols.kind, i)
		case debitSide:
			set(&cols.debit, i)
		case creditSide:
			set(&cols.credit, i)
		case strings.Contains(h, "category"):
			set(&cols.category, i)
		case h == "ref" || strings.Contains(h, "reference"):
			set(&cols.reference, i)
		case strings.Contains(h, "channel"):
			set(&cols.channel, i)
		}
	}

	// A lone time column doubles as the date column ("Trans. Time" exports).
	if cols.date < 0 && cols.time >= 0 {
		cols.date, cols.time = cols.time, -1
	}
	return cols
}

func (x *CSVExtractor) Extract(ctx context.Context, data []byte, filename string) (*domain.RawStatement, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.MalformedInputError(domain.FormatCSV, err.Error(), err)
		}
		if blankRecord(rec) {
			continue
		}
		records = append(records, rec)
	}

	if len(records) < 2 {
		return nil, domain.MalformedInputError(domain.FormatCSV,
			"CSV must contain a header row and at least one transaction row", nil)
	}

	header := records[0]
	cols := indexColumns(header)
	if missing := cols.missing(); len(missing) > 0 {
		return nil, domain.MalformedInputError(domain.FormatCSV,
			fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")), nil)
	}

	stmt := &domain.RawStatement{Source: domain.SourceUpload}
	for _, rec := range records[1:] {
		if len(rec) < len(header) {
			continue
		}
		if tx, ok := csvTransaction(rec, cols); ok {
			stmt.Transactions = append(stmt.Transactions, tx)
		}
	}

	if len(stmt.Transactions) == 0 {
		return nil, domain.EmptyContentError(domain.FormatCSV, "No valid transactions found in CSV", nil)
	}

	stmt.BankType = domain.BankTraditional
	if mentionsWalletBrand(filename) || mentionsWalletBrand(string(data)) {
		stmt.BankType = domain.BankWallet
	}
	return stmt, nil
}

func csvTransaction(rec []string, cols csvColumns) (domain.RawTransaction, bool) {
	get := func(i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	date, ok := statement.NormalizeDate(get(cols.date))
	if !ok {
		return domain.RawTransaction{}, false
	}
	desc := get(cols.description)
	if desc == "" {
		return domain.RawTransaction{}, false
	}

	kindCell := get(cols.kind)
	amountCell := get(cols.amount)
	if amountCell == "" {
		// Split debit/credit columns carry the polarity themselves.
		if d := get(cols.debit); d != "" && d != "-" {
			amountCell, kindCell = d, string(domain.TxDebit)
		} else if c := get(cols.credit); c != "" && c != "-" {
			amountCell, kindCell = c, string(domain.TxCredit)
		}
	}

	amount, err := statement.ParseAmount(amountCell)
	if err != nil || !amount.IsPositive() {
		return domain.RawTransaction{}, false
	}

	kind := domain.TxDebit
	if strings.Contains(strings.ToLower(kindCell), "credit") || strings.EqualFold(kindCell, "CR") {
		kind = domain.TxCredit
	}

	category := get(cols.category)
	if category == "" {
		category = categorize.Classify(desc)
	}

	tx := domain.RawTransaction{
		Date:                 domain.FlexString(date),
		Description:          domain.FlexString(desc),
		Type:                 domain.FlexString(kind),
		Amount:               domain.FlexString(amount.String()),
		Category:             domain.FlexString(category),
		TransactionReference: domain.FlexString(get(cols.reference)),
		Channel:              domain.FlexString(get(cols.channel)),
	}
	if t, ok := statement.NormalizeTime(get(cols.time)); ok {
		tx.Time = domain.FlexString(t)
	}
	if bal, err := statement.ParseAmount(get(cols.balance)); err == nil {
		tx.BalanceAfter = domain.FlexString(bal.String())
	}
	return tx, true
}

func blankRecord(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func containsAnyWord(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
