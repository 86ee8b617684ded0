// Package statement recovers transactions and account details from the
// plain text of bank and wallet statements.
package statement

import (
	"regexp"
	"strings"

	"github.com/dvloznov/statement-ingest/internal/categorize"
	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/shopspring/decimal"
)

// TransactionLineParser turns statement text into a raw statement. New bank
// layouts are supported by adding implementations.
type TransactionLineParser interface {
	BankType() domain.BankType
	Parse(text string) *domain.RawStatement
}

type accountField int

const (
	fieldAccountName accountField = iota
	fieldAccountNumber
	fieldBankName
	fieldAccountType
	fieldPeriod
	fieldOpeningBalance
	fieldClosingBalance
	fieldWalletBalance
	fieldTotalDebits
	fieldTotalCredits
)

// fieldPattern lists the regexes tried for one account field; first match wins.
// fieldPeriod patterns capture two groups, all others capture one.
type fieldPattern struct {
	field    accountField
	patterns []*regexp.Regexp
}

// linePattern is one transaction line shape. Recognised named groups:
// date, time, desc, ref, amount, debit, credit, balance, kind, status.
type linePattern struct {
	label string
	re    *regexp.Regexp
}

// Parser is the table-driven engine behind the wallet and traditional parsers.
type Parser struct {
	bankType    domain.BankType
	fields      []fieldPattern
	lines       []linePattern
	creditWords []string
	debitWords  []string
	refs        *RefGenerator
}

// BankType reports which statements this parser is for.
func (p *Parser) BankType() domain.BankType {
	return p.bankType
}

// Parse extracts account fields from the whole text and transactions line by
// line. Matches are deduplicated by (date, amount, description).
func (p *Parser) Parse(text string) *domain.RawStatement {
	stmt := &domain.RawStatement{
		BankType:    p.bankType,
		AccountInfo: p.parseAccountInfo(text),
		Source:      domain.SourceUpload,
	}

	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		tx, ok := p.parseLine(line)
		if !ok {
			continue
		}
		key := tx.Date.String() + "|" + tx.Amount.String() + "|" + strings.ToLower(tx.Description.String())
		if seen[key] {
			continue
		}
		seen[key] = true
		stmt.Transactions = append(stmt.Transactions, tx)
	}

	return stmt
}

func (p *Parser) parseLine(line string) (domain.RawTransaction, bool) {
	for _, lp := range p.lines {
		m := lp.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		groups := make(map[string]string, len(m))
		for i, name := range lp.re.SubexpNames() {
			if name != "" && i < len(m) {
				groups[name] = strings.TrimSpace(m[i])
			}
		}
		return p.buildTransaction(groups)
	}
	return domain.RawTransaction{}, false
}

func (p *Parser) buildTransaction(g map[string]string) (domain.RawTransaction, bool) {
	if strings.EqualFold(g["status"], "failed") {
		return domain.RawTransaction{}, false
	}

	date, ok := NormalizeDate(g["date"])
	if !ok {
		return domain.RawTransaction{}, false
	}

	desc := strings.TrimSpace(g["desc"])
	if len(desc) <= 2 || trailingMoney.MatchString(desc) {
		return domain.RawTransaction{}, false
	}

	amount, txType, ok := p.resolveAmount(g, desc)
	if !ok || !amount.IsPositive() {
		return domain.RawTransaction{}, false
	}

	tx := domain.RawTransaction{
		Date:        domain.FlexString(date),
		Description: domain.FlexString(desc),
		Type:        domain.FlexString(txType),
		Amount:      domain.FlexString(amount.String()),
		Category:    domain.FlexString(categorize.Classify(desc)),
	}
	if t, ok := NormalizeTime(g["time"]); ok {
		tx.Time = domain.FlexString(t)
	}
	if bal, err := ParseAmount(g["balance"]); err == nil {
		tx.BalanceAfter = domain.FlexString(bal.String())
	}
	if ref := g["ref"]; ref != "" {
		tx.TransactionReference = domain.FlexString(ref)
	} else {
		tx.TransactionReference = domain.FlexString(p.refs.Next())
	}
	return tx, true
}

// resolveAmount returns the positive magnitude and polarity for a match.
// Polarity comes from an explicit type token, then the amount sign, then
// separate debit/credit columns, then description keywords.
func (p *Parser) resolveAmount(g map[string]string, desc string) (decimal.Decimal, domain.TxType, bool) {
	if g["amount"] == "" {
		debit, derr := ParseAmount(g["debit"])
		credit, cerr := ParseAmount(g["credit"])
		switch {
		case derr == nil && debit.IsPositive():
			return debit, domain.TxDebit, true
		case cerr == nil && credit.IsPositive():
			return credit, domain.TxCredit, true
		}
		return decimal.Zero, "", false
	}

	amount, err := ParseAmount(g["amount"])
	if err != nil {
		return decimal.Zero, "", false
	}
	if t, ok := domain.ParseTxType(g["kind"]); ok {
		return amount.Abs(), t, true
	}
	if amount.IsNegative() {
		return amount.Abs(), domain.TxDebit, true
	}
	if strings.HasPrefix(g["amount"], "+") {
		return amount, domain.TxCredit, true
	}
	return amount, p.inferType(desc), true
}

// inferType picks the polarity whose keyword appears earliest in desc.
func (p *Parser) inferType(desc string) domain.TxType {
	lower := strings.ToLower(desc)
	creditAt := firstIndex(lower, p.creditWords)
	debitAt := firstIndex(lower, p.debitWords)
	if creditAt >= 0 && (debitAt < 0 || creditAt < debitAt) {
		return domain.TxCredit
	}
	return domain.TxDebit
}

func firstIndex(s string, words []string) int {
	best := -1
	for _, w := range words {
		if i := strings.Index(s, w); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}

func (p *Parser) parseAccountInfo(text string) *domain.RawAccountInfo {
	info := &domain.RawAccountInfo{}
	found := false

	for _, fp := range p.fields {
		for _, re := range fp.patterns {
			m := re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			if p.setField(info, fp.field, m[1:]) {
				found = true
				break
			}
		}
	}

	if !found {
		return nil
	}
	return info
}

func (p *Parser) setField(info *domain.RawAccountInfo, f accountField, groups []string) bool {
	if len(groups) == 0 {
		return false
	}
	v := domain.FlexString(strings.TrimSpace(groups[0]))
	if v.Empty() {
		return false
	}

	switch f {
	case fieldAccountName:
		info.AccountName = v
	case fieldAccountNumber:
		info.AccountNumber = domain.FlexString(strings.ReplaceAll(v.String(), " ", ""))
	case fieldBankName:
		info.BankName = v
	case fieldAccountType:
		info.AccountType = v
	case fieldPeriod:
		if len(groups) < 2 {
			return false
		}
		start, sok := NormalizeDate(groups[0])
		end, eok := NormalizeDate(groups[1])
		if !sok || !eok {
			return false
		}
		info.StatementPeriod = &domain.StatementPeriod{
			StartDate: domain.FlexString(start),
			EndDate:   domain.FlexString(end),
		}
	case fieldOpeningBalance:
		info.OpeningBalance = v
	case fieldClosingBalance:
		info.ClosingBalance = v
	case fieldWalletBalance:
		info.WalletBalance = v
	case fieldTotalDebits:
		info.TotalDebits = v
	case fieldTotalCredits:
		info.TotalCredits = v
	}
	return true
}
