package statement

import (
	"regexp"
	"strings"
)

// Building blocks shared by the wallet and traditional tables.
const (
	datePart = `\d{4}-\d{2}-\d{2}` +
		`|\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}` +
		`|\d{1,2}[ -](?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*,?[ -]\d{2,4}` +
		`|(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{1,2},? \d{4}`
	timePart    = `\d{1,2}:\d{2}(?::\d{2})?(?: ?[AP]M)?`
	moneyPart   = `(?:₦|NGN ?)?\d[\d,]*\.\d{2}`
	signedMoney = `[-+]?` + moneyPart
	looseMoney  = `[-+]?(?:₦|NGN ?)?\d[\d,]*(?:\.\d{1,2})?`
	refPart     = `[A-Z]{0,6}\d[A-Z0-9]{8,}`
	kindPart    = `CR|DR|Credit|Debit`
	statusPart  = `Successful|Success|Completed|Failed|Pending|Reversed`
	balanceNum  = `(?:₦|NGN)?\s*(-?[\d,]+(?:\.\d{1,2})?)`
)

// line builds a case-insensitive, fully anchored line regex from a template
// where DATE, TIME, MONEY, SMONEY, LMONEY, REF, KIND and STATUS are expanded.
func line(tmpl string) *regexp.Regexp {
	r := strings.NewReplacer(
		"DATE", "(?:"+datePart+")",
		"TIME", "(?:"+timePart+")",
		"SMONEY", "(?:"+signedMoney+")",
		"LMONEY", "(?:"+looseMoney+")",
		"MONEY", "(?:"+moneyPart+")",
		"REF", "(?:"+refPart+")",
		"KIND", "(?:"+kindPart+")",
		"STATUS", "(?:"+statusPart+")",
	)
	return regexp.MustCompile(`(?i)^` + r.Replace(tmpl) + `$`)
}

// trailingMoney matches a description that still ends in an amount column,
// which means the line had more money columns than the pattern consumed.
var trailingMoney = regexp.MustCompile(`(?i)(?:^|\s)` + signedMoney + `$`)

func field(expr string) *regexp.Regexp {
	expr = strings.ReplaceAll(expr, "DATE", "(?:"+datePart+")")
	expr = strings.ReplaceAll(expr, "AMOUNT", balanceNum)
	return regexp.MustCompile(expr)
}

// Account fields both statement kinds print.
var commonFields = []fieldPattern{
	{field: fieldAccountName, patterns: []*regexp.Regexp{
		field(`(?im)^\s*(?:account\s+name|customer\s+name|name)\s*[:\-]?\s*([A-Za-z][A-Za-z .'\-]{2,60}?)\s*$`),
	}},
	{field: fieldPeriod, patterns: []*regexp.Regexp{
		field(`(?i)(?:statement\s+)?period\s*[:\-]?\s*(DATE)\s*(?:to|-|–|through)\s*(DATE)`),
		field(`(?i)from\s+(DATE)\s+to\s+(DATE)`),
	}},
	{field: fieldOpeningBalance, patterns: []*regexp.Regexp{
		field(`(?i)opening\s+balance\s*[:\-]?\s*AMOUNT`),
		field(`(?i)balance\s+b/?f\s*[:\-]?\s*AMOUNT`),
	}},
	{field: fieldClosingBalance, patterns: []*regexp.Regexp{
		field(`(?i)closing\s+balance\s*[:\-]?\s*AMOUNT`),
		field(`(?i)balance\s+c/?f\s*[:\-]?\s*AMOUNT`),
	}},
	{field: fieldTotalDebits, patterns: []*regexp.Regexp{
		field(`(?i)total\s+(?:debits?|outflows?|money\s+out|withdrawals?)\s*[:\-]?\s*AMOUNT`),
	}},
	{field: fieldTotalCredits, patterns: []*regexp.Regexp{
		field(`(?i)total\s+(?:credits?|inflows?|money\s+in|deposits?|lodgements?)\s*[:\-]?\s*AMOUNT`),
	}},
}
