package statement

import (
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order. Day-first layouts come before month-first
// ones because local statements print DD/MM/YYYY.
var dateLayouts = []string{
	domain.DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/1/2",
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/06",
	"2-1-06",
	"2 Jan 2006",
	"2-Jan-2006",
	"2 Jan, 2006",
	"2-Jan-06",
	"2 Jan 06",
	"2 January 2006",
	"2 January, 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"January 2 2006",
}

var timeLayouts = []string{
	"15:04:05",
	"15:04",
	"3:04:05 PM",
	"3:04:05PM",
	"3:04 PM",
	"3:04PM",
}

var currencyTokens = []string{"₦", "NGN", "$", "£", "€", ","}

// NormalizeDate parses a loosely formatted date and returns it as YYYY-MM-DD.
func NormalizeDate(s string) (string, bool) {
	t, ok := ParseDate(s)
	if !ok {
		return "", false
	}
	return t.Format(domain.DateLayout), true
}

// ParseDate parses a loosely formatted date into a UTC midnight time.
func ParseDate(s string) (time.Time, bool) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}, false
	}
	if !strings.Contains(s, "September") {
		s = strings.Replace(s, "Sept", "Sep", 1)
	}

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() < 1900 || t.Year() > 2100 {
			return time.Time{}, false
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// NormalizeTime returns s as HH:MM:SS.
func NormalizeTime(s string) (string, bool) {
	s = strings.ToUpper(strings.Join(strings.Fields(s), " "))
	if s == "" {
		return "", false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04:05"), true
		}
	}
	return "", false
}

// ParseAmount parses a money string into a signed decimal. Currency symbols,
// thousands separators and accounting parentheses are accepted.
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("ParseAmount: empty amount")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = strings.ReplaceAll(s, " ", "")
	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimSuffix(s, "-")
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = strings.TrimPrefix(s, "-")
	}
	s = strings.TrimPrefix(s, "+")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ParseAmount: invalid amount %q: %w", raw, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}
