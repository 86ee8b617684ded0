package advice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-ingest/internal/domain"
)

const (
	ProviderRules  = "rules"
	ProviderGemini = "gemini"
)

// Provider writes advice for a user's transactions.
type Provider interface {
	Generate(ctx context.Context, txs []domain.Transaction) (string, error)
}

// NewProvider returns the provider named by kind. An empty kind means rules.
func NewProvider(ctx context.Context, kind, model string, log zerolog.Logger) (Provider, error) {
	switch strings.ToLower(kind) {
	case "", ProviderRules:
		return NewRuleProvider(), nil
	case ProviderGemini:
		p, err := NewGeminiProvider(ctx, model, log)
		if err != nil {
			return nil, fmt.Errorf("NewProvider: %w", err)
		}
		return p, nil
	}
	return nil, fmt.Errorf("NewProvider: unknown advice provider %q", kind)
}

// dominantShare is the spending share above which one category gets called out.
var dominantShare = decimal.NewFromInt(40)

// RuleProvider derives advice from the summary alone.
type RuleProvider struct{}

func NewRuleProvider() *RuleProvider {
	return &RuleProvider{}
}

func (p *RuleProvider) Generate(ctx context.Context, txs []domain.Transaction) (string, error) {
	if len(txs) == 0 {
		return "No transactions yet. Upload a statement to get spending advice.", nil
	}
	s := Summarize(txs)

	var b strings.Builder
	fmt.Fprintf(&b, "Across %d transactions you received %s and spent %s (net %s).\n",
		s.Count, money(s.TotalCredits), money(s.TotalDebits), money(s.Net))

	if s.Net.IsNegative() {
		fmt.Fprintf(&b, "- You spent %s more than you received. Review recurring debits first.\n", money(s.Net.Neg()))
	} else if s.TotalCredits.IsPositive() {
		rate := s.Net.Div(s.TotalCredits).Mul(decimal.NewFromInt(100)).Round(0)
		fmt.Fprintf(&b, "- You kept %s%% of your income. Consider moving part of it into savings.\n", rate)
	}

	if len(s.ByCategory) > 0 {
		top := s.ByCategory[0]
		share := s.Share(top)
		fmt.Fprintf(&b, "- Your largest spending category is %s at %s (%s%% of spending).\n",
			top.Category, money(top.Amount), share.StringFixed(1))
		if share.GreaterThan(dominantShare) {
			fmt.Fprintf(&b, "- %s dominates your spending. Setting a monthly limit for it would have the biggest effect.\n", top.Category)
		}
	}

	for _, ct := range s.ByCategory {
		if ct.Category == "Fees & Charges" {
			fmt.Fprintf(&b, "- You paid %s in fees and charges over %d transactions.\n", money(ct.Amount), ct.Count)
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func money(d decimal.Decimal) string {
	return domain.DefaultCurrency + " " + d.StringFixed(2)
}
