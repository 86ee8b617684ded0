package advice

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/dvloznov/statement-ingest/internal/domain"
)

const (
	DefaultModelName = "gemini-2.5-flash"

	// maxPromptTransactions bounds how many recent rows go into the prompt.
	maxPromptTransactions = 30
)

// contentGenerator is the part of *genai.Models the provider needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiProvider asks a Gemini model for advice. Credentials come from the
// environment (GOOGLE_API_KEY or Vertex settings).
type GeminiProvider struct {
	models contentGenerator
	model  string
	log    zerolog.Logger
}

func NewGeminiProvider(ctx context.Context, model string, log zerolog.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiProvider: create genai client: %w", err)
	}
	return newGeminiProvider(client.Models, model, log), nil
}

func newGeminiProvider(models contentGenerator, model string, log zerolog.Logger) *GeminiProvider {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiProvider{models: models, model: model, log: log}
}

func (p *GeminiProvider) Generate(ctx context.Context, txs []domain.Transaction) (string, error) {
	prompt := buildAdvicePrompt(Summarize(txs), txs)

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := p.models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("GeminiProvider.Generate: generate content: %w", err)
	}

	if resp == nil {
		return "", fmt.Errorf("GeminiProvider.Generate: nil response from model")
	}
	text := cleanModelText(resp.Text())
	if text == "" {
		return "", fmt.Errorf("GeminiProvider.Generate: empty response from model")
	}

	p.log.Debug().
		Str("model", p.model).
		Int("transactions", len(txs)).
		Int("prompt_length", len(prompt)).
		Int("response_length", len(text)).
		Msg("Generated advice")
	return text, nil
}

func buildAdvicePrompt(s Summary, txs []domain.Transaction) string {
	var b strings.Builder
	b.WriteString("You are a personal finance assistant for a user in Nigeria.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Read the spending summary and recent transactions below.\n")
	b.WriteString("- Write at most five short, concrete suggestions as plain text bullet points.\n")
	b.WriteString("- Refer to amounts in " + domain.DefaultCurrency + ".\n")
	b.WriteString("- Do NOT use Markdown headings or code fences.\n\n")

	b.WriteString("Summary:\n")
	fmt.Fprintf(&b, "- Transactions: %d\n", s.Count)
	fmt.Fprintf(&b, "- Total credits: %s\n", s.TotalCredits.StringFixed(2))
	fmt.Fprintf(&b, "- Total debits: %s\n", s.TotalDebits.StringFixed(2))
	fmt.Fprintf(&b, "- Net: %s\n", s.Net.StringFixed(2))
	if s.From != nil && s.To != nil {
		fmt.Fprintf(&b, "- Period: %s to %s\n", s.From.Format(domain.DateLayout), s.To.Format(domain.DateLayout))
	}

	if len(s.ByCategory) > 0 {
		b.WriteString("\nSpending by category:\n")
		for _, ct := range s.ByCategory {
			fmt.Fprintf(&b, "- %s: %s (%d transactions, %s%%)\n",
				ct.Category, ct.Amount.StringFixed(2), ct.Count, s.Share(ct).StringFixed(1))
		}
	}

	recent := recentTransactions(txs, maxPromptTransactions)
	if len(recent) > 0 {
		b.WriteString("\nRecent transactions (date | type | amount | category | description):\n")
		for _, tx := range recent {
			fmt.Fprintf(&b, "- %s | %s | %s | %s | %s\n",
				tx.Date.Format(domain.DateLayout), tx.Type, tx.Amount.StringFixed(2), tx.Category, tx.Description)
		}
	}
	return b.String()
}

// recentTransactions returns up to n transactions, newest first.
func recentTransactions(txs []domain.Transaction, n int) []domain.Transaction {
	out := append([]domain.Transaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// cleanModelText strips Markdown fences the model sometimes adds anyway.
func cleanModelText(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return ""
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
