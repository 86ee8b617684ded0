// Package auth resolves bearer tokens to user IDs.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/dvloznov/statement-ingest/internal/config"
)

// Provider maps a bearer token to the user it belongs to.
type Provider interface {
	UserForToken(ctx context.Context, token string) (userID string, ok bool)
}

// StaticTokens is a fixed token table, typically from AUTH_TOKENS.
type StaticTokens struct {
	tokens map[string]string
}

// NewStaticTokens copies tokens so later changes to the map have no effect.
func NewStaticTokens(tokens map[string]string) *StaticTokens {
	cp := make(map[string]string, len(tokens))
	for k, v := range tokens {
		cp[k] = v
	}
	return &StaticTokens{tokens: cp}
}

// ParseStaticTokens builds a table from a "token:user,..." string.
func ParseStaticTokens(s string) (*StaticTokens, error) {
	tokens, err := config.ParseTokens(s)
	if err != nil {
		return nil, fmt.Errorf("ParseStaticTokens: %w", err)
	}
	return &StaticTokens{tokens: tokens}, nil
}

// UserForToken compares against every entry in constant time.
func (s *StaticTokens) UserForToken(ctx context.Context, token string) (string, bool) {
	if token == "" {
		return "", false
	}
	var user string
	for t, u := range s.tokens {
		if subtle.ConstantTimeCompare([]byte(t), []byte(token)) == 1 {
			user = u
		}
	}
	return user, user != ""
}

// Len reports how many tokens are configured.
func (s *StaticTokens) Len() int {
	return len(s.tokens)
}

type contextKey struct{}

// WithUser stores the authenticated user ID in ctx.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserFromContext returns the user ID set by WithUser, or "".
func UserFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(contextKey{}).(string)
	return userID
}
