// Package detect scores statement text to decide whether it came from a
// digital wallet or a traditional bank.
package detect

import (
	"regexp"
	"strings"

	"github.com/dvloznov/statement-ingest/internal/domain"
)

var walletIndicators = []string{
	"opay", "palmpay", "kuda", "moniepoint", "paga", "wallet", "mobile money",
	"p2p", "qr code", "qr payment", "owealth", "airtime", "data bundle",
	"ussd", "agent", "merchant",
}

var traditionalIndicators = []string{
	"bank plc", "current account", "savings account", "sort code", "first bank",
	"gtbank", "guaranty trust", "access bank", "zenith bank", "united bank for africa",
	"fidelity bank", "union bank", "sterling bank", "stanbic", "ecobank", "wema bank",
	"fcmb", "polaris bank", "branch", "cheque", "value date", "nuban",
}

var (
	// "pos" alone is a substring of deposit, purpose and position.
	posPattern           = regexp.MustCompile(`\bpos\b`)
	phonePattern         = regexp.MustCompile(`(?:\+?234|\b0)[789][01]\d{8}\b`)
	accountNumberPattern = regexp.MustCompile(`\b\d{10,}\b`)
)

const (
	brandBonus   = 5
	walletBonus  = 3
	phoneBonus   = 2
	accountBonus = 1
)

// Scores holds the points each bank type collected.
type Scores struct {
	Wallet      int
	Traditional int
}

// Winner applies the tie rule: traditional needs a strictly higher score.
func (s Scores) Winner() domain.BankType {
	if s.Traditional > s.Wallet {
		return domain.BankTraditional
	}
	return domain.BankWallet
}

// Score counts indicator presence plus heuristic bonuses.
func Score(text string) Scores {
	lower := strings.ToLower(text)
	var s Scores

	for _, k := range walletIndicators {
		if strings.Contains(lower, k) {
			s.Wallet++
		}
	}
	for _, k := range traditionalIndicators {
		if strings.Contains(lower, k) {
			s.Traditional++
		}
	}

	if posPattern.MatchString(lower) {
		s.Wallet++
	}

	if strings.Contains(lower, domain.WalletBrand) {
		s.Wallet += brandBonus
	}
	if strings.Contains(lower, "wallet") &&
		(strings.Contains(lower, "balance") || strings.Contains(lower, "funding")) {
		s.Wallet += walletBonus
	}
	if phonePattern.MatchString(text) {
		s.Wallet += phoneBonus
	}
	if accountNumberPattern.MatchString(text) {
		s.Traditional += accountBonus
	}

	return s
}

// Detect returns the bank type for raw statement text.
func Detect(text string) domain.BankType {
	return Score(text).Winner()
}
