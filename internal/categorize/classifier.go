// Package categorize assigns transaction descriptions to a fixed category
// taxonomy using an ordered keyword table.
package categorize

import (
	"strings"
)

var canonical = buildCanonical()

func buildCanonical() map[string]string {
	m := make(map[string]string, len(rules)+1)
	for _, r := range rules {
		m[normalizeCategory(r.Category)] = r.Category
	}
	m[normalizeCategory(Other)] = Other
	return m
}

// Classify returns the first category whose keywords appear in description,
// or Other.
func Classify(description string) string {
	desc := strings.ToLower(strings.TrimSpace(description))
	if desc == "" {
		return Other
	}
	padded := " " + desc + " "

	for _, r := range rules {
		if containsAny(padded, r.Keywords) {
			return r.Category
		}
	}
	return Other
}

// Categories lists the taxonomy in match order, followed by Other.
func Categories() []string {
	out := make([]string, 0, len(rules)+1)
	for _, r := range rules {
		out = append(out, r.Category)
	}
	return append(out, Other)
}

// Canonical resolves a user-supplied category name to its taxonomy spelling.
func Canonical(name string) (string, bool) {
	c, ok := canonical[normalizeCategory(name)]
	return c, ok
}

// Rules returns a copy of the ordered rule table.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// normalizeCategory folds case and inner whitespace for comparison.
func normalizeCategory(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}
