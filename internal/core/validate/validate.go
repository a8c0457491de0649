// Package validate classifies raw survey responses as valid answers or
// boilerplate non-answers before any LLM call is spent on them.
package validate

import (
	"strings"
	"unicode/utf8"
)

// Validator checks responses against a configurable invalid-pattern list.
type Validator struct {
	patterns []string
}

// New builds a validator. Patterns are matched case-insensitively, either as
// the whole response or as a whitespace-delimited prefix.
func New(patterns []string) *Validator {
	normalized := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			normalized = append(normalized, p)
		}
	}
	return &Validator{patterns: normalized}
}

// IsValid reports whether text is a real answer. Blank responses, responses
// shorter than 3 characters after trimming, and pattern matches are invalid.
func (v *Validator) IsValid(text string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if utf8.RuneCountInString(normalized) < 3 {
		return false
	}

	for _, p := range v.patterns {
		if normalized == p || strings.HasPrefix(normalized, p+" ") {
			return false
		}
	}

	return true
}

// Filter splits responses into valid and invalid, preserving order.
func (v *Validator) Filter(responses []string) (valid []string, invalid []string) {
	for _, r := range responses {
		if v.IsValid(r) {
			valid = append(valid, r)
		} else {
			invalid = append(invalid, r)
		}
	}
	return valid, invalid
}
