// Package phonex normalizes and shape-checks phone numbers used as SMS
// destinations. This is deliberately minimal: the collecting UI owns real
// validation, the service only refuses values that cannot possibly be a
// phone number. Accepted shape: digits with an optional leading plus, at
// least 7 digits total.
package phonex

import (
	"errors"
	"strings"
)

const minDigits = 7

var (
	ErrEmpty     = errors.New("phonex: empty destination")
	ErrMalformed = errors.New("phonex: malformed destination")
)

// Normalize strips formatting characters (spaces, dots, dashes, parentheses)
// and validates the minimal E.164-ish shape. It returns the canonical form:
// an optional leading "+" followed by digits only.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmpty
	}

	var b strings.Builder
	for i, r := range raw {
		switch {
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
			// formatting noise, drop it
		default:
			return "", ErrMalformed
		}
	}

	normalized := b.String()
	digits := strings.TrimPrefix(normalized, "+")
	if len(digits) < minDigits {
		return "", ErrMalformed
	}

	return normalized, nil
}
