// Package codeinput normalizes raw client keystrokes into code candidates.
// Two models are supported: a single free-text field and a row of six
// one-digit cells with focus tracking. Both produce the same canonical
// 0..6 digit string the session state machine stores.
package codeinput

import "strings"

// Length is the number of digits a complete code carries.
const Length = 6

// SingleField models one text box holding the whole code. Arbitrary input
// is accepted and sanitized: non-digits are stripped and the result is
// capped at Length, so pasting "123-456" or "code: 123456!" both yield
// "123456".
type SingleField struct {
	value string
}

// Set replaces the field content with the sanitized form of raw.
func (f *SingleField) Set(raw string) {
	f.value = Sanitize(raw)
}

// Value returns the canonical candidate, always 0..Length digits.
func (f *SingleField) Value() string { return f.value }

// Complete reports whether all Length digits are present.
func (f *SingleField) Complete() bool { return len(f.value) == Length }

// Clear resets the field, used when a resend invalidates the old code.
func (f *SingleField) Clear() { f.value = "" }

// Sanitize strips everything but ASCII digits and caps the result at
// Length characters.
func Sanitize(raw string) string {
	var b strings.Builder
	b.Grow(Length)
	for _, r := range raw {
		if r < '0' || r > '9' {
			continue
		}
		b.WriteRune(r)
		if b.Len() == Length {
			break
		}
	}
	return b.String()
}
