// Package phone normalizes raw phone-number input to E.164.
package phone

import (
	"regexp"
	"strings"
)

// e164Pattern is the final format check: +, country code, up to 15 digits.
var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// ValidationError is a remediation-oriented validation failure. The message
// is written for the end user, never a bare parse error.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// countryRule infers a country code from the shape of a number entered
// without one. Rules are ordered; the first match wins. The table is tuned
// for the platform's markets: Portugal is the home market, with US/Canada
// and Spain common among international schools.
type countryRule struct {
	length     int
	leadDigits string // set of acceptable first digits
	code       string // country code without the +
}

var inferenceRules = []countryRule{
	{length: 10, leadDigits: "23456789", code: "1"},  // NANP: 10 digits, no leading 0/1
	{length: 9, leadDigits: "9", code: "351"},        // Portuguese mobile
	{length: 9, leadDigits: "2", code: "351"},        // Portuguese landline
	{length: 9, leadDigits: "6", code: "34"},         // Spanish mobile
	{length: 9, leadDigits: "7", code: "34"},         // Spanish mobile (newer ranges)
}

// minInferableDigits is the shortest all-digit remainder that is treated as
// a plausible national number missing its country code, as opposed to junk.
const minInferableDigits = 7

// Normalize validates raw phone input and returns it in E.164 form.
// It is pure and deterministic: the same input always yields the same
// output or the same failure.
func Normalize(raw string) (string, error) {
	cleaned := stripFormatting(raw)
	if cleaned == "" {
		return "", &ValidationError{Message: "enter a phone number"}
	}

	// Dialing-prefix conventions: international 00 becomes +, a national
	// leading 0 (with no +) is dropped.
	if strings.HasPrefix(cleaned, "00") {
		cleaned = "+" + cleaned[2:]
	} else if strings.HasPrefix(cleaned, "0") {
		cleaned = cleaned[1:]
	}

	if !strings.HasPrefix(cleaned, "+") {
		inferred, ok := inferCountryCode(cleaned)
		if !ok {
			if len(cleaned) >= minInferableDigits {
				return "", &ValidationError{
					Message: "could not determine the country for this number, include the country code (e.g. +351)",
				}
			}
			return "", &ValidationError{Message: "this does not look like a valid phone number"}
		}
		cleaned = inferred
	}

	if !e164Pattern.MatchString(cleaned) {
		return "", &ValidationError{Message: "this does not look like a valid phone number"}
	}
	return cleaned, nil
}

// stripFormatting removes everything except digits and a leading +.
func stripFormatting(raw string) string {
	var b strings.Builder
	for i, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// inferCountryCode applies the ordered length/prefix heuristics to a number
// entered without a country code.
func inferCountryCode(digits string) (string, bool) {
	if digits == "" {
		return "", false
	}
	for _, rule := range inferenceRules {
		if len(digits) == rule.length && strings.ContainsRune(rule.leadDigits, rune(digits[0])) {
			return "+" + rule.code + digits, true
		}
	}
	return "", false
}
