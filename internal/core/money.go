// Package core provides money parsing and handling utilities.
//
// Amounts are exact decimals. Every value that reaches storage or the share
// calculator has at most two fractional digits.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// ParseAmount converts a user supplied decimal string to an amount in euros.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Signs, zero and anything that
// is not a plain decimal number are rejected with ErrInvalidAmount.
//
// Examples:
//   ParseAmount("12.34") -> 12.34, nil
//   ParseAmount("12,345") -> 12.35, nil
//   ParseAmount("-1") -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = RoundCents(d)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseOptionalAmount parses s, treating an empty string as "no value".
// Zero is allowed here: a static share of zero is a meaningful override.
func ParseOptionalAmount(s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil || d.IsNegative() {
		return decimal.NullDecimal{}, ErrInvalidAmount
	}
	return decimal.NewNullDecimal(RoundCents(d)), nil
}

// RoundCents rounds half-up (away from zero) to two decimals.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// HalfOf splits an amount in two equal parts, rounding half-up to cents:
// HalfOf(250) = 125.00, HalfOf(0.05) = 0.03.
func HalfOf(d decimal.Decimal) decimal.Decimal {
	return RoundCents(d.Div(two))
}

// FormatAmount renders d with exactly two decimals and a dot separator,
// the wire format of every amount.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatEuros formats an amount as a Euro currency string (e.g., "€12,34").
func FormatEuros(d decimal.Decimal) string {
	s := strings.Replace(d.Abs().StringFixed(2), ".", ",", 1)
	if d.IsNegative() {
		return "-€" + s
	}
	return "€" + s
}
