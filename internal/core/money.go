// Package core holds the domain types and the pure derived-state
// computations: amount parsing, filtering and aggregation over records.
//
// This file contains amount parsing. Forms accept locale-formatted numeric
// strings; everything downstream works on a canonical decimal with two
// places, so parsing happens exactly once at the write boundary.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in cents of whichever currency tags the record.
// Cents keep the write path exact; canonical strings are what gets stored.
type Money struct {
	Cents int64
}

// ParseAmount converts a locale-formatted numeric string to cents with
// half-up rounding on the third decimal place.
//
// Locale "es" uses '.' for thousands and ',' for decimals; any other locale
// is treated as "en" (',' thousands, '.' decimals). Negative amounts are
// rejected, zero is allowed.
//
// Examples:
//
//	ParseAmount("es", "1.234,56") -> 123456 cents
//	ParseAmount("en", "1,234.56") -> 123456 cents
//	ParseAmount("en", "12.345")   -> 1235 cents (rounds up)
func ParseAmount(locale, s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}

	thousands, decimal := ",", "."
	if normalizeLocale(locale) == "es" {
		thousands, decimal = ".", ","
	}
	s = strings.ReplaceAll(s, thousands, "")
	s = strings.ReplaceAll(s, decimal, ".")

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return Money{}, ErrInvalidAmount
	}

	// First two fractional digits, half-up rounding on the third.
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}

	return Money{Cents: iv*100 + fracCents}, nil
}

// ParseCanonical parses an already-canonical decimal string ("1234.56").
// An empty string is zero; stored amounts may legitimately be absent.
func ParseCanonical(s string) (Money, error) {
	if strings.TrimSpace(s) == "" {
		return Money{}, nil
	}
	return ParseAmount("en", s)
}

// Canonical renders the amount as the stored decimal form with two places.
func (m Money) Canonical() string {
	return strconv.FormatInt(m.Cents/100, 10) + "." + pad2(m.Cents%100)
}

// Value returns the amount as a float64, the unit the aggregator sums in.
func (m Money) Value() float64 {
	return float64(m.Cents) / 100.0
}

// AmountValue parses the record's stored amount. The second return is false
// when the amount is missing or not numeric; such records are excluded from
// sums but still feed the uniqueness sets.
func (r Record) AmountValue() (float64, bool) {
	s := strings.TrimSpace(r.Amount)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func normalizeLocale(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		locale = locale[:i]
	}
	return locale
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
