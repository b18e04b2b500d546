// Package core provides amount parsing and formatting utilities.
//
// Ledger amounts are whole currency units (won). There is no minor unit, so
// parsing rejects fractional input instead of rounding it.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts user input such as "10,000" or " 5000 " into a
// positive whole amount.
//
// Thousands separators (comma) and surrounding whitespace are accepted.
// Signs, decimal points, zero and anything non-numeric are rejected with
// ErrInvalidAmount.
//
// Examples:
//	ParseAmount("10,000") -> 10000, nil
//	ParseAmount("3000")   -> 3000, nil
//	ParseAmount("12.5")   -> 0, ErrInvalidAmount
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// FormatAmount renders an amount with thousands separators, e.g. -1,234,000.
func FormatAmount(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	pre := len(digits) % 3
	if pre > 0 {
		b.WriteString(digits[:pre])
	}
	for i := pre; i < len(digits); i += 3 {
		if b.Len() > 0 && !(neg && b.Len() == 1) {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
