// Package core holds the ledger domain: contacts, transactions, and the
// balance arithmetic that turns one into statements about the other.
//
// This file contains amount parsing and display formatting. All monetary
// values are decimal.Decimal end to end; floats never touch the money path.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered amount string to an exact decimal.
//
// It accepts both dot (12.34) and comma (12,34) separators. Only strictly
// positive amounts are valid; empty strings, signs, and non-numeric input
// return ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("500")   -> 500, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("0")     -> ErrInvalidAmount
//	ParseAmount("-5")    -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatGrouped renders a decimal as a locale-grouped integer string, the
// "N0" style the dashboard cards expect: rounded to whole units, thousands
// separated by commas ("1234567.89" -> "1,234,568").
func FormatGrouped(d decimal.Decimal) string {
	s := d.Round(0).StringFixed(0)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	out := b.String()
	if neg {
		return "-" + out
	}
	return out
}
