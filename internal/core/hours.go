// Package core provides hour parsing and formatting utilities.
//
// Durations are carried as decimals so that sums are exact: regrouping
// the same rows (for example when small projects are folded into an
// "Other" bucket) always yields the same grand total.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidHours = errors.New("invalid hours")

// ParseHours parses a non-negative decimal hour value.
//
// It accepts both dot (1.5) and comma (1,5) decimal separators, as found in
// spreadsheet exports.
//
// Examples:
//
//	ParseHours("3")    -> 3, nil
//	ParseHours("1,25") -> 1.25, nil
//	ParseHours("-1")   -> 0, ErrInvalidHours
func ParseHours(s string) (Hours, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidHours
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidHours
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidHours
	}
	return d, nil
}

// FormatHours renders hours with at most two decimals, trailing zeros trimmed.
func FormatHours(h Hours) string {
	return h.Round(2).String()
}

// SumHours adds up a list of hour values.
func SumHours(values ...Hours) Hours {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
