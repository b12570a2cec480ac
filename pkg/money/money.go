// Package money holds the fixed-point helpers used for every amount in the
// settlement engine. Amounts are decimals with two fractional digits (the
// minor currency unit, satang or cents); floats never touch a balance.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits of the minor currency unit.
const Scale = 2

var (
	ErrNotPositive = errors.New("amount must be greater than zero")
	ErrPrecision   = errors.New("amount has more than two fractional digits")
	ErrMalformed   = errors.New("amount is not a valid decimal number")
)

// Parse reads a decimal amount such as "1,250.50" or "600". Thousands
// separators are accepted; the result is not rounded.
func Parse(s string) (decimal.Decimal, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if clean == "" {
		return decimal.Zero, ErrMalformed
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return d, nil
}

// IsMinorUnit reports whether d can be represented exactly in minor units.
func IsMinorUnit(d decimal.Decimal) bool {
	return d.Round(Scale).Equal(d)
}

// ValidatePositive checks that d is strictly positive and fits the minor unit.
func ValidatePositive(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrNotPositive
	}
	if !IsMinorUnit(d) {
		return ErrPrecision
	}
	return nil
}

// Format renders d with exactly two fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Abs returns |d|.
func Abs(d decimal.Decimal) decimal.Decimal {
	return d.Abs()
}

// RoundHalfUp rounds to the minor unit, half away from zero.
func RoundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}
