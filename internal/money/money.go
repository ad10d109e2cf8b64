// Package money fixes the monetary conventions used across the casino:
// amounts are decimals with at most two fractional digits, and the poker
// engine runs on exact int64 cents bridged through this package.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Zero is the additive identity, exported for readability at call sites.
var Zero = decimal.Zero

// Parse reads a decimal amount off the wire and rejects values with more
// than two fractional digits. It does not constrain the sign; callers own
// their own positivity checks.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q: %w", s, err)
	}
	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return decimal.Zero, fmt.Errorf("amount %q: more than two decimal places", s)
	}
	return d, nil
}

// MustParse is Parse for constants in tests and config defaults.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Round2 rounds half away from zero to two decimal places. This is the
// single rounding rule used anywhere the casino computes a fee.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FromCents converts exact engine cents into a decimal amount.
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

// ToCents converts a decimal amount into exact engine cents. Amounts that
// do not land on a whole cent are rejected rather than rounded.
func ToCents(d decimal.Decimal) (int64, error) {
	shifted := d.Shift(2)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("amount %s is not a whole number of cents", d)
	}
	if !shifted.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %s overflows cents", d)
	}
	return shifted.IntPart(), nil
}

// Format renders an amount with exactly two decimal places for views,
// events and persisted rows.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}
