// Package money converts currency amounts into integer cents.
//
// Every amount entering the ledger passes through this package so that
// sums over many small purchases never drift. Scaling is done in exact
// decimal arithmetic and rounded half away from zero to whole cents.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for amounts that are not numbers, are not
// finite, or do not fit in int64 cents.
var ErrInvalidAmount = errors.New("invalid amount")

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

const (
	// maxInputLen bounds the length of a parsed amount string.
	maxInputLen = 64

	// maxIntDigits is the most integer digits a dollar amount can have and
	// still fit in int64 cents.
	maxIntDigits = 17
)

// ToCents scales a decimal currency amount to whole cents.
func ToCents(amount decimal.Decimal) (int64, error) {
	if amount.IsZero() {
		return 0, nil
	}
	// Decide by magnitude before scaling: Mul and Round work at full
	// precision, which is unbounded for large exponents.
	magnitude := int64(amount.NumDigits()) + int64(amount.Exponent())
	if magnitude > maxIntDigits+1 {
		return 0, fmt.Errorf("%w: amount out of range", ErrInvalidAmount)
	}
	if magnitude < -2 {
		// Below a tenth of a cent.
		return 0, nil
	}

	cents := amount.Mul(hundred).Round(0)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return 0, fmt.Errorf("%w: amount out of range", ErrInvalidAmount)
	}
	return cents.IntPart(), nil
}

// ParseCents parses a decimal string such as "12.34", "-0.5" or "1e2".
// A leading "$" and surrounding whitespace are accepted.
func ParseCents(s string) (int64, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return 0, err
	}
	cents, err := ToCents(d)
	if err != nil {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
	}
	return cents, nil
}

// ParseAmount parses a currency string into a decimal without scaling it.
// The accepted form is an optional "-", an optional "$", then an unsigned
// decimal number.
func ParseAmount(s string) (decimal.Decimal, error) {
	if len(s) > maxInputLen {
		return decimal.Zero, fmt.Errorf("%w: longer than %d characters", ErrInvalidAmount, maxInputLen)
	}

	trimmed := strings.TrimSpace(s)
	neg := strings.HasPrefix(trimmed, "-")
	trimmed = strings.TrimPrefix(trimmed, "-")
	trimmed = strings.TrimPrefix(trimmed, "$")
	if trimmed == "" || trimmed[0] == '-' || trimmed[0] == '+' {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// OptionalCents converts an amount that may be absent. Nil maps to 0.
func OptionalCents(s *string) (int64, error) {
	if s == nil {
		return 0, nil
	}
	return ParseCents(*s)
}

// FloatCents converts a float-typed amount via its shortest decimal
// representation, so 0.1+0.2 style noise never reaches the rounding step.
func FloatCents(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, f)
	}
	return ToCents(decimal.NewFromFloat(f))
}

// FromCents returns the decimal dollar amount for a number of cents.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Format renders cents as a dollar string, e.g. "$1,234.56" or "-$0.05".
func Format(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
	}
	// Negating MinInt64 overflows; go through uint64.
	abs := uint64(cents)
	if cents < 0 {
		abs = uint64(-(cents + 1)) + 1
	}
	return fmt.Sprintf("%s$%s.%02d", sign, humanize.Comma(int64(abs/100)), abs%100)
}
