// Package money provides a decimal-accurate monetary amount stored in
// minor units (centavos), so balances never drift through float arithmetic.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrPrecision indicates an amount with sub-centavo precision.
	ErrPrecision = errors.New("amount has more than two decimal places")
	// ErrRange indicates an amount outside the representable centavo range.
	ErrRange = errors.New("amount out of range")
)

var hundred = decimal.NewFromInt(100)

// Amount is a peso amount in centavos. 75.50 is stored as 7550.
type Amount int64

// FromDecimal converts a decimal peso value to centavos.
// Fails if the value carries sub-centavo precision or does not fit in
// int64 centavos.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	cents := d.Mul(hundred)
	if !cents.IsInteger() {
		return 0, ErrPrecision
	}
	// IntPart would wrap silently past int64; reject instead.
	n := cents.BigInt()
	if !n.IsInt64() {
		return 0, ErrRange
	}
	return Amount(n.Int64()), nil
}

// Parse converts a decimal string (e.g. "75.5") to centavos.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

// Decimal returns the amount as a peso decimal value.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -2)
}

// String renders the amount as a plain decimal, e.g. "75.5".
func (a Amount) String() string {
	return a.Decimal().String()
}

// MarshalJSON renders the amount as a JSON decimal number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal().String()), nil
}

// UnmarshalJSON accepts a JSON decimal number (or quoted decimal string).
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
