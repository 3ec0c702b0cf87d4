// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents. Text and JSON inputs go through
// shopspring/decimal so that values such as 0.1 or 12.345 convert exactly,
// with half-up rounding on the third decimal place.
package core

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	maxCents = decimal.NewFromInt(1<<63 - 1)
	minCents = decimal.NewFromInt(-1 << 63)
)

// ParseMoney converts a decimal string to Money. It accepts dot or comma as
// the separator and rounds half-up to cents; zero and negative values are
// allowed.
func ParseMoney(s string) (Money, error) {
	cents, err := parseCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents}, nil
}

// MoneyFromFloat converts a float read from a config or plan file.
func MoneyFromFloat(f float64) (Money, error) {
	cents, err := decimalToCents(decimal.NewFromFloat(f))
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents}, nil
}

func parseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return decimalToCents(d)
}

func decimalToCents(d decimal.Decimal) (int64, error) {
	c := d.Shift(2).Round(0)
	if c.GreaterThan(maxCents) || c.LessThan(minCents) {
		return 0, ErrInvalidAmount
	}
	return c.IntPart(), nil
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float64 returns the value as a float64 for display purposes.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Float64() float64 {
	return float64(m.Cents) / 100.0
}

// String formats the amount with two decimals, e.g. "12.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (m Money) IsNegative() bool { return m.Cents < 0 }
func (m Money) IsZero() bool     { return m.Cents == 0 }

// MarshalJSON writes the amount as a plain JSON number in major units (40, 12.5).
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		m.Cents = 0
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(raw)
		if err != nil {
			return ErrInvalidAmount
		}
		raw = s
	}
	cents, err := parseCents(raw)
	if err != nil {
		return err
	}
	m.Cents = cents
	return nil
}
