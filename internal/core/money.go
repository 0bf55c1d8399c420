// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and the JSON form of Money used by the persisted ledger document.
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxCents bounds the magnitude of any single amount (ten trillion major
// units). Ledger sums are checked separately by CheckTotals.
const MaxCents int64 = 1_000_000_000_000_000

// Money is a fixed-point amount with two fractional digits.
type Money struct {
	Cents int64
}

// FromMajor builds Money from whole units (e.g. 1500 so'm).
func FromMajor(units int64) Money {
	return Money{Cents: units * 100}
}

// Validate checks a transaction amount: positive and at most MaxCents.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return m.InRange()
}

// InRange reports ErrAmountOutOfRange when |m| exceeds MaxCents.
func (m Money) InRange() error {
	if m.Cents > MaxCents || m.Cents < -MaxCents {
		return ErrAmountOutOfRange
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// Float returns the major-unit value as a float64 for ratios and display.
// Use Cents for calculations.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

// String renders the value in major units with up to two decimals: "1500", "-12.5".
func (m Money) String() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := cents / 100
	frac := cents % 100
	if frac == 0 {
		return sign + strconv.FormatInt(whole, 10)
	}
	s := fmt.Sprintf("%s%d.%02d", sign, whole, frac)
	return strings.TrimSuffix(s, "0")
}

// MarshalJSON encodes Money as a JSON number in major units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		m.Cents = 0
		return nil
	}
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	v, err := ParseDecimal(s)
	if err != nil {
		return fmt.Errorf("decode amount %q: %w", s, err)
	}
	*m = v
	return nil
}

// ParseDecimal parses a signed decimal amount. Zero and negative values are
// allowed, which is what a starting balance needs; transaction amounts are
// checked with Validate. Both dot (12.34) and comma (12,34) separators are
// accepted and the third decimal rounds half-up. Exponent notation falls
// back to float parsing. Magnitudes above MaxCents are rejected.
func ParseDecimal(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, fmt.Errorf("%w: empty amount", ErrValidation)
	}
	s = strings.ReplaceAll(s, ",", ".")

	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f < 0 {
			return Money{}, fmt.Errorf("%w: invalid amount", ErrValidation)
		}
		if f*100 > float64(MaxCents) {
			return Money{}, ErrAmountOutOfRange
		}
		cents := int64(math.Round(f * 100))
		if neg {
			cents = -cents
		}
		return Money{Cents: cents}, nil
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, fmt.Errorf("%w: invalid amount", ErrValidation)
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart+fracPart == "" {
		return Money{}, fmt.Errorf("%w: amount has no digits", ErrValidation)
	}
	if intPart == "" {
		intPart = "0"
	}
	for i := 0; i < len(intPart+fracPart); i++ {
		if c := (intPart + fracPart)[i]; c < '0' || c > '9' {
			return Money{}, fmt.Errorf("%w: invalid amount", ErrValidation)
		}
	}

	// Anything longer than MaxCents' integer digits is out of range, which
	// also keeps ParseInt and the *100 below from overflowing.
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || iv > MaxCents/100 {
		return Money{}, ErrAmountOutOfRange
	}

	// Take first two fractional digits; then half-up rounding on third
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

	cents := iv*100 + fracCents
	if cents > MaxCents {
		return Money{}, ErrAmountOutOfRange
	}
	if neg {
		cents = -cents
	}
	return Money{Cents: cents}, nil
}
