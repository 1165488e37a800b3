package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a server-computed amount. It exposes parsing and display only; totals are
// always taken from the backend rather than derived locally.
type Money struct {
	amount decimal.Decimal
	valid  bool
}

// ParseMoney parses a decimal string such as "10.00".
func ParseMoney(raw string) (Money, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Money{}, nil
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Money{}, fmt.Errorf("parse money %q: %w", raw, err)
	}
	return Money{amount: d, valid: true}, nil
}

// MustMoney is ParseMoney for literals in tests and fixtures.
func MustMoney(raw string) Money {
	m, err := ParseMoney(raw)
	if err != nil {
		panic(err)
	}
	return m
}

// ZeroMoney is a present amount of zero, used for an empty cart.
func ZeroMoney() Money {
	return Money{amount: decimal.Zero, valid: true}
}

// Valid reports whether a value was present.
func (m Money) Valid() bool {
	return m.valid
}

// Decimal exposes the underlying value.
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// Equal compares two amounts by value.
func (m Money) Equal(other Money) bool {
	return m.valid == other.valid && m.amount.Equal(other.amount)
}

// String renders the amount with two decimal places.
func (m Money) String() string {
	return m.amount.StringFixed(2)
}

// Format renders the amount followed by its currency code.
func (m Money) Format(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return m.String()
	}
	return m.String() + " " + currency
}

func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = Money{}
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("money: %w", err)
	}
	*m = Money{amount: d, valid: true}
	return nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	if !m.valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.amount.StringFixed(2))
}
