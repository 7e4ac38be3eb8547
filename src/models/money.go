package models

import (
	"errors"

	"github.com/shopspring/decimal"
)

// MaxMoney is the largest amount a NUMERIC(10,2) column holds.
var MaxMoney = decimal.RequireFromString("99999999.99")

// Money is a fixed-point amount with two fractional digits. It renders as a
// quoted string ("12.50") and accepts either a JSON number or string.
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

func MustMoney(s string) Money {
	return Money{Decimal: decimal.RequireFromString(s)}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.StringFixed(2) + `"`), nil
}

func (m Money) String() string {
	return m.StringFixed(2)
}

// CheckMoney reports why d cannot be stored as a non-negative amount, or nil.
func CheckMoney(d decimal.Decimal) error {
	if d.IsNegative() {
		return errors.New("Ensure this value is greater than or equal to 0.")
	}
	if d.Exponent() < -2 {
		return errors.New("Ensure that there are no more than 2 decimal places.")
	}
	if d.GreaterThan(MaxMoney) {
		return errors.New("Ensure that there are no more than 10 digits in total.")
	}
	return nil
}
