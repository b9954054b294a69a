// Package money holds the monetary amount sent to the payment processor.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fraction digits of every Amount.
const Scale = 2

var (
	ErrInvalidCurrency = errors.New("money: currency must be a three-letter ISO 4217 code")
	ErrInvalidValue    = errors.New("money: value must be greater than zero")
)

// Amount is a currency code plus a value rounded to Scale fraction digits.
type Amount struct {
	currency string
	value    decimal.Decimal
}

// NewAmount upper-cases currency and rounds value half away from zero to two
// fraction digits, so 10.005 becomes 10.01.
func NewAmount(currency string, value decimal.Decimal) (Amount, error) {
	code, err := NormalizeCurrency(currency)
	if err != nil {
		return Amount{}, err
	}
	rounded := value.Round(Scale)
	if !rounded.IsPositive() {
		return Amount{}, fmt.Errorf("%w: %s", ErrInvalidValue, value.String())
	}
	return Amount{currency: code, value: rounded}, nil
}

// NormalizeCurrency trims and upper-cases code and checks it has the ISO 4217 shape.
func NormalizeCurrency(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
		}
	}
	return c, nil
}

func (a Amount) Currency() string { return a.currency }

func (a Amount) Decimal() decimal.Decimal { return a.value }

// Value renders the amount with exactly two fraction digits, as the processor expects.
func (a Amount) Value() string { return a.value.StringFixed(Scale) }

func (a Amount) IsZero() bool { return a.currency == "" }

func (a Amount) Equal(b Amount) bool {
	return a.currency == b.currency && a.value.Equal(b.value)
}

func (a Amount) String() string { return a.Value() + " " + a.currency }
