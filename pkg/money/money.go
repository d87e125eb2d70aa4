// Package money provides the amount parsing and presentation helpers shared by
// extraction and export. Arithmetic is done on shopspring/decimal values;
// go-money is used for currency-aware rendering.
package money

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Common currency codes (ISO-4217)
const (
	ARS = "ARS" // Argentine Peso
	USD = "USD" // US Dollar
	EUR = "EUR" // Euro
	BRL = "BRL" // Brazilian Real
)

// DefaultCurrency is used when a client has no currency configured.
const DefaultCurrency = ARS

// ParseLenient parses a spreadsheet cell into an amount. Every character other
// than digits, '.' and '-' is dropped first ("$ 1,234.50" becomes 1234.50).
// Anything that still fails to parse is zero.
func ParseLenient(s string) decimal.Decimal {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Money is a monetary value in minor units of a currency.
type Money struct {
	m *money.Money
}

// NewFromDecimal creates Money from a decimal amount in major units, rounding
// half away from zero to the currency's minor unit.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currencyCode = USD
		currency = money.GetCurrency(USD)
	}

	multiplier := decimal.New(1, int32(currency.Fraction))
	cents := amount.Mul(multiplier).Round(0).IntPart()

	return &Money{m: money.New(cents, currencyCode)}
}

// Amount returns the amount in minor units (cents)
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 currency code
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// Display returns the formatted string with currency symbol (e.g., "$1,234.56")
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Display()
}

// Display renders a decimal amount in the given currency.
func Display(amount decimal.Decimal, currencyCode string) string {
	return NewFromDecimal(amount, currencyCode).Display()
}

// Fixed2 renders an amount with exactly two decimals and no grouping.
func Fixed2(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// WithinTolerance reports whether |amount| <= tolerance.
func WithinTolerance(amount, tolerance decimal.Decimal) bool {
	return amount.Abs().LessThanOrEqual(tolerance)
}
