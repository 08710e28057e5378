package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyNGN Currency = "NGN"
)

func (c Currency) IsValid() bool {
	switch c {
	case CurrencyUSD, CurrencyEUR, CurrencyGBP, CurrencyNGN:
		return true
	}
	return false
}

// minorDigits is the number of fractional digits every supported currency carries.
const minorDigits = 2

var maxMinor = decimal.NewFromInt(math.MaxInt64)

// Limits on decimal inputs. Anything outside them is rejected before any
// arithmetic, which would otherwise rescale to the input's exponent.
const (
	maxDecimalExponent = 18
	maxCoefficientBits = 128
)

// Bounded reports whether d is small enough in scale and magnitude to be
// worked on. Amounts and percentages are checked with it on the way in.
func Bounded(d decimal.Decimal) bool {
	exp := d.Exponent()
	return exp >= -maxDecimalExponent && exp <= maxDecimalExponent &&
		d.Coefficient().BitLen() <= maxCoefficientBits
}

// Money is an exact amount in minor units (cents) tagged with its currency.
type Money struct {
	Minor    int64
	Currency Currency
}

func NewMoney(minor int64, currency Currency) Money {
	return Money{Minor: minor, Currency: currency}
}

// ParseMoney parses a decimal string such as "12.50". Inputs with more than two
// fractional digits are rejected rather than rounded.
func ParseMoney(s string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("ParseMoney: %w: %q", ErrInvalidAmount, s)
	}
	return MoneyFromDecimal(d, currency)
}

func MoneyFromDecimal(d decimal.Decimal, currency Currency) (Money, error) {
	if !Bounded(d) {
		return Money{}, fmt.Errorf("MoneyFromDecimal: %w: out of range", ErrInvalidAmount)
	}
	if !d.Equal(d.Truncate(minorDigits)) {
		return Money{}, fmt.Errorf("MoneyFromDecimal: %w: %s has more than %d fractional digits", ErrInvalidAmount, d, minorDigits)
	}
	minor := d.Shift(minorDigits)
	if minor.Abs().GreaterThan(maxMinor) {
		return Money{}, fmt.Errorf("MoneyFromDecimal: %w: %s out of range", ErrInvalidAmount, d)
	}
	return Money{Minor: minor.IntPart(), Currency: currency}, nil
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Minor, -minorDigits)
}

// String renders the amount with exactly two fractional digits. Every outbound
// representation of Money goes through here.
func (m Money) String() string {
	return m.Decimal().StringFixed(minorDigits)
}

func (m Money) IsZero() bool     { return m.Minor == 0 }
func (m Money) IsPositive() bool { return m.Minor > 0 }
func (m Money) IsNegative() bool { return m.Minor < 0 }

// Add fails on a currency mismatch or when the result leaves the int64 range.
func (m Money) Add(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("Add: %w: %s vs %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	if (o.Minor > 0 && m.Minor > math.MaxInt64-o.Minor) || (o.Minor < 0 && m.Minor < math.MinInt64-o.Minor) {
		return Money{}, fmt.Errorf("Add: %w: %s + %s", ErrAmountOverflow, m, o)
	}
	return Money{Minor: m.Minor + o.Minor, Currency: m.Currency}, nil
}

func (m Money) Sub(o Money) (Money, error) {
	if o.Minor == math.MinInt64 {
		return Money{}, fmt.Errorf("Sub: %w: %s - %s", ErrAmountOverflow, m, o)
	}
	return m.Add(Money{Minor: -o.Minor, Currency: o.Currency})
}

func (m Money) SameCurrency(o Money) bool {
	return m.Currency == o.Currency
}
