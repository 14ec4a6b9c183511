// Package money implements exact, currency aware monetary amounts on top of
// shopspring/decimal.
package money

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MismatchError is returned when an operation combines amounts in different
// currencies.
type MismatchError struct {
	Left  Currency
	Right Currency
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: %s and %s", e.Left, e.Right)
}

// Money is an immutable amount in a single currency.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// New returns amount expressed in currency c.
func New(amount decimal.Decimal, c Currency) Money {
	return Money{amount: amount, currency: c}
}

// Zero returns a zero amount in currency c.
func Zero(c Currency) Money {
	return Money{amount: decimal.Zero, currency: c}
}

// Parse parses a decimal string into an amount of currency c.
func Parse(amount string, c Currency) (Money, error) {
	if !c.Valid() {
		return Money{}, errors.Wrapf(ErrUnknownCurrency, "%q", string(c))
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, errors.Wrapf(err, "parse amount %q", amount)
	}
	return New(d, c), nil
}

// MinimalPrice returns one minor unit of c, the lowest price a product line can
// be discounted to.
func MinimalPrice(c Currency) Money {
	return New(decimal.New(1, -c.Digits()), c)
}

// Amount returns the decimal amount.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the currency of m.
func (m Money) Currency() Currency { return m.currency }

func (m Money) check(o Money) error {
	if m.currency != o.currency {
		return &MismatchError{Left: m.currency, Right: o.currency}
	}
	return nil
}

// Add returns m + o.
func (m Money) Add(o Money) (Money, error) {
	if err := m.check(o); err != nil {
		return Money{}, err
	}
	return New(m.amount.Add(o.amount), m.currency), nil
}

// Sub returns m - o.
func (m Money) Sub(o Money) (Money, error) {
	if err := m.check(o); err != nil {
		return Money{}, err
	}
	return New(m.amount.Sub(o.amount), m.currency), nil
}

// Mul multiplies m by a scalar, e.g. a line quantity. The result is not
// rounded.
func (m Money) Mul(d decimal.Decimal) Money {
	return New(m.amount.Mul(d), m.currency)
}

// Percent returns pct percent of m rounded half-up to the minor unit.
func (m Money) Percent(pct decimal.Decimal) Money {
	return New(m.amount.Mul(pct).Div(hundred), m.currency).Round()
}

// Round rounds m half-up to the minor unit of its currency.
func (m Money) Round() Money {
	return New(m.amount.Round(m.currency.Digits()), m.currency)
}

// Cmp compares m and o, returning -1, 0 or +1.
func (m Money) Cmp(o Money) (int, error) {
	if err := m.check(o); err != nil {
		return 0, err
	}
	return m.amount.Cmp(o.amount), nil
}

// Max returns the greater of m and o.
func (m Money) Max(o Money) (Money, error) {
	c, err := m.Cmp(o)
	if err != nil {
		return Money{}, err
	}
	if c < 0 {
		return o, nil
	}
	return m, nil
}

// Min returns the lesser of m and o.
func (m Money) Min(o Money) (Money, error) {
	c, err := m.Cmp(o)
	if err != nil {
		return Money{}, err
	}
	if c > 0 {
		return o, nil
	}
	return m, nil
}

// Equal reports whether m and o have the same currency and value.
func (m Money) Equal(o Money) bool {
	return m.currency == o.currency && m.amount.Equal(o.amount)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// StringFixed formats the amount with exactly the minor unit digits of its
// currency.
func (m Money) StringFixed() string {
	return m.amount.StringFixed(m.currency.Digits())
}

func (m Money) String() string {
	return m.StringFixed() + " " + string(m.currency)
}

// Prices holds one amount per currency.
type Prices map[Currency]decimal.Decimal

// Get returns the amount configured for c.
func (p Prices) Get(c Currency) (Money, bool) {
	d, ok := p[c]
	if !ok {
		return Money{}, false
	}
	return New(d, c), true
}

// Missing returns the supported currencies without an amount in p.
func (p Prices) Missing() []Currency {
	var missing []Currency
	for _, c := range Currencies() {
		if _, ok := p[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}
