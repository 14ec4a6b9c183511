package money

import (
	"strings"

	"github.com/go-faster/errors"
)

// Currency is an ISO 4217 currency code supported by the store.
type Currency string

// Supported currencies.
const (
	PLN Currency = "PLN"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	USD Currency = "USD"
	CZK Currency = "CZK"
	JPY Currency = "JPY"
)

// ErrUnknownCurrency is returned when a currency code is not supported.
var ErrUnknownCurrency = errors.New("unknown currency")

// minorDigits maps each supported currency to the number of digits of its
// minor unit.
var minorDigits = map[Currency]int32{
	PLN: 2,
	EUR: 2,
	GBP: 2,
	USD: 2,
	CZK: 2,
	JPY: 0,
}

// Currencies returns every supported currency in a stable order.
func Currencies() []Currency {
	return []Currency{PLN, EUR, GBP, USD, CZK, JPY}
}

// ParseCurrency parses a case-insensitive currency code.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", errors.Wrapf(ErrUnknownCurrency, "%q", s)
	}
	return c, nil
}

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool {
	_, ok := minorDigits[c]
	return ok
}

// Digits returns the number of minor unit digits of c.
func (c Currency) Digits() int32 {
	return minorDigits[c]
}

func (c Currency) String() string {
	return string(c)
}
