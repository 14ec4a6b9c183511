// Package shipping models shipping methods priced by cart value ranges.
package shipping

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/money"
)

// ErrNotFound is returned when a shipping method does not exist.
var ErrNotFound = errors.New("shipping method not found")

// PriceMissingError indicates a method has no price range covering a cart
// value in the given currency.
type PriceMissingError struct {
	MethodID string
	Currency money.Currency
}

func (e *PriceMissingError) Error() string {
	return fmt.Sprintf("shipping method %s has no price range for %s", e.MethodID, e.Currency)
}

// PriceRange charges Price for carts worth at least Start.
type PriceRange struct {
	Currency money.Currency
	Start    decimal.Decimal
	Price    decimal.Decimal
}

// Method is a shipping option.
type Method struct {
	ID          string
	Name        string
	PriceRanges []PriceRange
}

// PriceFor returns the shipping price for a cart worth value: the price of the
// range with the greatest start not above value.
func (m *Method) PriceFor(value money.Money) (money.Money, error) {
	var (
		best  *PriceRange
		found bool
	)
	for i := range m.PriceRanges {
		r := &m.PriceRanges[i]
		if r.Currency != value.Currency() || r.Start.GreaterThan(value.Amount()) {
			continue
		}
		if !found || r.Start.GreaterThan(best.Start) {
			best, found = r, true
		}
	}
	if !found {
		return money.Money{}, &PriceMissingError{MethodID: m.ID, Currency: value.Currency()}
	}
	return money.New(best.Price, best.Currency), nil
}

// Repository loads shipping methods.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Method, error)
}
