package product

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/money"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// PriceMissingError indicates the product has no price in the requested
// currency.
type PriceMissingError struct {
	ProductID string
	Currency  money.Currency
}

func (e *PriceMissingError) Error() string {
	return fmt.Sprintf("product %s has no price in %s", e.ProductID, e.Currency)
}

// Product represents a catalog item available for purchase.
type Product struct {
	ID      string
	Name    string
	Prices  money.Prices
	Schemas []Schema
	// SetIDs lists the product sets the product is directly attached to.
	SetIDs []string
}

// BasePrice returns the product price in c without schema deltas.
func (p *Product) BasePrice(c money.Currency) (money.Money, error) {
	price, ok := p.Prices.Get(c)
	if !ok {
		return money.Money{}, &PriceMissingError{ProductID: p.ID, Currency: c}
	}
	return price, nil
}

// UnitPrice returns the price of one unit in c including the price deltas of
// the selected schema values. selections maps schema id to the chosen value
// (an option id for select schemas).
func (p *Product) UnitPrice(c money.Currency, selections map[string]string) (money.Money, error) {
	price, err := p.BasePrice(c)
	if err != nil {
		return money.Money{}, err
	}

	for id := range selections {
		if p.schema(id) == nil {
			return money.Money{}, &SchemaNotFoundError{ProductID: p.ID, SchemaID: id}
		}
	}

	for i := range p.Schemas {
		s := &p.Schemas[i]
		value := selections[s.ID]
		if value == "" && s.Required {
			return money.Money{}, &SchemaRequiredError{ProductID: p.ID, SchemaID: s.ID}
		}

		delta, err := s.Price(c, value)
		if err != nil {
			return money.Money{}, err
		}
		if price, err = price.Add(delta); err != nil {
			return money.Money{}, err
		}
	}
	return price, nil
}

func (p *Product) schema(id string) *Schema {
	for i := range p.Schemas {
		if p.Schemas[i].ID == id {
			return &p.Schemas[i]
		}
	}
	return nil
}

// Repository defines read operations for the product catalog.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

// SetRepository loads the product set hierarchy.
type SetRepository interface {
	Tree(ctx context.Context) (*SetTree, error)
}
