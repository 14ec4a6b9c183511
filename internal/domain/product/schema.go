package product

import (
	"fmt"

	"github.com/xenking/storefront/internal/domain/money"
)

// SchemaType enumerates configurable attribute kinds.
type SchemaType string

const (
	SchemaSelect  SchemaType = "select"
	SchemaString  SchemaType = "string"
	SchemaNumeric SchemaType = "numeric"
	SchemaBoolean SchemaType = "boolean"
)

// SchemaNotFoundError indicates a selection references a schema the product
// does not have.
type SchemaNotFoundError struct {
	ProductID string
	SchemaID  string
}

func (e *SchemaNotFoundError) Error() string {
	return fmt.Sprintf("schema %s not found on product %s", e.SchemaID, e.ProductID)
}

// SchemaRequiredError indicates a required schema has no selected value.
type SchemaRequiredError struct {
	ProductID string
	SchemaID  string
}

func (e *SchemaRequiredError) Error() string {
	return fmt.Sprintf("schema %s is required for product %s", e.SchemaID, e.ProductID)
}

// OptionNotFoundError indicates a select value that is not one of the schema
// options.
type OptionNotFoundError struct {
	SchemaID string
	OptionID string
}

func (e *OptionNotFoundError) Error() string {
	return fmt.Sprintf("option %s not found in schema %s", e.OptionID, e.SchemaID)
}

// Schema is a configurable product attribute, e.g. size or engraving.
type Schema struct {
	ID       string
	Name     string
	Type     SchemaType
	Required bool
	// Prices is added to the unit price whenever the schema has a value.
	Prices  money.Prices
	Options []Option
}

// Option is a selectable value of a select schema.
type Option struct {
	ID     string
	Name   string
	Prices money.Prices
}

// Price returns the unit price delta of value in c. An empty value, or
// "false" for a boolean schema, adds nothing.
func (s *Schema) Price(c money.Currency, value string) (money.Money, error) {
	zero := money.Zero(c)
	if value == "" || (s.Type == SchemaBoolean && value != "true") {
		return zero, nil
	}

	delta := s.delta(c)
	if s.Type != SchemaSelect {
		return delta, nil
	}

	for _, o := range s.Options {
		if o.ID != value {
			continue
		}
		optPrice, ok := o.Prices.Get(c)
		if !ok {
			return delta, nil
		}
		return delta.Add(optPrice)
	}
	return money.Money{}, &OptionNotFoundError{SchemaID: s.ID, OptionID: value}
}

func (s *Schema) delta(c money.Currency) money.Money {
	if p, ok := s.Prices.Get(c); ok {
		return p
	}
	return money.Zero(c)
}
