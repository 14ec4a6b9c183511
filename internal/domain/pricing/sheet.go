package pricing

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/money"
	"github.com/xenking/storefront/internal/domain/product"
)

// Line is a priced cart item or order product. Prices are per unit.
type Line struct {
	CartItemID   string
	Product      *product.Product
	Quantity     decimal.Decimal
	Schemas      map[string]string
	PriceInitial money.Money
	Price        money.Money
}

// Total returns the discounted line total.
func (l *Line) Total() money.Money {
	return l.Price.Mul(l.Quantity).Round()
}

// Sheet is the running priced state of a cart or order while discounts are
// applied to it.
type Sheet struct {
	Currency             money.Currency
	ShippingMethodID     string
	Lines                []Line
	CartTotalInitial     money.Money
	ShippingPriceInitial money.Money
	ShippingPrice        money.Money

	// orderReduction accumulates ORDER_VALUE discounts, which reduce the
	// total rather than any line.
	orderReduction decimal.Decimal
}

// NewSheet prices every cart item at its undiscounted unit price.
func NewSheet(cart *Cart, shippingInitial money.Money) (*Sheet, error) {
	lines := make([]Line, 0, len(cart.Items))
	for _, it := range cart.Items {
		price, err := it.Product.UnitPrice(cart.Currency, it.Schemas)
		if err != nil {
			return nil, err
		}
		lines = append(lines, Line{
			CartItemID:   it.ID,
			Product:      it.Product,
			Quantity:     it.Quantity,
			Schemas:      it.Schemas,
			PriceInitial: price,
			Price:        price,
		})
	}
	return SheetFromLines(cart.Currency, cart.ShippingMethodID, lines, shippingInitial)
}

// SheetFromLines builds a sheet from already priced lines, e.g. persisted
// order products.
func SheetFromLines(c money.Currency, shippingMethodID string, lines []Line, shippingInitial money.Money) (*Sheet, error) {
	if shippingInitial.Currency() != c {
		return nil, &money.MismatchError{Left: c, Right: shippingInitial.Currency()}
	}

	initial := decimal.Zero
	for _, l := range lines {
		if l.PriceInitial.Currency() != c {
			return nil, &money.MismatchError{Left: c, Right: l.PriceInitial.Currency()}
		}
		if !l.Quantity.IsPositive() {
			return nil, errors.Errorf("line %s has non-positive quantity %s", l.CartItemID, l.Quantity)
		}
		initial = initial.Add(l.PriceInitial.Amount().Mul(l.Quantity))
	}

	return &Sheet{
		Currency:             c,
		ShippingMethodID:     shippingMethodID,
		Lines:                lines,
		CartTotalInitial:     money.New(initial, c).Round(),
		ShippingPriceInitial: shippingInitial,
		ShippingPrice:        shippingInitial,
		orderReduction:       decimal.Zero,
	}, nil
}

// InitialValue returns the undiscounted value of the cart items.
func InitialValue(cart *Cart) (money.Money, error) {
	s, err := NewSheet(cart, money.Zero(cart.Currency))
	if err != nil {
		return money.Money{}, err
	}
	return s.CartTotalInitial, nil
}

// CartTotal returns the discounted value of the items, never negative.
func (s *Sheet) CartTotal() money.Money {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.Price.Amount().Mul(l.Quantity))
	}
	total = total.Sub(s.orderReduction)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return money.New(total, s.Currency).Round()
}

// Summary returns the cart total plus shipping.
func (s *Sheet) Summary() money.Money {
	return money.New(s.CartTotal().Amount().Add(s.ShippingPrice.Amount()), s.Currency)
}

// cheapestLine returns the index of the line with the lowest current unit
// price, or -1 for an empty sheet. Ties go to the lowest index.
func (s *Sheet) cheapestLine() int {
	best := -1
	for i := range s.Lines {
		if best < 0 || s.Lines[i].Price.Amount().LessThan(s.Lines[best].Price.Amount()) {
			best = i
		}
	}
	return best
}

// splitUnit moves one unit of line i onto its own line directly after it and
// returns the index of the single unit line. Lines of at most one unit are
// not split.
func (s *Sheet) splitUnit(i int) int {
	one := decimal.NewFromInt(1)
	if s.Lines[i].Quantity.LessThanOrEqual(one) {
		return i
	}

	unit := s.Lines[i]
	unit.Quantity = one
	s.Lines[i].Quantity = s.Lines[i].Quantity.Sub(one)

	s.Lines = append(s.Lines, Line{})
	copy(s.Lines[i+2:], s.Lines[i+1:])
	s.Lines[i+1] = unit
	return i + 1
}
