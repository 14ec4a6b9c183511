package pricing

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/money"
	"github.com/xenking/storefront/internal/domain/product"
)

// Applied records a discount that changed a cart or order.
type Applied struct {
	Discount *discount.Discount
	// Group is the condition group that passed, nil for unconditional
	// discounts.
	Group *discount.ConditionGroup
	// Amount is how much the discount lowered the summary.
	Amount money.Money
}

// CartResource is a fully priced cart with the sales and coupons that fired.
type CartResource struct {
	*Sheet
	Sales   []Applied
	Coupons []Applied
}

// SortDiscounts returns discounts in application order: sales before coupons,
// then by priority descending, creation time ascending and id.
func SortDiscounts(discounts []discount.Discount) []*discount.Discount {
	out := make([]*discount.Discount, len(discounts))
	for i := range discounts {
		out[i] = &discounts[i]
	}
	slices.SortStableFunc(out, func(a, b *discount.Discount) int {
		if a.IsCoupon() != b.IsCoupon() {
			if a.IsCoupon() {
				return 1
			}
			return -1
		}
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// ApplyDiscountOnLine reduces the unit price of line when d targets its
// product. It reports whether d targeted the line.
func ApplyDiscountOnLine(ev *Evaluation, d *discount.Discount, line *Line) (bool, error) {
	if !AppliesToProduct(ev, d, line.Product) {
		return false, nil
	}
	price, err := reducePrice(line.Price, d)
	if err != nil {
		return false, err
	}
	line.Price = price
	return true, nil
}

// ApplyDiscountOnProduct returns the catalog price of p after d, reporting
// whether d targets p.
func ApplyDiscountOnProduct(ev *Evaluation, d *discount.Discount, p *product.Product, price money.Money) (money.Money, bool, error) {
	if !AppliesToProduct(ev, d, p) {
		return price, false, nil
	}
	reduced, err := reducePrice(price, d)
	if err != nil {
		return price, false, err
	}
	return reduced, true, nil
}

// reducePrice lowers a unit price by d, never below one minor unit. Prices
// already below the floor are left as they are.
func reducePrice(price money.Money, d *discount.Discount) (money.Money, error) {
	r, err := CalcReduction(price, d)
	if err != nil {
		return money.Money{}, err
	}
	reduced, err := price.Sub(r)
	if err != nil {
		return money.Money{}, err
	}
	floor, err := money.MinimalPrice(price.Currency()).Min(price)
	if err != nil {
		return money.Money{}, err
	}
	return reduced.Max(floor)
}

// ApplyDiscountOnSheet applies d to whatever its target type selects: product
// lines, the single cheapest unit, the order value or the shipping price. It
// reports whether anything was targeted.
func ApplyDiscountOnSheet(ev *Evaluation, d *discount.Discount, s *Sheet) (bool, error) {
	switch d.TargetType {
	case discount.TargetProducts, discount.TargetProductSets:
		applied := false
		for i := range s.Lines {
			ok, err := ApplyDiscountOnLine(ev, d, &s.Lines[i])
			if err != nil {
				return false, err
			}
			applied = applied || ok
		}
		return applied, nil

	case discount.TargetCheapestProduct:
		i := s.cheapestLine()
		if i < 0 {
			return false, nil
		}
		price, err := reducePrice(s.Lines[i].Price, d)
		if err != nil {
			return false, err
		}
		if !price.Amount().LessThan(s.Lines[i].Price.Amount()) {
			return false, nil
		}
		i = s.splitUnit(i)
		s.Lines[i].Price = price
		return true, nil

	case discount.TargetOrderValue:
		total := s.CartTotal()
		r, err := CalcReduction(total, d)
		if err != nil {
			return false, err
		}
		if r, err = r.Min(total); err != nil {
			return false, err
		}
		s.orderReduction = s.orderReduction.Add(r.Amount())
		return true, nil

	case discount.TargetShippingPrice:
		if s.ShippingMethodID == "" || !AppliesToShipping(d, s.ShippingMethodID) {
			return false, nil
		}
		r, err := CalcReduction(s.ShippingPrice, d)
		if err != nil {
			return false, err
		}
		reduced, err := s.ShippingPrice.Sub(r)
		if err != nil {
			return false, err
		}
		if s.ShippingPrice, err = reduced.Max(money.Zero(s.Currency)); err != nil {
			return false, err
		}
		return true, nil
	}

	return false, errors.Errorf("discount %s has unknown target type %q", d.ID, d.TargetType)
}

// candidate reports whether d may be applied to a cart supplying codes:
// active sales always, active coupons only when their code was supplied.
func candidate(d *discount.Discount, codes []string) bool {
	if !d.Active {
		return false
	}
	if !d.IsCoupon() {
		return true
	}
	return slices.ContainsFunc(codes, d.MatchesCode)
}

// CalcOrderDiscounts applies discounts to s in application order. Each
// discount's conditions see the cart value left by the discounts before it.
// Discounts that leave the summary unchanged are not recorded.
// cart supplies coupon codes and cart scoped condition context; it may be nil,
// in which case only sales are considered.
func CalcOrderDiscounts(
	ctx context.Context,
	ev *Evaluation,
	s *Sheet,
	cart *Cart,
	discounts []discount.Discount,
) (sales, coupons []Applied, err error) {
	lg := zctx.From(ctx)

	var codes []string
	if cart != nil {
		codes = cart.Coupons
	}

	for _, d := range SortDiscounts(discounts) {
		if !candidate(d, codes) {
			continue
		}

		group, ok, err := CheckConditionGroups(ctx, ev, d, s.CartTotal(), cart)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "check conditions of %s", d.ID)
		}
		if !ok {
			lg.Debug("Discount conditions not met", zap.String("discount_id", d.ID))
			continue
		}

		before := s.Summary()
		applied, err := ApplyDiscountOnSheet(ev, d, s)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "apply %s", d.ID)
		}
		if !applied {
			continue
		}

		amount, err := before.Sub(s.Summary())
		if err != nil {
			return nil, nil, err
		}
		if amount.IsZero() {
			lg.Debug("Discount reduced nothing", zap.String("discount_id", d.ID))
			continue
		}
		a := Applied{Discount: d, Group: group, Amount: amount}
		if d.IsCoupon() {
			coupons = append(coupons, a)
		} else {
			sales = append(sales, a)
		}
		lg.Debug("Discount applied",
			zap.String("discount_id", d.ID),
			zap.Stringer("amount", amount),
		)
	}
	return sales, coupons, nil
}

// CalcProductDiscounts applies the active sales targeting p to its catalog
// price. There is no cart, so cart scoped conditions fail.
func CalcProductDiscounts(
	ctx context.Context,
	ev *Evaluation,
	p *product.Product,
	price money.Money,
	discounts []discount.Discount,
) (money.Money, []Applied, error) {
	var applied []Applied
	for _, d := range SortDiscounts(discounts) {
		if !d.Active || d.IsCoupon() {
			continue
		}
		group, ok, err := CheckConditionGroups(ctx, ev, d, price, nil)
		if err != nil {
			return money.Money{}, nil, errors.Wrapf(err, "check conditions of %s", d.ID)
		}
		if !ok {
			continue
		}
		reduced, hit, err := ApplyDiscountOnProduct(ev, d, p, price)
		if err != nil {
			return money.Money{}, nil, errors.Wrapf(err, "apply %s", d.ID)
		}
		if !hit {
			continue
		}
		amount, err := price.Sub(reduced)
		if err != nil {
			return money.Money{}, nil, err
		}
		if amount.IsZero() {
			continue
		}
		applied = append(applied, Applied{Discount: d, Group: group, Amount: amount})
		price = reduced
	}
	return price, applied, nil
}

// CalcCartDiscounts prices cart, applies every eligible sale and coupon and
// returns the resulting cart resource. shippingInitial is the undiscounted
// shipping price of the chosen method.
func CalcCartDiscounts(
	ctx context.Context,
	ev *Evaluation,
	cart *Cart,
	shippingInitial money.Money,
	discounts []discount.Discount,
) (*CartResource, error) {
	s, err := NewSheet(cart, shippingInitial)
	if err != nil {
		return nil, err
	}
	sales, coupons, err := CalcOrderDiscounts(ctx, ev, s, cart, discounts)
	if err != nil {
		return nil, err
	}
	return &CartResource{Sheet: s, Sales: sales, Coupons: coupons}, nil
}
