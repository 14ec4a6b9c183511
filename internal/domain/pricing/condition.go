package pricing

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/money"
)

// CheckCondition evaluates a single condition of d.
//
// cartValue is the running cart value after previously applied discounts.
// cart may be nil outside of a cart, e.g. when pricing a catalog product; cart
// scoped conditions (CART_LENGTH, COUPONS_COUNT, PRODUCT_IN, PRODUCT_IN_SET)
// then evaluate to false. User scoped conditions evaluate to false for
// anonymous callers.
func CheckCondition(
	ctx context.Context,
	ev *Evaluation,
	d *discount.Discount,
	c discount.Condition,
	cartValue money.Money,
	cart *Cart,
) (bool, error) {
	switch v := c.Value.(type) {
	case discount.CartLength:
		if cart == nil {
			return false, nil
		}
		return inRange(cart.Length(), v.MinValue, v.MaxValue, decimal.Decimal.Cmp, false), nil

	case discount.CouponsCount:
		if cart == nil {
			return false, nil
		}
		return inRange(len(cart.Coupons), v.MinValue, v.MaxValue, cmp.Compare[int], false), nil

	case discount.DateBetween:
		inside := inRange(ev.Now, v.StartAt, v.EndAt, time.Time.Compare, true)
		return inside == v.IsInRange, nil

	case discount.TimeBetween:
		now := discount.ClockOf(ev.Now)
		inside := inRange(now, v.StartAt, v.EndAt, cmp.Compare[discount.TimeOfDay], true)
		return inside == v.IsInRange, nil

	case discount.WeekdayIn:
		return v.Weekday[ev.Now.Weekday()], nil

	case discount.OrderValue:
		var lo, hi *decimal.Decimal
		if m, ok := v.MinValues.Get(cartValue.Currency()); ok {
			a := m.Amount()
			lo = &a
		}
		if m, ok := v.MaxValues.Get(cartValue.Currency()); ok {
			a := m.Amount()
			hi = &a
		}
		inside := inRange(cartValue.Amount(), lo, hi, decimal.Decimal.Cmp, false)
		return inside == v.IsInRange, nil

	case discount.MaxUses:
		if ev.Usage == nil {
			return v.MaxUses > 0, nil
		}
		n, err := ev.Usage.CountUses(ctx, d.ID)
		if err != nil {
			return false, errors.Wrapf(err, "count uses of %s", d.ID)
		}
		return n < v.MaxUses, nil

	case discount.MaxUsesPerUser:
		if ev.User == nil {
			return false, nil
		}
		if ev.Usage == nil {
			return v.MaxUses > 0, nil
		}
		n, err := ev.Usage.CountUserUses(ctx, d.ID, ev.User.UserID)
		if err != nil {
			return false, errors.Wrapf(err, "count uses of %s by %s", d.ID, ev.User.UserID)
		}
		return n < v.MaxUses, nil

	case discount.ProductIn:
		if cart == nil {
			return false, nil
		}
		found := slices.ContainsFunc(cart.Items, func(it CartItem) bool {
			return slices.Contains(v.Products, it.Product.ID)
		})
		return matchList(v.IsAllowList, found), nil

	case discount.ProductInSet:
		if cart == nil {
			return false, nil
		}
		found := slices.ContainsFunc(cart.Items, func(it CartItem) bool {
			return ev.Sets.InAny(it.Product.SetIDs, v.ProductSets)
		})
		return matchList(v.IsAllowList, found), nil

	case discount.UserIn:
		if ev.User == nil {
			return false, nil
		}
		return matchList(v.IsAllowList, slices.Contains(v.Users, ev.User.UserID)), nil

	case discount.UserInRole:
		if ev.User == nil {
			return false, nil
		}
		return matchList(v.IsAllowList, ev.User.HasAnyRole(v.Roles)), nil
	}

	return false, errors.Errorf("condition %s of discount %s has unsupported type %q", c.ID, d.ID, c.Type())
}

// inRange reports whether v lies within [lo, hi]. A nil bound is unbounded.
// With wrap set and hi before lo, the range wraps around: v >= lo or v <= hi.
func inRange[T any](v T, lo, hi *T, compare func(a, b T) int, wrap bool) bool {
	if wrap && lo != nil && hi != nil && compare(*hi, *lo) < 0 {
		return compare(v, *lo) >= 0 || compare(v, *hi) <= 0
	}
	if lo != nil && compare(v, *lo) < 0 {
		return false
	}
	if hi != nil && compare(v, *hi) > 0 {
		return false
	}
	return true
}
