package pricing

import (
	"context"

	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/money"
)

// CheckConditionGroup reports whether every condition of g passes. An empty
// group passes.
func CheckConditionGroup(
	ctx context.Context,
	ev *Evaluation,
	d *discount.Discount,
	g *discount.ConditionGroup,
	cartValue money.Money,
	cart *Cart,
) (bool, error) {
	for _, c := range g.Conditions {
		ok, err := CheckCondition(ctx, ev, d, c, cartValue, cart)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// CheckConditionGroups reports whether any group of d passes and returns the
// first one that does. A discount without groups is unconditional: it passes
// with a nil group.
func CheckConditionGroups(
	ctx context.Context,
	ev *Evaluation,
	d *discount.Discount,
	cartValue money.Money,
	cart *Cart,
) (*discount.ConditionGroup, bool, error) {
	if len(d.Groups) == 0 {
		return nil, true, nil
	}
	for i := range d.Groups {
		g := &d.Groups[i]
		ok, err := CheckConditionGroup(ctx, ev, d, g, cartValue, cart)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return g, true, nil
		}
	}
	return nil, false, nil
}
