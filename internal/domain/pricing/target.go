package pricing

import (
	"slices"

	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/product"
)

// matchList applies allow/block list semantics: an allow list matches listed
// entities, a block list matches everything else.
func matchList(allowList, found bool) bool {
	return found == allowList
}

// AppliesToProduct reports whether a PRODUCTS or PRODUCT_SETS discount targets
// p. Set membership is inherited through ancestor sets.
func AppliesToProduct(ev *Evaluation, d *discount.Discount, p *product.Product) bool {
	switch d.TargetType {
	case discount.TargetProducts:
		return matchList(d.TargetIsAllowList, slices.Contains(d.ProductIDs, p.ID))
	case discount.TargetProductSets:
		var sets *product.SetTree
		if ev != nil {
			sets = ev.Sets
		}
		return matchList(d.TargetIsAllowList, sets.InAny(p.SetIDs, d.ProductSetIDs))
	default:
		return false
	}
}

// AppliesToShipping reports whether a SHIPPING_PRICE discount targets the
// shipping method.
func AppliesToShipping(d *discount.Discount, methodID string) bool {
	if d.TargetType != discount.TargetShippingPrice {
		return false
	}
	return matchList(d.TargetIsAllowList, slices.Contains(d.ShippingMethodIDs, methodID))
}
