// Package pricing evaluates discount conditions against carts and orders and
// folds the applicable sales and coupons into final prices.
//
// Evaluation is synchronous and request scoped. Time, identity, usage counters
// and the product set hierarchy are passed in explicitly through Evaluation.
package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/money"
	"github.com/xenking/storefront/internal/domain/product"
)

// UsageCounter reads how often discounts have been redeemed.
type UsageCounter interface {
	CountUses(ctx context.Context, discountID string) (int, error)
	CountUserUses(ctx context.Context, discountID, userID string) (int, error)
}

// Evaluation is the context of a single pricing request.
type Evaluation struct {
	// User is nil for anonymous callers.
	User *auth.Identity
	// Now is the evaluation instant, already in the store time zone.
	Now   time.Time
	Usage UsageCounter
	Sets  *product.SetTree
}

// Cart is the priced input: resolved products with quantities and schema
// selections, plus the supplied coupon codes.
type Cart struct {
	Currency         money.Currency
	SalesChannelID   string
	Items            []CartItem
	Coupons          []string
	ShippingMethodID string
}

// CartItem is one line of a cart.
type CartItem struct {
	// ID identifies the line in responses. It is shared by lines split off
	// from it.
	ID       string
	Product  *product.Product
	Quantity decimal.Decimal
	Schemas  map[string]string
}

// Length returns the total item quantity.
func (c *Cart) Length() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Quantity)
	}
	return total
}
