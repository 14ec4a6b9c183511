package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/money"
)

// Order represents a placed order with its priced products and the discounts
// redeemed by it.
type Order struct {
	ID string
	// Code is a short human facing order reference.
	Code             string
	UserID           string
	Currency         money.Currency
	SalesChannelID   string
	ShippingMethodID string
	Products         []Product

	CartTotalInitial     money.Money
	CartTotal            money.Money
	ShippingPriceInitial money.Money
	ShippingPrice        money.Money
	Summary              money.Money

	Redemptions []Redemption
	CreatedAt   time.Time
}

// Product is an order line. Prices are per unit.
type Product struct {
	CartItemID   string
	ProductID    string
	Name         string
	Quantity     decimal.Decimal
	Schemas      map[string]string
	PriceInitial money.Money
	Price        money.Money
}

// Redemption records a sale or coupon applied to an order, together with the
// usage limits of the condition group that admitted it. Zero limits mean
// unlimited.
type Redemption struct {
	DiscountID     string
	Code           string
	Amount         money.Money
	MaxUses        int
	MaxUsesPerUser int
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists the order and its redemptions atomically. It returns
	// *discount.UsageLimitError when a redemption would exceed its limits.
	Create(ctx context.Context, order *Order) error
}
