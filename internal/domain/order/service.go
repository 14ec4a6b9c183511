package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/pricing"
)

// ErrCouponNotFound is returned when a supplied coupon code does not match an
// active coupon.
var ErrCouponNotFound = errors.New("coupon not found")

// CouponNotApplicableError indicates a supplied coupon exists but its
// conditions or targets do not match the order.
type CouponNotApplicableError struct {
	Code string
}

func (e *CouponNotApplicableError) Error() string {
	return fmt.Sprintf("coupon %s is not applicable to this order", e.Code)
}

// Pricer quotes carts.
type Pricer interface {
	ProcessCart(ctx context.Context, req checkout.Request) (*checkout.Quote, error)
}

var _ Pricer = (*checkout.Service)(nil)

// Service encapsulates order placement business logic.
type Service struct {
	pricer Pricer
	orders Repository
	now    func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(pricer Pricer, orders Repository) *Service {
	return &Service{
		pricer: pricer,
		orders: orders,
		now:    time.Now,
	}
}

// PlaceOrder prices the cart, requires every supplied coupon to exist and
// apply, and persists the order with its discount redemptions.
func (s *Service) PlaceOrder(ctx context.Context, req checkout.Request) (*Order, error) {
	q, err := s.pricer.ProcessCart(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("price cart: %w", err)
	}

	if err := checkCoupons(req.Coupons, q); err != nil {
		return nil, err
	}

	o := &Order{
		ID:                   uuid.New().String(),
		Code:                 xid.New().String(),
		Currency:             q.Currency,
		SalesChannelID:       q.Cart.SalesChannelID,
		ShippingMethodID:     q.ShippingMethodID,
		Products:             make([]Product, 0, len(q.Lines)),
		CartTotalInitial:     q.CartTotalInitial,
		CartTotal:            q.CartTotal(),
		ShippingPriceInitial: q.ShippingPriceInitial,
		ShippingPrice:        q.ShippingPrice,
		Summary:              q.Summary(),
		CreatedAt:            s.now().UTC(),
	}
	if q.User != nil {
		o.UserID = q.User.UserID
	}
	for _, l := range q.Lines {
		o.Products = append(o.Products, Product{
			CartItemID:   l.CartItemID,
			ProductID:    l.Product.ID,
			Name:         l.Product.Name,
			Quantity:     l.Quantity,
			Schemas:      l.Schemas,
			PriceInitial: l.PriceInitial,
			Price:        l.Price,
		})
	}
	for _, a := range q.Sales {
		o.Redemptions = append(o.Redemptions, redemption(a))
	}
	for _, a := range q.CartResource.Coupons {
		o.Redemptions = append(o.Redemptions, redemption(a))
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("order_code", o.Code),
		zap.Stringer("summary", o.Summary),
		zap.Int("redemptions", len(o.Redemptions)),
	)
	return o, nil
}

// checkCoupons requires every supplied code to name an active coupon that
// fired on the quote.
func checkCoupons(codes []string, q *checkout.Quote) error {
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}

		found := false
		for i := range q.FoundCoupons {
			if q.FoundCoupons[i].MatchesCode(code) {
				found = true
				break
			}
		}
		if !found {
			return errors.Wrapf(ErrCouponNotFound, "code %q", code)
		}

		applied := false
		for _, a := range q.CartResource.Coupons {
			if a.Discount.MatchesCode(code) {
				applied = true
				break
			}
		}
		if !applied {
			return &CouponNotApplicableError{Code: code}
		}
	}
	return nil
}

func redemption(a pricing.Applied) Redemption {
	r := Redemption{
		DiscountID: a.Discount.ID,
		Code:       a.Discount.Code,
		Amount:     a.Amount,
	}
	if a.Group != nil {
		r.MaxUses, r.MaxUsesPerUser = a.Group.UsageLimits()
	}
	return r
}
