// Package discount defines sales, coupons and the conditions that gate them.
package discount

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/money"
)

// TargetType selects what a discount reduces.
type TargetType string

const (
	TargetProducts        TargetType = "PRODUCTS"
	TargetProductSets     TargetType = "PRODUCT_SETS"
	TargetOrderValue      TargetType = "ORDER_VALUE"
	TargetShippingPrice   TargetType = "SHIPPING_PRICE"
	TargetCheapestProduct TargetType = "CHEAPEST_PRODUCT"
)

// Valid reports whether t is a known target type.
func (t TargetType) Valid() bool {
	switch t {
	case TargetProducts, TargetProductSets, TargetOrderValue, TargetShippingPrice, TargetCheapestProduct:
		return true
	}
	return false
}

var (
	// ErrNotFound is returned when a discount does not exist.
	ErrNotFound = errors.New("discount not found")
	// ErrInvalidDiscount is returned for a discount with neither a
	// percentage nor fixed amounts, or with both.
	ErrInvalidDiscount = errors.New("discount must have either a percentage or fixed amounts")
	// ErrCodeTaken is returned when creating a coupon whose code is already
	// used by another discount.
	ErrCodeTaken = errors.New("coupon code already taken")
)

// MissingAmountError indicates a fixed discount has no amount for a currency.
// It is a configuration error rather than a client error.
type MissingAmountError struct {
	DiscountID string
	Currency   money.Currency
}

func (e *MissingAmountError) Error() string {
	return fmt.Sprintf("discount %s has no amount in %s", e.DiscountID, e.Currency)
}

// UsageLimitError is returned when redeeming a discount would exceed one of
// its usage limits.
type UsageLimitError struct {
	DiscountID string
	Limit      int
	PerUser    bool
}

func (e *UsageLimitError) Error() string {
	if e.PerUser {
		return fmt.Sprintf("discount %s reached its limit of %d uses per user", e.DiscountID, e.Limit)
	}
	return fmt.Sprintf("discount %s reached its limit of %d uses", e.DiscountID, e.Limit)
}

// Discount is either a sale, applied automatically, or a coupon, applied when
// its code is supplied with the cart.
type Discount struct {
	ID   string
	Name string
	// Code is empty for sales.
	Code string
	// Percentage and Amounts are mutually exclusive.
	Percentage        decimal.NullDecimal
	Amounts           money.Prices
	TargetType        TargetType
	TargetIsAllowList bool
	Active            bool
	// Priority orders discounts of the same kind, higher first.
	Priority  int
	CreatedAt time.Time
	Groups    []ConditionGroup

	ProductIDs        []string
	ProductSetIDs     []string
	ShippingMethodIDs []string
}

// WithCode returns a copy of the discount redeemed by code. Identifiers and
// the creation time are cleared so the copy can be stored as a new coupon.
func (d *Discount) WithCode(code string) *Discount {
	out := *d
	out.ID = ""
	out.Code = code
	out.CreatedAt = time.Time{}
	out.Amounts = maps.Clone(d.Amounts)
	out.ProductIDs = slices.Clone(d.ProductIDs)
	out.ProductSetIDs = slices.Clone(d.ProductSetIDs)
	out.ShippingMethodIDs = slices.Clone(d.ShippingMethodIDs)
	out.Groups = make([]ConditionGroup, len(d.Groups))
	for i, g := range d.Groups {
		conds := make([]Condition, len(g.Conditions))
		for j, c := range g.Conditions {
			conds[j] = Condition{Value: c.Value}
		}
		out.Groups[i] = ConditionGroup{Name: g.Name, Conditions: conds}
	}
	return &out
}

// IsCoupon reports whether the discount requires a code.
func (d *Discount) IsCoupon() bool {
	return d.Code != ""
}

// MatchesCode reports whether code redeems this coupon. Codes are
// case-insensitive.
func (d *Discount) MatchesCode(code string) bool {
	return d.IsCoupon() && strings.EqualFold(d.Code, strings.TrimSpace(code))
}

// Validate checks the invariants enforced when a discount is created: exactly
// one of percentage or fixed amounts, a fixed amount for every supported
// currency, a known target type and well-formed conditions.
func (d *Discount) Validate() error {
	hasPct := d.Percentage.Valid
	hasAmounts := len(d.Amounts) > 0
	if hasPct == hasAmounts {
		return ErrInvalidDiscount
	}
	if hasPct {
		p := d.Percentage.Decimal
		if !p.IsPositive() || p.GreaterThan(decimal.NewFromInt(100)) {
			return errors.Errorf("percentage %s out of range (0, 100]", p)
		}
	}
	if hasAmounts {
		if missing := d.Amounts.Missing(); len(missing) > 0 {
			return &MissingAmountError{DiscountID: d.ID, Currency: missing[0]}
		}
		for c, a := range d.Amounts {
			if a.IsNegative() {
				return errors.Errorf("amount in %s is negative", c)
			}
		}
	}
	if !d.TargetType.Valid() {
		return errors.Errorf("unknown target type %q", d.TargetType)
	}
	for _, g := range d.Groups {
		for _, c := range g.Conditions {
			if c.Value == nil {
				return errors.Errorf("condition %s has no value", c.ID)
			}
		}
	}
	return nil
}

// Repository provides access to discounts.
type Repository interface {
	// ListActiveSales returns all active discounts without a code.
	ListActiveSales(ctx context.Context) ([]Discount, error)
	// ListActiveCoupons returns active coupons whose code matches one of
	// codes, case-insensitively.
	ListActiveCoupons(ctx context.Context, codes []string) ([]Discount, error)
	// GetByCode returns the coupon with the given code or ErrNotFound.
	GetByCode(ctx context.Context, code string) (*Discount, error)
	// Create persists a new discount with its conditions and targets.
	Create(ctx context.Context, d *Discount) error
}
