package discount

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/money"
)

// ConditionType discriminates condition payloads.
type ConditionType string

const (
	ConditionCartLength     ConditionType = "CART_LENGTH"
	ConditionCouponsCount   ConditionType = "COUPONS_COUNT"
	ConditionDateBetween    ConditionType = "DATE_BETWEEN"
	ConditionMaxUses        ConditionType = "MAX_USES"
	ConditionMaxUsesPerUser ConditionType = "MAX_USES_PER_USER"
	ConditionOrderValue     ConditionType = "ORDER_VALUE"
	ConditionProductIn      ConditionType = "PRODUCT_IN"
	ConditionProductInSet   ConditionType = "PRODUCT_IN_SET"
	ConditionTimeBetween    ConditionType = "TIME_BETWEEN"
	ConditionUserIn         ConditionType = "USER_IN"
	ConditionUserInRole     ConditionType = "USER_IN_ROLE"
	ConditionWeekdayIn      ConditionType = "WEEKDAY_IN"
)

// ConditionGroup is a set of conditions that must all pass. A discount applies
// when any of its groups passes.
type ConditionGroup struct {
	ID         string
	Name       string
	Conditions []Condition
}

// UsageLimits returns the tightest MAX_USES and MAX_USES_PER_USER limits in
// the group. Zero means unlimited.
func (g *ConditionGroup) UsageLimits() (total, perUser int) {
	for _, c := range g.Conditions {
		switch v := c.Value.(type) {
		case MaxUses:
			total = tighter(total, v.MaxUses)
		case MaxUsesPerUser:
			perUser = tighter(perUser, v.MaxUses)
		}
	}
	return total, perUser
}

func tighter(cur, limit int) int {
	if cur == 0 || limit < cur {
		return limit
	}
	return cur
}

// Condition is a single rule of a group.
type Condition struct {
	ID    string
	Value ConditionValue
}

// Type returns the condition type of the payload.
func (c Condition) Type() ConditionType {
	if c.Value == nil {
		return ""
	}
	return c.Value.Type()
}

// ConditionValue is the typed payload of a condition. It is implemented only
// by the payload types of this package.
type ConditionValue interface {
	Type() ConditionType
	isConditionValue()
}

// CartLength passes when the total item quantity is within bounds.
type CartLength struct {
	MinValue *decimal.Decimal
	MaxValue *decimal.Decimal
}

// CouponsCount passes when the number of supplied coupon codes is within
// bounds.
type CouponsCount struct {
	MinValue *int
	MaxValue *int
}

// DateBetween passes when the evaluation instant is inside the window, or
// outside it when IsInRange is false. An end before the start wraps.
type DateBetween struct {
	StartAt   *time.Time
	EndAt     *time.Time
	IsInRange bool
}

// MaxUses passes while the discount has been redeemed fewer than MaxUses
// times.
type MaxUses struct {
	MaxUses int
}

// MaxUsesPerUser passes while the current user has redeemed the discount
// fewer than MaxUses times.
type MaxUsesPerUser struct {
	MaxUses int
}

// OrderValue passes when the running cart value is within the bounds
// configured for its currency.
type OrderValue struct {
	MinValues    money.Prices
	MaxValues    money.Prices
	IncludeTaxes bool
	IsInRange    bool
}

// ProductIn passes when the cart contains a listed product, or lacks all of
// them for a block list.
type ProductIn struct {
	Products    []string
	IsAllowList bool
}

// ProductInSet passes when the cart contains a product from a listed set or
// any of its descendants.
type ProductInSet struct {
	ProductSets []string
	IsAllowList bool
}

// TimeBetween is DateBetween on the time of day. An end before the start
// spans midnight.
type TimeBetween struct {
	StartAt   *TimeOfDay
	EndAt     *TimeOfDay
	IsInRange bool
}

// UserIn passes when the current user is listed.
type UserIn struct {
	Users       []string
	IsAllowList bool
}

// UserInRole passes when the current user has a listed role.
type UserInRole struct {
	Roles       []string
	IsAllowList bool
}

// WeekdayIn passes on enabled weekdays, indexed from Sunday.
type WeekdayIn struct {
	Weekday [7]bool
}

func (CartLength) Type() ConditionType     { return ConditionCartLength }
func (CouponsCount) Type() ConditionType   { return ConditionCouponsCount }
func (DateBetween) Type() ConditionType    { return ConditionDateBetween }
func (MaxUses) Type() ConditionType        { return ConditionMaxUses }
func (MaxUsesPerUser) Type() ConditionType { return ConditionMaxUsesPerUser }
func (OrderValue) Type() ConditionType     { return ConditionOrderValue }
func (ProductIn) Type() ConditionType      { return ConditionProductIn }
func (ProductInSet) Type() ConditionType   { return ConditionProductInSet }
func (TimeBetween) Type() ConditionType    { return ConditionTimeBetween }
func (UserIn) Type() ConditionType         { return ConditionUserIn }
func (UserInRole) Type() ConditionType     { return ConditionUserInRole }
func (WeekdayIn) Type() ConditionType      { return ConditionWeekdayIn }

func (CartLength) isConditionValue()     {}
func (CouponsCount) isConditionValue()   {}
func (DateBetween) isConditionValue()    {}
func (MaxUses) isConditionValue()        {}
func (MaxUsesPerUser) isConditionValue() {}
func (OrderValue) isConditionValue()     {}
func (ProductIn) isConditionValue()      {}
func (ProductInSet) isConditionValue()   {}
func (TimeBetween) isConditionValue()    {}
func (UserIn) isConditionValue()         {}
func (UserInRole) isConditionValue()     {}
func (WeekdayIn) isConditionValue()      {}

// TimeOfDay is a wall clock time as seconds since midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second()), nil
		}
	}
	return 0, errors.Errorf("invalid time of day %q", s)
}

// ClockOf returns the time of day of t in its location.
func ClockOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return TimeOfDay(h*3600 + m*60 + s)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(t)/3600, int(t)%3600/60, int(t)%60)
}
