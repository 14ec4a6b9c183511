package discount

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/money"
)

func TestDecodeConditionValue(t *testing.T) {
	three := decimal.NewFromInt(3)
	ten := decimal.NewFromInt(10)
	two := 2
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	night := TimeOfDay(22 * 3600)
	morning := TimeOfDay(2*3600 + 30*60)

	tests := []struct {
		name  string
		typ   ConditionType
		input string
		want  ConditionValue
	}{
		{
			name:  "cart length numbers",
			typ:   ConditionCartLength,
			input: `{"min_value":3,"max_value":10}`,
			want:  CartLength{MinValue: &three, MaxValue: &ten},
		},
		{
			name:  "cart length min only as string",
			typ:   ConditionCartLength,
			input: `{"min_value":"3","max_value":null}`,
			want:  CartLength{MinValue: &three},
		},
		{
			name:  "coupons count",
			typ:   ConditionCouponsCount,
			input: `{"max_value":2}`,
			want:  CouponsCount{MaxValue: &two},
		},
		{
			name:  "date between",
			typ:   ConditionDateBetween,
			input: `{"start_at":"2024-01-01T00:00:00Z","is_in_range":false}`,
			want:  DateBetween{StartAt: &start, IsInRange: false},
		},
		{
			name:  "date between defaults to in range",
			typ:   ConditionDateBetween,
			input: `{}`,
			want:  DateBetween{IsInRange: true},
		},
		{
			name:  "max uses",
			typ:   ConditionMaxUses,
			input: `{"max_uses":5}`,
			want:  MaxUses{MaxUses: 5},
		},
		{
			name:  "max uses per user",
			typ:   ConditionMaxUsesPerUser,
			input: `{"max_uses":1}`,
			want:  MaxUsesPerUser{MaxUses: 1},
		},
		{
			name:  "order value",
			typ:   ConditionOrderValue,
			input: `{"include_taxes":false,"is_in_range":true,"min_values":[{"currency":"PLN","value":"100.00"}],"max_values":[]}`,
			want: OrderValue{
				IsInRange: true,
				MinValues: money.Prices{money.PLN: decimal.RequireFromString("100.00")},
				MaxValues: money.Prices{},
			},
		},
		{
			name:  "product in with numeric ids",
			typ:   ConditionProductIn,
			input: `{"products":[1,"p2"],"is_allow_list":false}`,
			want:  ProductIn{Products: []string{"1", "p2"}, IsAllowList: false},
		},
		{
			name:  "product in set",
			typ:   ConditionProductInSet,
			input: `{"product_sets":["clothing"]}`,
			want:  ProductInSet{ProductSets: []string{"clothing"}, IsAllowList: true},
		},
		{
			name:  "time between",
			typ:   ConditionTimeBetween,
			input: `{"start_at":"22:00","end_at":"02:30:00","is_in_range":true}`,
			want:  TimeBetween{StartAt: &night, EndAt: &morning, IsInRange: true},
		},
		{
			name:  "user in",
			typ:   ConditionUserIn,
			input: `{"users":["u1","u2"],"is_allow_list":true}`,
			want:  UserIn{Users: []string{"u1", "u2"}, IsAllowList: true},
		},
		{
			name:  "user in role",
			typ:   ConditionUserInRole,
			input: `{"roles":["vip"],"is_allow_list":true}`,
			want:  UserInRole{Roles: []string{"vip"}, IsAllowList: true},
		},
		{
			name:  "weekday",
			typ:   ConditionWeekdayIn,
			input: `{"weekday":[false,true,true,true,true,true,false]}`,
			want:  WeekdayIn{Weekday: [7]bool{false, true, true, true, true, true, false}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeConditionValue(tt.typ, []byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.typ, got.Type())
			assertValueEqual(t, tt.want, got)
		})
	}
}

// assertValueEqual compares payloads, using decimal equality for decimal
// fields.
func assertValueEqual(t *testing.T, want, got ConditionValue) {
	t.Helper()

	switch w := want.(type) {
	case CartLength:
		g := got.(CartLength)
		assertDecimalPtr(t, w.MinValue, g.MinValue)
		assertDecimalPtr(t, w.MaxValue, g.MaxValue)
	case OrderValue:
		g := got.(OrderValue)
		assert.Equal(t, w.IsInRange, g.IsInRange)
		assert.Equal(t, w.IncludeTaxes, g.IncludeTaxes)
		require.Len(t, g.MinValues, len(w.MinValues))
		for c, v := range w.MinValues {
			assert.True(t, v.Equal(g.MinValues[c]))
		}
		require.Len(t, g.MaxValues, len(w.MaxValues))
	default:
		assert.Equal(t, want, got)
	}
}

func assertDecimalPtr(t *testing.T, want, got *decimal.Decimal) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	assert.True(t, want.Equal(*got), "want %s, got %s", want, got)
}

func TestDecodeConditionValue_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		typ   ConditionType
		input string
	}{
		{name: "unknown type", typ: "NOPE", input: `{}`},
		{name: "unknown field", typ: ConditionCartLength, input: `{"min":1}`},
		{name: "wrong bound type", typ: ConditionCouponsCount, input: `{"min_value":"x"}`},
		{name: "not an object", typ: ConditionMaxUses, input: `[1]`},
		{name: "missing max uses", typ: ConditionMaxUses, input: `{}`},
		{name: "negative max uses", typ: ConditionMaxUsesPerUser, input: `{"max_uses":-1}`},
		{name: "short weekday", typ: ConditionWeekdayIn, input: `{"weekday":[true,false]}`},
		{name: "missing weekday", typ: ConditionWeekdayIn, input: `{}`},
		{name: "bad date", typ: ConditionDateBetween, input: `{"start_at":"yesterday"}`},
		{name: "bad time", typ: ConditionTimeBetween, input: `{"start_at":"25:99"}`},
		{name: "bad currency", typ: ConditionOrderValue, input: `{"min_values":[{"currency":"XXX","value":"1"}]}`},
		{name: "price without currency", typ: ConditionOrderValue, input: `{"min_values":[{"value":"1"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeConditionValue(tt.typ, []byte(tt.input))
			var pErr *PayloadError
			require.ErrorAs(t, err, &pErr)
			assert.Equal(t, tt.typ, pErr.Type)
		})
	}
}

func TestEncodeConditionValue_Decodes(t *testing.T) {
	five := decimal.NewFromInt(5)
	end := time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC)
	noon := TimeOfDay(12 * 3600)

	values := []ConditionValue{
		CartLength{MinValue: &five},
		DateBetween{EndAt: &end, IsInRange: true},
		TimeBetween{StartAt: &noon, IsInRange: false},
		OrderValue{IsInRange: true, MaxValues: money.Prices{money.EUR: five}},
		ProductInSet{ProductSets: []string{"a", "b"}, IsAllowList: false},
		WeekdayIn{Weekday: [7]bool{true}},
	}

	for _, v := range values {
		t.Run(string(v.Type()), func(t *testing.T) {
			data := EncodeConditionValue(v)
			got, err := DecodeConditionValue(v.Type(), data)
			require.NoError(t, err, "payload %s", data)
			assert.Equal(t, v.Type(), got.Type())
		})
	}

	assert.JSONEq(t,
		`{"products":["1"],"is_allow_list":true}`,
		string(EncodeConditionValue(ProductIn{Products: []string{"1"}, IsAllowList: true})),
	)
}
