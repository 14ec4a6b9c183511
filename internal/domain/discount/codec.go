package discount

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/money"
)

// PayloadError indicates a malformed condition payload.
type PayloadError struct {
	Type ConditionType
	Err  error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("invalid %s payload: %v", e.Type, e.Err)
}

func (e *PayloadError) Unwrap() error { return e.Err }

type valueDecoder func(d *jx.Decoder) (ConditionValue, error)

var decoders = map[ConditionType]valueDecoder{
	ConditionCartLength:     decodeCartLength,
	ConditionCouponsCount:   decodeCouponsCount,
	ConditionDateBetween:    decodeDateBetween,
	ConditionMaxUses:        decodeMaxUses,
	ConditionMaxUsesPerUser: decodeMaxUsesPerUser,
	ConditionOrderValue:     decodeOrderValue,
	ConditionProductIn:      decodeProductIn,
	ConditionProductInSet:   decodeProductInSet,
	ConditionTimeBetween:    decodeTimeBetween,
	ConditionUserIn:         decodeUserIn,
	ConditionUserInRole:     decodeUserInRole,
	ConditionWeekdayIn:      decodeWeekdayIn,
}

// DecodeConditionValue decodes and validates the JSON payload of a condition
// of type t.
func DecodeConditionValue(t ConditionType, data []byte) (ConditionValue, error) {
	dec, ok := decoders[t]
	if !ok {
		return nil, &PayloadError{Type: t, Err: errors.New("unknown condition type")}
	}
	v, err := dec(jx.DecodeBytes(data))
	if err != nil {
		return nil, &PayloadError{Type: t, Err: err}
	}
	return v, nil
}

func unknownField(key string) error {
	return errors.Errorf("unknown field %q", key)
}

func decodeCartLength(d *jx.Decoder) (ConditionValue, error) {
	var v CartLength
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "min_value":
			return decodeOptDecimal(d, &v.MinValue)
		case "max_value":
			return decodeOptDecimal(d, &v.MaxValue)
		default:
			return unknownField(key)
		}
	})
	return v, err
}

func decodeCouponsCount(d *jx.Decoder) (ConditionValue, error) {
	var v CouponsCount
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "min_value":
			return decodeOptInt(d, &v.MinValue)
		case "max_value":
			return decodeOptInt(d, &v.MaxValue)
		default:
			return unknownField(key)
		}
	})
	return v, err
}

func decodeDateBetween(d *jx.Decoder) (ConditionValue, error) {
	v := DateBetween{IsInRange: true}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "start_at":
			return decodeOptTime(d, &v.StartAt)
		case "end_at":
			return decodeOptTime(d, &v.EndAt)
		case "is_in_range":
			return decodeBool(d, &v.IsInRange)
		default:
			return unknownField(key)
		}
	})
	return v, err
}

func decodeMaxUses(d *jx.Decoder) (ConditionValue, error) {
	n, err := decodeMaxUsesField(d)
	return MaxUses{MaxUses: n}, err
}

func decodeMaxUsesPerUser(d *jx.Decoder) (ConditionValue, error) {
	n, err := decodeMaxUsesField(d)
	return MaxUsesPerUser{MaxUses: n}, err
}

func decodeMaxUsesField(d *jx.Decoder) (int, error) {
	n, seen := 0, false
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "max_uses" {
			return unknownField(key)
		}
		v, err := d.Int()
		if err != nil {
			return errors.Wrap(err, "max_uses")
		}
		n, seen = v, true
		return nil
	})
	if err != nil {
		return 0, err
	}
	if !seen {
		return 0, errors.New("max_uses is required")
	}
	if n < 0 {
		return 0, errors.Errorf("max_uses must not be negative, got %d", n)
	}
	return n, nil
}

func decodeOrderValue(d *jx.Decoder) (ConditionValue, error) {
	v := OrderValue{IsInRange: true}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "include_taxes":
			return decodeBool(d, &v.IncludeTaxes)
		case "is_in_range":
			return decodeBool(d, &v.IsInRange)
		case "min_values":
			return decodePrices(d, &v.MinValues)
		case "max_values":
			return decodePrices(d, &v.MaxValues)
		default:
			return unknownField(key)
		}
	})
	return v, err
}

func decodeProductIn(d *jx.Decoder) (ConditionValue, error) {
	v := ProductIn{IsAllowList: true}
	err := decodeList(d, "products", &v.Products, &v.IsAllowList)
	return v, err
}

func decodeProductInSet(d *jx.Decoder) (ConditionValue, error) {
	v := ProductInSet{IsAllowList: true}
	err := decodeList(d, "product_sets", &v.ProductSets, &v.IsAllowList)
	return v, err
}

func decodeUserIn(d *jx.Decoder) (ConditionValue, error) {
	v := UserIn{IsAllowList: true}
	err := decodeList(d, "users", &v.Users, &v.IsAllowList)
	return v, err
}

func decodeUserInRole(d *jx.Decoder) (ConditionValue, error) {
	v := UserInRole{IsAllowList: true}
	err := decodeList(d, "roles", &v.Roles, &v.IsAllowList)
	return v, err
}

func decodeTimeBetween(d *jx.Decoder) (ConditionValue, error) {
	v := TimeBetween{IsInRange: true}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "start_at":
			return decodeOptClock(d, &v.StartAt)
		case "end_at":
			return decodeOptClock(d, &v.EndAt)
		case "is_in_range":
			return decodeBool(d, &v.IsInRange)
		default:
			return unknownField(key)
		}
	})
	return v, err
}

func decodeWeekdayIn(d *jx.Decoder) (ConditionValue, error) {
	var (
		v    WeekdayIn
		seen bool
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "weekday" {
			return unknownField(key)
		}
		seen = true
		n := 0
		if err := d.Arr(func(d *jx.Decoder) error {
			b, err := d.Bool()
			if err != nil {
				return err
			}
			if n < len(v.Weekday) {
				v.Weekday[n] = b
			}
			n++
			return nil
		}); err != nil {
			return errors.Wrap(err, "weekday")
		}
		if n != len(v.Weekday) {
			return errors.Errorf("weekday must have 7 flags, got %d", n)
		}
		return nil
	})
	if err == nil && !seen {
		err = errors.New("weekday is required")
	}
	return v, err
}

func decodeList(d *jx.Decoder, field string, ids *[]string, allow *bool) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case field:
			return d.Arr(func(d *jx.Decoder) error {
				id, err := decodeID(d)
				if err != nil {
					return errors.Wrap(err, field)
				}
				*ids = append(*ids, id)
				return nil
			})
		case "is_allow_list":
			return decodeBool(d, allow)
		default:
			return unknownField(key)
		}
	})
}

// decodeID accepts identifiers written either as strings or as numbers.
func decodeID(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return string(n), nil
	default:
		return d.Str()
	}
}

func decodeBool(d *jx.Decoder, dst *bool) error {
	b, err := d.Bool()
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		raw = string(n)
	default:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		raw = s
	}
	return decimal.NewFromString(raw)
}

func decodeOptDecimal(d *jx.Decoder, dst **decimal.Decimal) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	v, err := decodeDecimal(d)
	if err != nil {
		return err
	}
	*dst = &v
	return nil
}

func decodeOptInt(d *jx.Decoder, dst **int) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	v, err := d.Int()
	if err != nil {
		return err
	}
	*dst = &v
	return nil
}

func decodeOptTime(d *jx.Decoder, dst **time.Time) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return errors.Wrapf(err, "parse date %q", s)
	}
	*dst = &t
	return nil
}

func decodeOptClock(d *jx.Decoder, dst **TimeOfDay) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return err
	}
	t, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*dst = &t
	return nil
}

func decodePrices(d *jx.Decoder, dst *money.Prices) error {
	prices := money.Prices{}
	err := d.Arr(func(d *jx.Decoder) error {
		var (
			cur   money.Currency
			value decimal.Decimal
		)
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "currency":
				s, err := d.Str()
				if err != nil {
					return err
				}
				cur, err = money.ParseCurrency(s)
				return err
			case "value":
				v, err := decodeDecimal(d)
				if err != nil {
					return err
				}
				value = v
				return nil
			default:
				return unknownField(key)
			}
		}); err != nil {
			return err
		}
		if cur == "" {
			return errors.New("price currency is required")
		}
		prices[cur] = value
		return nil
	})
	if err != nil {
		return err
	}
	*dst = prices
	return nil
}

// EncodeConditionValue writes the canonical JSON payload of v.
func EncodeConditionValue(v ConditionValue) []byte {
	var e jx.Encoder
	e.ObjStart()
	switch v := v.(type) {
	case CartLength:
		encodeOptDecimal(&e, "min_value", v.MinValue)
		encodeOptDecimal(&e, "max_value", v.MaxValue)
	case CouponsCount:
		encodeOptInt(&e, "min_value", v.MinValue)
		encodeOptInt(&e, "max_value", v.MaxValue)
	case DateBetween:
		encodeOptTime(&e, "start_at", v.StartAt)
		encodeOptTime(&e, "end_at", v.EndAt)
		e.FieldStart("is_in_range")
		e.Bool(v.IsInRange)
	case MaxUses:
		e.FieldStart("max_uses")
		e.Int(v.MaxUses)
	case MaxUsesPerUser:
		e.FieldStart("max_uses")
		e.Int(v.MaxUses)
	case OrderValue:
		e.FieldStart("include_taxes")
		e.Bool(v.IncludeTaxes)
		e.FieldStart("is_in_range")
		e.Bool(v.IsInRange)
		encodePrices(&e, "min_values", v.MinValues)
		encodePrices(&e, "max_values", v.MaxValues)
	case ProductIn:
		encodeList(&e, "products", v.Products, v.IsAllowList)
	case ProductInSet:
		encodeList(&e, "product_sets", v.ProductSets, v.IsAllowList)
	case TimeBetween:
		encodeOptClock(&e, "start_at", v.StartAt)
		encodeOptClock(&e, "end_at", v.EndAt)
		e.FieldStart("is_in_range")
		e.Bool(v.IsInRange)
	case UserIn:
		encodeList(&e, "users", v.Users, v.IsAllowList)
	case UserInRole:
		encodeList(&e, "roles", v.Roles, v.IsAllowList)
	case WeekdayIn:
		e.FieldStart("weekday")
		e.ArrStart()
		for _, b := range v.Weekday {
			e.Bool(b)
		}
		e.ArrEnd()
	}
	e.ObjEnd()
	return e.Bytes()
}

func encodeOptDecimal(e *jx.Encoder, field string, v *decimal.Decimal) {
	e.FieldStart(field)
	if v == nil {
		e.Null()
		return
	}
	e.Str(v.String())
}

func encodeOptInt(e *jx.Encoder, field string, v *int) {
	e.FieldStart(field)
	if v == nil {
		e.Null()
		return
	}
	e.Int(*v)
}

func encodeOptTime(e *jx.Encoder, field string, v *time.Time) {
	e.FieldStart(field)
	if v == nil {
		e.Null()
		return
	}
	e.Str(v.Format(time.RFC3339))
}

func encodeOptClock(e *jx.Encoder, field string, v *TimeOfDay) {
	e.FieldStart(field)
	if v == nil {
		e.Null()
		return
	}
	e.Str(v.String())
}

func encodeList(e *jx.Encoder, field string, ids []string, allow bool) {
	e.FieldStart(field)
	e.ArrStart()
	for _, id := range ids {
		e.Str(id)
	}
	e.ArrEnd()
	e.FieldStart("is_allow_list")
	e.Bool(allow)
}

func encodePrices(e *jx.Encoder, field string, prices money.Prices) {
	e.FieldStart(field)
	e.ArrStart()
	for _, c := range money.Currencies() {
		v, ok := prices[c]
		if !ok {
			continue
		}
		e.ObjStart()
		e.FieldStart("currency")
		e.Str(string(c))
		e.FieldStart("value")
		e.Str(v.String())
		e.ObjEnd()
	}
	e.ArrEnd()
}
