package pricing

import (
	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/money"
)

// CalcReduction returns how much d takes off base. Percentages are rounded
// half-up to the minor unit; fixed discounts use the amount configured for the
// currency of base.
func CalcReduction(base money.Money, d *discount.Discount) (money.Money, error) {
	if d.Percentage.Valid {
		return base.Percent(d.Percentage.Decimal), nil
	}
	if len(d.Amounts) == 0 {
		return money.Money{}, errors.Wrapf(discount.ErrInvalidDiscount, "discount %s", d.ID)
	}
	amount, ok := d.Amounts.Get(base.Currency())
	if !ok {
		return money.Money{}, &discount.MissingAmountError{DiscountID: d.ID, Currency: base.Currency()}
	}
	return amount, nil
}
