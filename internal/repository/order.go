package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders
		(id, code, user_id, currency, sales_channel_id, shipping_method_id,
		 cart_total_initial, cart_total, shipping_price_initial, shipping_price, summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	createOrderProductSQL = `INSERT INTO order_products
		(order_id, position, cart_item_id, product_id, name, quantity, schemas, price_initial, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	lockDiscountSQL = `SELECT id FROM discounts WHERE id = $1 FOR UPDATE`

	createRedemptionSQL = `INSERT INTO discount_redemptions
		(discount_id, order_id, user_id, code, amount, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order, its products and its discount redemptions in one
// transaction. Each redeemed discount row is locked while its usage limits are
// checked, so concurrent orders cannot both take the last use.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, createOrderSQL,
			o.ID, o.Code, nullString(o.UserID), string(o.Currency),
			nullString(o.SalesChannelID), nullString(o.ShippingMethodID),
			o.CartTotalInitial.Amount(), o.CartTotal.Amount(),
			o.ShippingPriceInitial.Amount(), o.ShippingPrice.Amount(),
			o.Summary.Amount(), o.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("creating order %q: %w", o.ID, err)
		}

		batch := &pgx.Batch{}
		for i, p := range o.Products {
			schemas, err := json.Marshal(p.Schemas)
			if err != nil {
				return fmt.Errorf("marshaling schemas of %q: %w", p.CartItemID, err)
			}
			batch.Queue(createOrderProductSQL,
				o.ID, i, p.CartItemID, p.ProductID, p.Name, p.Quantity, schemas,
				p.PriceInitial.Amount(), p.Price.Amount(),
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("creating products of order %q: %w", o.ID, err)
		}

		for _, red := range o.Redemptions {
			if err := redeem(ctx, tx, o, red); err != nil {
				return err
			}
		}
		return nil
	})
}

// redeem locks the discount, enforces its usage limits and records the
// redemption.
func redeem(ctx context.Context, tx pgx.Tx, o *order.Order, red order.Redemption) error {
	var id string
	if err := tx.QueryRow(ctx, lockDiscountSQL, red.DiscountID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("locking discount %q: %w", red.DiscountID, discount.ErrNotFound)
		}
		return fmt.Errorf("locking discount %q: %w", red.DiscountID, err)
	}

	if red.MaxUses > 0 {
		var n int
		if err := tx.QueryRow(ctx, countUsesSQL, red.DiscountID).Scan(&n); err != nil {
			return fmt.Errorf("counting uses of %q: %w", red.DiscountID, err)
		}
		if n >= red.MaxUses {
			return &discount.UsageLimitError{DiscountID: red.DiscountID, Limit: red.MaxUses}
		}
	}
	if red.MaxUsesPerUser > 0 {
		if o.UserID == "" {
			return &discount.UsageLimitError{DiscountID: red.DiscountID, Limit: red.MaxUsesPerUser, PerUser: true}
		}
		var n int
		if err := tx.QueryRow(ctx, countUserUsesSQL, red.DiscountID, o.UserID).Scan(&n); err != nil {
			return fmt.Errorf("counting uses of %q by %q: %w", red.DiscountID, o.UserID, err)
		}
		if n >= red.MaxUsesPerUser {
			return &discount.UsageLimitError{DiscountID: red.DiscountID, Limit: red.MaxUsesPerUser, PerUser: true}
		}
	}

	_, err := tx.Exec(ctx, createRedemptionSQL,
		red.DiscountID, o.ID, nullString(o.UserID), nullString(red.Code),
		red.Amount.Amount(), string(red.Amount.Currency()), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording redemption of %q: %w", red.DiscountID, err)
	}
	return nil
}
