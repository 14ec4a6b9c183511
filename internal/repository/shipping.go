package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/money"
	"github.com/xenking/storefront/internal/domain/shipping"
)

const (
	getShippingMethodSQL = `SELECT id, name FROM shipping_methods WHERE id = $1`

	getShippingPricesSQL = `SELECT currency, start, price
		FROM shipping_method_prices WHERE method_id = $1
		ORDER BY currency, start`
)

var _ shipping.Repository = (*ShippingRepository)(nil)

// ShippingRepository implements shipping.Repository backed by PostgreSQL.
type ShippingRepository struct {
	pool *pgxpool.Pool
}

// NewShippingRepository returns a ShippingRepository that uses the given pool.
func NewShippingRepository(pool *pgxpool.Pool) *ShippingRepository {
	return &ShippingRepository{pool: pool}
}

// GetByID returns a shipping method with its price ranges.
func (r *ShippingRepository) GetByID(ctx context.Context, id string) (*shipping.Method, error) {
	rows, err := r.pool.Query(ctx, getShippingMethodSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting shipping method %q: %w", id, err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (shipping.Method, error) {
		var m shipping.Method
		err := row.Scan(&m.ID, &m.Name)
		return m, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shipping.ErrNotFound
		}
		return nil, fmt.Errorf("getting shipping method %q: %w", id, err)
	}

	rows, err = r.pool.Query(ctx, getShippingPricesSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting shipping prices of %q: %w", id, err)
	}
	m.PriceRanges, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (shipping.PriceRange, error) {
		var (
			pr       shipping.PriceRange
			currency string
		)
		err := row.Scan(&currency, &pr.Start, &pr.Price)
		pr.Currency = money.Currency(currency)
		return pr, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning shipping prices of %q: %w", id, err)
	}
	return &m, nil
}
