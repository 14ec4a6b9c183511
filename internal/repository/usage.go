package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/pricing"
)

const (
	countUsesSQL = `SELECT count(*) FROM discount_redemptions WHERE discount_id = $1`

	countUserUsesSQL = `SELECT count(*) FROM discount_redemptions
		WHERE discount_id = $1 AND user_id = $2`
)

var _ pricing.UsageCounter = (*UsageRepository)(nil)

// UsageRepository counts discount redemptions.
type UsageRepository struct {
	pool *pgxpool.Pool
}

// NewUsageRepository returns a UsageRepository that uses the given pool.
func NewUsageRepository(pool *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// CountUses returns how many orders redeemed the discount.
func (r *UsageRepository) CountUses(ctx context.Context, discountID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countUsesSQL, discountID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting uses of %q: %w", discountID, err)
	}
	return n, nil
}

// CountUserUses returns how many orders of userID redeemed the discount.
func (r *UsageRepository) CountUserUses(ctx context.Context, discountID, userID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countUserUsesSQL, discountID, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting uses of %q by %q: %w", discountID, userID, err)
	}
	return n, nil
}
