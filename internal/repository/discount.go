package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/discount"
)

const discountColumns = `id, name, COALESCE(code, ''), percentage, target_type,
	target_is_allow_list, active, priority, created_at`

const (
	listActiveSalesSQL = `SELECT ` + discountColumns + `
		FROM discounts WHERE active AND code IS NULL`

	listActiveCouponsSQL = `SELECT ` + discountColumns + `
		FROM discounts WHERE active AND lower(code) = ANY($1)`

	getDiscountByCodeSQL = `SELECT ` + discountColumns + `
		FROM discounts WHERE lower(code) = lower($1)`

	getDiscountAmountsSQL = `SELECT discount_id, currency, value
		FROM discount_amounts WHERE discount_id = ANY($1)`

	getConditionGroupsSQL = `SELECT discount_id, id, name
		FROM discount_condition_groups WHERE discount_id = ANY($1)
		ORDER BY discount_id, position, id`

	getConditionsSQL = `SELECT c.group_id, c.id, c.type, c.value
		FROM discount_conditions c
		JOIN discount_condition_groups g ON g.id = c.group_id
		WHERE g.discount_id = ANY($1)
		ORDER BY c.group_id, c.position, c.id`

	getDiscountProductsSQL = `SELECT discount_id, product_id
		FROM discount_products WHERE discount_id = ANY($1)`

	getDiscountProductSetsSQL = `SELECT discount_id, set_id
		FROM discount_product_sets WHERE discount_id = ANY($1)`

	getDiscountShippingMethodsSQL = `SELECT discount_id, method_id
		FROM discount_shipping_methods WHERE discount_id = ANY($1)`

	insertDiscountSQL = `INSERT INTO discounts
		(id, name, code, percentage, target_type, target_is_allow_list, active, priority, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	insertDiscountAmountSQL = `INSERT INTO discount_amounts (discount_id, currency, value)
		VALUES ($1, $2, $3)`

	insertConditionGroupSQL = `INSERT INTO discount_condition_groups (id, discount_id, name, position)
		VALUES ($1, $2, $3, $4)`

	insertConditionSQL = `INSERT INTO discount_conditions (id, group_id, type, value, position)
		VALUES ($1, $2, $3, $4, $5)`

	insertDiscountProductSQL = `INSERT INTO discount_products (discount_id, product_id)
		VALUES ($1, $2)`

	insertDiscountProductSetSQL = `INSERT INTO discount_product_sets (discount_id, set_id)
		VALUES ($1, $2)`

	insertDiscountShippingMethodSQL = `INSERT INTO discount_shipping_methods (discount_id, method_id)
		VALUES ($1, $2)`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// ListActiveSales returns all active discounts without a code.
func (r *DiscountRepository) ListActiveSales(ctx context.Context) ([]discount.Discount, error) {
	rows, err := r.pool.Query(ctx, listActiveSalesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing active sales: %w", err)
	}
	return r.collect(ctx, rows)
}

// ListActiveCoupons returns active coupons matching any of codes,
// case-insensitively.
func (r *DiscountRepository) ListActiveCoupons(ctx context.Context, codes []string) ([]discount.Discount, error) {
	lowered := make([]string, 0, len(codes))
	for _, c := range codes {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			lowered = append(lowered, c)
		}
	}
	if len(lowered) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, listActiveCouponsSQL, lowered)
	if err != nil {
		return nil, fmt.Errorf("listing active coupons: %w", err)
	}
	return r.collect(ctx, rows)
}

// GetByCode returns the coupon with the given code, active or not.
func (r *DiscountRepository) GetByCode(ctx context.Context, code string) (*discount.Discount, error) {
	rows, err := r.pool.Query(ctx, getDiscountByCodeSQL, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("getting coupon %q: %w", code, err)
	}
	discounts, err := r.collect(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("getting coupon %q: %w", code, err)
	}
	if len(discounts) == 0 {
		return nil, discount.ErrNotFound
	}
	return &discounts[0], nil
}

// collect scans discount rows and loads their amounts, condition groups and
// targets in one batch.
func (r *DiscountRepository) collect(ctx context.Context, rows pgx.Rows) ([]discount.Discount, error) {
	discounts, err := pgx.CollectRows(rows, scanDiscount)
	if err != nil {
		return nil, fmt.Errorf("scanning discounts: %w", err)
	}
	if len(discounts) == 0 {
		return nil, nil
	}

	ids := make([]string, len(discounts))
	for i := range discounts {
		ids[i] = discounts[i].ID
	}

	batch := &pgx.Batch{}
	batch.Queue(getDiscountAmountsSQL, ids)
	batch.Queue(getConditionGroupsSQL, ids)
	batch.Queue(getConditionsSQL, ids)
	batch.Queue(getDiscountProductsSQL, ids)
	batch.Queue(getDiscountProductSetsSQL, ids)
	batch.Queue(getDiscountShippingMethodsSQL, ids)

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	amounts, err := queryPrices(br)
	if err != nil {
		return nil, fmt.Errorf("getting discount amounts: %w", err)
	}
	groups, err := queryConditionGroups(br)
	if err != nil {
		return nil, fmt.Errorf("getting condition groups: %w", err)
	}
	conditions, err := queryConditions(br)
	if err != nil {
		return nil, fmt.Errorf("getting conditions: %w", err)
	}
	targets := make([]map[string][]string, 3)
	for i := range targets {
		rows, err := br.Query()
		if err != nil {
			return nil, fmt.Errorf("getting discount targets: %w", err)
		}
		if targets[i], err = collectIDs(rows); err != nil {
			return nil, fmt.Errorf("scanning discount targets: %w", err)
		}
	}

	for i := range discounts {
		d := &discounts[i]
		d.Amounts = amounts[d.ID]
		for _, g := range groups[d.ID] {
			g.Conditions = conditions[g.ID]
			d.Groups = append(d.Groups, g)
		}
		d.ProductIDs = targets[0][d.ID]
		d.ProductSetIDs = targets[1][d.ID]
		d.ShippingMethodIDs = targets[2][d.ID]
	}
	return discounts, nil
}

func scanDiscount(row pgx.CollectableRow) (discount.Discount, error) {
	var (
		d          discount.Discount
		percentage decimal.NullDecimal
		target     string
	)
	err := row.Scan(
		&d.ID, &d.Name, &d.Code, &percentage, &target,
		&d.TargetIsAllowList, &d.Active, &d.Priority, &d.CreatedAt,
	)
	d.Percentage = percentage
	d.TargetType = discount.TargetType(target)
	return d, err
}

// queryConditionGroups returns groups keyed by discount id.
func queryConditionGroups(br pgx.BatchResults) (map[string][]discount.ConditionGroup, error) {
	rows, err := br.Query()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]discount.ConditionGroup)
	var (
		discountID string
		g          discount.ConditionGroup
	)
	_, err = pgx.ForEachRow(rows, []any{&discountID, &g.ID, &g.Name}, func() error {
		out[discountID] = append(out[discountID], g)
		return nil
	})
	return out, err
}

// queryConditions returns conditions keyed by group id. Payloads are decoded
// and validated by the discount codec.
func queryConditions(br pgx.BatchResults) (map[string][]discount.Condition, error) {
	rows, err := br.Query()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]discount.Condition)
	var (
		groupID, id, typ string
		payload          []byte
	)
	_, err = pgx.ForEachRow(rows, []any{&groupID, &id, &typ, &payload}, func() error {
		v, err := discount.DecodeConditionValue(discount.ConditionType(typ), payload)
		if err != nil {
			return errors.Wrapf(err, "condition %s", id)
		}
		out[groupID] = append(out[groupID], discount.Condition{ID: id, Value: v})
		return nil
	})
	return out, err
}

// Create validates and persists a new discount with its amounts, conditions
// and targets in one transaction. Missing ids are generated.
func (r *DiscountRepository) Create(ctx context.Context, d *discount.Discount) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("validating discount: %w", err)
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return insertDiscount(ctx, tx, d)
	})
}

// insertDiscount writes d and its details within tx.
func insertDiscount(ctx context.Context, tx pgx.Tx, d *discount.Discount) error {
	var percentage *decimal.Decimal
	if d.Percentage.Valid {
		percentage = &d.Percentage.Decimal
	}
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	err := tx.QueryRow(ctx, insertDiscountSQL,
		d.ID, d.Name, nullString(d.Code), percentage, string(d.TargetType),
		d.TargetIsAllowList, d.Active, d.Priority, createdAt,
	).Scan(&d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "discounts_code_idx" {
			return fmt.Errorf("creating discount %q: %w", d.ID, discount.ErrCodeTaken)
		}
		return fmt.Errorf("creating discount %q: %w", d.ID, err)
	}

	batch := &pgx.Batch{}
	for c, v := range d.Amounts {
		batch.Queue(insertDiscountAmountSQL, d.ID, string(c), v)
	}
	for gi := range d.Groups {
		g := &d.Groups[gi]
		if g.ID == "" {
			g.ID = uuid.New().String()
		}
		batch.Queue(insertConditionGroupSQL, g.ID, d.ID, g.Name, gi)
		for ci := range g.Conditions {
			c := &g.Conditions[ci]
			if c.ID == "" {
				c.ID = uuid.New().String()
			}
			batch.Queue(insertConditionSQL, c.ID, g.ID, string(c.Type()), discount.EncodeConditionValue(c.Value), ci)
		}
	}
	for _, id := range d.ProductIDs {
		batch.Queue(insertDiscountProductSQL, d.ID, id)
	}
	for _, id := range d.ProductSetIDs {
		batch.Queue(insertDiscountProductSetSQL, d.ID, id)
	}
	for _, id := range d.ShippingMethodIDs {
		batch.Queue(insertDiscountShippingMethodSQL, d.ID, id)
	}

	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("creating discount %q details: %w", d.ID, err)
	}
	return nil
}
