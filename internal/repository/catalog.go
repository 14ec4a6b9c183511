package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/catalog"
	"github.com/xenking/storefront/internal/domain/money"
	"github.com/xenking/storefront/internal/domain/product"
)

const (
	upsertProductSQL = `INSERT INTO products (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`

	deleteProductPricesSQL  = `DELETE FROM product_prices WHERE product_id = $1`
	deleteProductSchemasSQL = `DELETE FROM product_schemas WHERE product_id = $1`

	insertProductPriceSQL = `INSERT INTO product_prices (product_id, currency, value)
		VALUES ($1, $2, $3)`

	insertProductSchemaSQL = `INSERT INTO product_schemas (id, product_id, name, type, required, position)
		VALUES ($1, $2, $3, $4, $5, $6)`

	insertSchemaPriceSQL = `INSERT INTO product_schema_prices (schema_id, currency, value)
		VALUES ($1, $2, $3)`

	insertSchemaOptionSQL = `INSERT INTO product_schema_options (schema_id, id, name, position)
		VALUES ($1, $2, $3, $4)`

	insertOptionPriceSQL = `INSERT INTO product_schema_option_prices (schema_id, option_id, currency, value)
		VALUES ($1, $2, $3, $4)`

	upsertProductSetSQL = `INSERT INTO product_sets (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`

	setProductSetParentSQL = `UPDATE product_sets SET parent_id = $2 WHERE id = $1`

	deleteSetProductsSQL = `DELETE FROM product_set_products WHERE set_id = $1`

	insertSetProductSQL = `INSERT INTO product_set_products (set_id, product_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`

	upsertShippingMethodSQL = `INSERT INTO shipping_methods (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`

	deleteShippingPricesSQL = `DELETE FROM shipping_method_prices WHERE method_id = $1`

	insertShippingPriceSQL = `INSERT INTO shipping_method_prices (method_id, currency, start, price)
		VALUES ($1, $2, $3, $4)`

	deleteDiscountSQL = `DELETE FROM discounts WHERE id = $1`
)

// CatalogRepository writes seed catalogs.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// Load upserts every entry of c in one transaction. Products, sets and
// shipping methods are updated in place; discounts are replaced, which also
// drops their redemption history.
func (r *CatalogRepository) Load(ctx context.Context, c *catalog.Catalog) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for i := range c.Products {
			if err := upsertProduct(ctx, tx, &c.Products[i]); err != nil {
				return err
			}
		}
		if err := upsertSets(ctx, tx, c.Sets); err != nil {
			return err
		}
		for _, m := range c.ShippingMethods {
			batch := &pgx.Batch{}
			batch.Queue(upsertShippingMethodSQL, m.ID, m.Name)
			batch.Queue(deleteShippingPricesSQL, m.ID)
			for _, pr := range m.PriceRanges {
				batch.Queue(insertShippingPriceSQL, m.ID, string(pr.Currency), pr.Start, pr.Price)
			}
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("upserting shipping method %q: %w", m.ID, err)
			}
		}
		for i := range c.Discounts {
			d := &c.Discounts[i]
			if _, err := tx.Exec(ctx, deleteDiscountSQL, d.ID); err != nil {
				return fmt.Errorf("replacing discount %q: %w", d.ID, err)
			}
			if err := insertDiscount(ctx, tx, d); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertProduct(ctx context.Context, tx pgx.Tx, p *product.Product) error {
	batch := &pgx.Batch{}
	batch.Queue(upsertProductSQL, p.ID, p.Name)
	batch.Queue(deleteProductPricesSQL, p.ID)
	batch.Queue(deleteProductSchemasSQL, p.ID)
	queuePrices(batch, insertProductPriceSQL, p.ID, p.Prices)
	for si, s := range p.Schemas {
		batch.Queue(insertProductSchemaSQL, s.ID, p.ID, s.Name, string(s.Type), s.Required, si)
		queuePrices(batch, insertSchemaPriceSQL, s.ID, s.Prices)
		for oi, o := range s.Options {
			batch.Queue(insertSchemaOptionSQL, s.ID, o.ID, o.Name, oi)
			for c, v := range o.Prices {
				batch.Queue(insertOptionPriceSQL, s.ID, o.ID, string(c), v)
			}
		}
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

// upsertSets writes sets before linking parents so a child may precede its
// parent in the catalog.
func upsertSets(ctx context.Context, tx pgx.Tx, sets []catalog.Set) error {
	if len(sets) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, s := range sets {
		batch.Queue(upsertProductSetSQL, s.ID, s.Name)
	}
	for _, s := range sets {
		batch.Queue(setProductSetParentSQL, s.ID, nullString(s.ParentID))
		batch.Queue(deleteSetProductsSQL, s.ID)
		for _, pid := range s.ProductIDs {
			batch.Queue(insertSetProductSQL, s.ID, pid)
		}
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting product sets: %w", err)
	}
	return nil
}

func queuePrices(batch *pgx.Batch, sql, owner string, prices money.Prices) {
	for c, v := range prices {
		batch.Queue(sql, owner, string(c), v)
	}
}
