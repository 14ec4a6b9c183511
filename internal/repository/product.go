package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/money"
	"github.com/xenking/storefront/internal/domain/product"
)

const (
	getProductsByIDsSQL = `SELECT id, name FROM products WHERE id = ANY($1) ORDER BY id`

	getProductPricesSQL = `SELECT product_id, currency, value
		FROM product_prices WHERE product_id = ANY($1)`

	getProductSchemasSQL = `SELECT id, product_id, name, type, required
		FROM product_schemas WHERE product_id = ANY($1)
		ORDER BY product_id, position, id`

	getSchemaPricesSQL = `SELECT sp.schema_id, sp.currency, sp.value
		FROM product_schema_prices sp
		JOIN product_schemas s ON s.id = sp.schema_id
		WHERE s.product_id = ANY($1)`

	getSchemaOptionsSQL = `SELECT o.schema_id, o.id, o.name
		FROM product_schema_options o
		JOIN product_schemas s ON s.id = o.schema_id
		WHERE s.product_id = ANY($1)
		ORDER BY o.schema_id, o.position, o.id`

	getOptionPricesSQL = `SELECT op.schema_id || '/' || op.option_id, op.currency, op.value
		FROM product_schema_option_prices op
		JOIN product_schemas s ON s.id = op.schema_id
		WHERE s.product_id = ANY($1)`

	getProductSetIDsSQL = `SELECT product_id, set_id
		FROM product_set_products WHERE product_id = ANY($1) ORDER BY set_id`

	listProductSetsSQL = `SELECT id, COALESCE(parent_id, '') FROM product_sets`
)

var (
	_ product.Repository    = (*ProductRepository)(nil)
	_ product.SetRepository = (*ProductSetRepository)(nil)
)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	products, err := r.GetByIDs(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	if len(products) == 0 {
		return nil, product.ErrNotFound
	}
	return &products[0], nil
}

// GetByIDs returns products matching any of the given IDs together with their
// prices, schemas and set memberships. Related rows are fetched in a single
// batch round trip.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (product.Product, error) {
		var p product.Product
		err := row.Scan(&p.ID, &p.Name)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning products: %w", err)
	}
	if len(products) == 0 {
		return nil, nil
	}

	found := make([]string, len(products))
	for i := range products {
		found[i] = products[i].ID
	}

	batch := &pgx.Batch{}
	batch.Queue(getProductPricesSQL, found)
	batch.Queue(getProductSchemasSQL, found)
	batch.Queue(getSchemaPricesSQL, found)
	batch.Queue(getSchemaOptionsSQL, found)
	batch.Queue(getOptionPricesSQL, found)
	batch.Queue(getProductSetIDsSQL, found)

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	prices, err := queryPrices(br)
	if err != nil {
		return nil, fmt.Errorf("getting product prices: %w", err)
	}
	schemas, err := querySchemas(br)
	if err != nil {
		return nil, fmt.Errorf("getting product schemas: %w", err)
	}
	schemaPrices, err := queryPrices(br)
	if err != nil {
		return nil, fmt.Errorf("getting schema prices: %w", err)
	}
	options, err := queryOptions(br)
	if err != nil {
		return nil, fmt.Errorf("getting schema options: %w", err)
	}
	optionPrices, err := queryPrices(br)
	if err != nil {
		return nil, fmt.Errorf("getting option prices: %w", err)
	}
	setRows, err := br.Query()
	if err != nil {
		return nil, fmt.Errorf("getting product sets: %w", err)
	}
	setIDs, err := collectIDs(setRows)
	if err != nil {
		return nil, fmt.Errorf("scanning product sets: %w", err)
	}

	for i := range products {
		p := &products[i]
		p.Prices = prices[p.ID]
		p.SetIDs = setIDs[p.ID]
		for _, s := range schemas[p.ID] {
			s.Prices = schemaPrices[s.ID]
			for _, o := range options[s.ID] {
				o.Prices = optionPrices[s.ID+"/"+o.ID]
				s.Options = append(s.Options, o)
			}
			p.Schemas = append(p.Schemas, s)
		}
	}
	return products, nil
}

func queryPrices(br pgx.BatchResults) (map[string]money.Prices, error) {
	rows, err := br.Query()
	if err != nil {
		return nil, err
	}
	return collectPrices(rows)
}

// querySchemas returns schemas keyed by product id.
func querySchemas(br pgx.BatchResults) (map[string][]product.Schema, error) {
	rows, err := br.Query()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]product.Schema)
	var (
		s         product.Schema
		productID string
		typ       string
	)
	_, err = pgx.ForEachRow(rows, []any{&s.ID, &productID, &s.Name, &typ, &s.Required}, func() error {
		s.Type = product.SchemaType(typ)
		out[productID] = append(out[productID], s)
		return nil
	})
	return out, err
}

// queryOptions returns options keyed by schema id.
func queryOptions(br pgx.BatchResults) (map[string][]product.Option, error) {
	rows, err := br.Query()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]product.Option)
	var (
		o        product.Option
		schemaID string
	)
	_, err = pgx.ForEachRow(rows, []any{&schemaID, &o.ID, &o.Name}, func() error {
		out[schemaID] = append(out[schemaID], o)
		return nil
	})
	return out, err
}

// ProductSetRepository implements product.SetRepository backed by PostgreSQL.
type ProductSetRepository struct {
	pool *pgxpool.Pool
}

// NewProductSetRepository returns a ProductSetRepository that uses the given
// pool.
func NewProductSetRepository(pool *pgxpool.Pool) *ProductSetRepository {
	return &ProductSetRepository{pool: pool}
}

// Tree loads the whole product set hierarchy.
func (r *ProductSetRepository) Tree(ctx context.Context) (*product.SetTree, error) {
	rows, err := r.pool.Query(ctx, listProductSetsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing product sets: %w", err)
	}
	nodes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (product.SetNode, error) {
		var n product.SetNode
		err := row.Scan(&n.ID, &n.ParentID)
		return n, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning product sets: %w", err)
	}
	return product.NewSetTree(nodes), nil
}
