package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/domain/money"
)

// uniqueViolation is the SQLSTATE of a unique constraint violation.
const uniqueViolation = "23505"

// PoolConfig tunes the initial connection.
type PoolConfig struct {
	// ConnectAttempts is how many times the first ping is tried before
	// giving up. Values below 1 mean a single attempt.
	ConnectAttempts uint
	ConnectDelay    time.Duration
}

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns and waits until the database answers a ping.
func NewPool(ctx context.Context, databaseURL string, pc PoolConfig) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if pc.ConnectAttempts < 1 {
		pc.ConnectAttempts = 1
	}
	if pc.ConnectDelay <= 0 {
		pc.ConnectDelay = time.Second
	}

	lg := zctx.From(ctx)
	err = retry.Do(
		func() error {
			return pool.Ping(ctx)
		},
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil
		}),
		retry.OnRetry(func(n uint, err error) {
			lg.Warn("Database not ready", zap.Uint("attempt", n+1), zap.Error(err))
		}),
		retry.Attempts(pc.ConnectAttempts),
		retry.Delay(pc.ConnectDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, db.Schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// collectPrices reads (owner, currency, value) rows into per-owner price maps.
func collectPrices(rows pgx.Rows) (map[string]money.Prices, error) {
	out := make(map[string]money.Prices)
	var (
		owner, currency string
		value           decimal.Decimal
	)
	_, err := pgx.ForEachRow(rows, []any{&owner, &currency, &value}, func() error {
		prices, ok := out[owner]
		if !ok {
			prices = make(money.Prices)
			out[owner] = prices
		}
		prices[money.Currency(currency)] = value
		return nil
	})
	return out, err
}

// collectIDs reads (owner, id) rows into per-owner id lists.
func collectIDs(rows pgx.Rows) (map[string][]string, error) {
	out := make(map[string][]string)
	var owner, id string
	_, err := pgx.ForEachRow(rows, []any{&owner, &id}, func() error {
		out[owner] = append(out[owner], id)
		return nil
	})
	return out, err
}

// nullString maps "" to NULL.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
