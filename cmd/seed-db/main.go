// Command seed-db migrates the database, loads a catalog and seeds an API key.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/catalog"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/repository"
)

type options struct {
	databaseURL string
	catalogFile string
	apiKey      string
	pepper      string
	userID      string
	roles       string
}

func main() {
	var opts options
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.catalogFile, "catalog", "", "path to a catalog JSON file (defaults to the embedded catalog)")
	flag.StringVar(&opts.apiKey, "api-key", "", "API key to seed (or STOREFRONT_SEED_API_KEY env)")
	flag.StringVar(&opts.pepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STOREFRONT_API_KEY_PEPPER env)")
	flag.StringVar(&opts.userID, "user-id", "seed-user", "user the seeded API key authenticates as")
	flag.StringVar(&opts.roles, "roles", "staff", "comma separated roles of the seeded user")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	opts.databaseURL = orEnv(opts.databaseURL, "DATABASE_URL")
	opts.apiKey = orEnv(opts.apiKey, "STOREFRONT_SEED_API_KEY")
	opts.pepper = orEnv(opts.pepper, "STOREFRONT_API_KEY_PEPPER")
	if opts.databaseURL == "" {
		lg.Fatal("Database URL is required: set -database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = zctx.Base(ctx, lg)

	if err := run(ctx, opts); err != nil {
		lg.Error("Seed failed", zap.Error(err))
		os.Exit(1)
	}
	lg.Info("Seed completed")
}

func orEnv(v, key string) string {
	if v != "" {
		return v
	}
	return os.Getenv(key)
}

func run(ctx context.Context, opts options) error {
	lg := zctx.From(ctx)

	data := db.Catalog
	if opts.catalogFile != "" {
		var err error
		if data, err = os.ReadFile(opts.catalogFile); err != nil {
			return errors.Wrap(err, "read catalog")
		}
	}
	c, err := catalog.Parse(data)
	if err != nil {
		return errors.Wrap(err, "parse catalog")
	}

	pool, err := repository.NewPool(ctx, opts.databaseURL, repository.PoolConfig{ConnectAttempts: 10})
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := repository.NewCatalogRepository(pool).Load(ctx, c); err != nil {
		return errors.Wrap(err, "load catalog")
	}
	lg.Info("Catalog loaded",
		zap.Int("products", len(c.Products)),
		zap.Int("product_sets", len(c.Sets)),
		zap.Int("shipping_methods", len(c.ShippingMethods)),
		zap.Int("discounts", len(c.Discounts)),
	)

	if opts.apiKey == "" {
		lg.Info("No API key given, skipping")
		return nil
	}
	info := &auth.APIKeyInfo{
		ID:      "default",
		KeyHash: auth.HashKey([]byte(opts.pepper), opts.apiKey),
		Name:    "Default seed key",
		UserID:  opts.userID,
		Roles:   splitRoles(opts.roles),
	}
	if err := repository.NewAPIKeyRepository(pool).Upsert(ctx, info); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	lg.Info("API key seeded", zap.String("id", info.ID), zap.String("user_id", info.UserID))
	return nil
}

func splitRoles(s string) []string {
	var roles []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
