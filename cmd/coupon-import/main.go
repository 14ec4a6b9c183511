// Command coupon-import creates coupons from gzip compressed code lists,
// cloning a template coupon for every new code.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/couponimport"
	"github.com/xenking/storefront/internal/repository"
)

func main() {
	var (
		databaseURL string
		template    string
		expected    uint
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&template, "template", "", "code of the coupon to clone for every imported code")
	flag.UintVar(&expected, "expected-codes", 1_000_000, "expected number of codes, sizes the duplicate filter")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s -template CODE [flags] file.gz...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" || template == "" || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = zctx.Base(ctx, lg)

	cfg := couponimport.Config{
		Template:      template,
		Files:         flag.Args(),
		ExpectedCodes: expected,
	}
	if err := run(ctx, databaseURL, cfg); err != nil {
		lg.Error("Coupon import failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, databaseURL string, cfg couponimport.Config) error {
	lg := zctx.From(ctx)

	pool, err := repository.NewPool(ctx, databaseURL, repository.PoolConfig{ConnectAttempts: 3})
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Importing coupons",
		zap.String("template", cfg.Template),
		zap.Strings("files", cfg.Files),
	)
	start := time.Now()
	st, err := couponimport.New(repository.NewDiscountRepository(pool), cfg).Run(ctx)
	lg.Info("Import finished",
		zap.Int64("read", st.Read),
		zap.Int64("invalid", st.Invalid),
		zap.Int64("duplicate", st.Duplicate),
		zap.Int64("created", st.Created),
		zap.Duration("took", time.Since(start)),
	)
	return err
}
