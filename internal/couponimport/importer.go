// Package couponimport creates coupons in bulk from gzip compressed code
// lists. Every code becomes a copy of a template coupon.
package couponimport

import (
	"bufio"
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/discount"
)

const (
	maxCodeLen    = 64
	progressEvery = 100_000
)

// Store reads and creates coupons.
type Store interface {
	GetByCode(ctx context.Context, code string) (*discount.Discount, error)
	Create(ctx context.Context, d *discount.Discount) error
}

// Config controls an import run.
type Config struct {
	// Template is the code of the coupon every imported code is cloned from.
	Template string
	Files    []string
	// ExpectedCodes sizes the duplicate filter.
	ExpectedCodes uint
	// FalsePositiveRate of the duplicate filter. Every false positive costs
	// one lookup.
	FalsePositiveRate float64
}

// Stats summarizes an import run.
type Stats struct {
	Read      int64
	Invalid   int64
	Duplicate int64
	Created   int64
}

// Importer streams code lists into coupons.
type Importer struct {
	store Store
	cfg   Config
}

// New returns an Importer writing to store.
func New(store Store, cfg Config) *Importer {
	if cfg.ExpectedCodes == 0 {
		cfg.ExpectedCodes = 1_000_000
	}
	if cfg.FalsePositiveRate <= 0 {
		cfg.FalsePositiveRate = 0.001
	}
	return &Importer{store: store, cfg: cfg}
}

// Run reads every file concurrently and creates one coupon per new code.
// Codes are compared case-insensitively; repeats within the run and codes
// that already exist are counted as duplicates.
func (im *Importer) Run(ctx context.Context) (Stats, error) {
	var st Stats

	tmpl, err := im.store.GetByCode(ctx, im.cfg.Template)
	if err != nil {
		return st, errors.Wrapf(err, "get template coupon %q", im.cfg.Template)
	}
	if len(im.cfg.Files) == 0 {
		return st, errors.New("no files to import")
	}

	g, gctx := errgroup.WithContext(ctx)
	codes := make(chan string, 1024)

	var readers sync.WaitGroup
	for _, path := range im.cfg.Files {
		readers.Add(1)
		g.Go(func() error {
			defer readers.Done()
			return readCodes(gctx, path, codes, &st)
		})
	}
	go func() {
		readers.Wait()
		close(codes)
	}()

	g.Go(func() error {
		return im.consume(gctx, tmpl, codes, &st)
	})

	err = g.Wait()
	return Stats{
		Read:      atomic.LoadInt64(&st.Read),
		Invalid:   atomic.LoadInt64(&st.Invalid),
		Duplicate: st.Duplicate,
		Created:   st.Created,
	}, err
}

// consume creates coupons for codes. The bloom filter answers "never seen"
// without a lookup; a positive is confirmed against the store.
func (im *Importer) consume(ctx context.Context, tmpl *discount.Discount, codes <-chan string, st *Stats) error {
	lg := zctx.From(ctx)
	seen := bloom.NewWithEstimates(im.cfg.ExpectedCodes, im.cfg.FalsePositiveRate)

	for {
		var (
			code string
			ok   bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case code, ok = <-codes:
			if !ok {
				return nil
			}
		}

		if seen.TestAndAddString(strings.ToLower(code)) {
			_, err := im.store.GetByCode(ctx, code)
			switch {
			case err == nil:
				st.Duplicate++
				continue
			case !errors.Is(err, discount.ErrNotFound):
				return errors.Wrapf(err, "confirm code %q", code)
			}
		}

		err := im.store.Create(ctx, tmpl.WithCode(code))
		switch {
		case errors.Is(err, discount.ErrCodeTaken):
			st.Duplicate++
			continue
		case err != nil:
			return errors.Wrapf(err, "create coupon %q", code)
		}

		st.Created++
		if st.Created%progressEvery == 0 {
			lg.Info("Import progress", zap.Int64("created", st.Created), zap.Int64("duplicate", st.Duplicate))
		}
	}
}

// readCodes streams one gzip file, one code per line, into out.
func readCodes(ctx context.Context, path string, out chan<- string, st *Stats) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		code := strings.TrimSpace(scanner.Text())
		if code == "" {
			continue
		}
		atomic.AddInt64(&st.Read, 1)
		if !validCode(code) {
			atomic.AddInt64(&st.Invalid, 1)
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- code:
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

func validCode(code string) bool {
	if len(code) > maxCodeLen {
		return false
	}
	for _, r := range code {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
