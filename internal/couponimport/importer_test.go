package couponimport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/discount"
)

type memStore struct {
	mu        sync.Mutex
	byCode    map[string]*discount.Discount
	createErr error
}

func newMemStore(coupons ...*discount.Discount) *memStore {
	s := &memStore{byCode: map[string]*discount.Discount{}}
	for _, c := range coupons {
		s.byCode[strings.ToLower(c.Code)] = c
	}
	return s
}

func (s *memStore) GetByCode(_ context.Context, code string) (*discount.Discount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byCode[strings.ToLower(code)]
	if !ok {
		return nil, discount.ErrNotFound
	}
	return d, nil
}

func (s *memStore) Create(_ context.Context, d *discount.Discount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	key := strings.ToLower(d.Code)
	if _, ok := s.byCode[key]; ok {
		return fmt.Errorf("creating discount: %w", discount.ErrCodeTaken)
	}
	d.ID = fmt.Sprintf("d%d", len(s.byCode))
	s.byCode[key] = d
	return nil
}

func writeGz(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "codes.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return path
}

func template() *discount.Discount {
	return &discount.Discount{
		ID:         "tmpl",
		Name:       "Partner promo",
		Code:       "PARTNER",
		Percentage: decimal.NewNullDecimal(decimal.NewFromInt(15)),
		TargetType: discount.TargetOrderValue,
		Active:     true,
	}
}

func TestImporter_Run(t *testing.T) {
	store := newMemStore(template(), &discount.Discount{ID: "old", Code: "EXISTING"})
	files := []string{
		writeGz(t, "AAA", "bbb", "AAA", ""),
		writeGz(t, "aaa", "CCC", "bad code", "EXISTING"),
	}

	st, err := New(store, Config{Template: "partner", Files: files}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Stats{Read: 7, Invalid: 1, Duplicate: 3, Created: 3}, st)

	for _, code := range []string{"aaa", "bbb", "ccc"} {
		d, err := store.GetByCode(context.Background(), code)
		require.NoError(t, err, code)
		assert.Equal(t, "Partner promo", d.Name)
		assert.True(t, decimal.NewFromInt(15).Equal(d.Percentage.Decimal))
		assert.NotEqual(t, "tmpl", d.ID)
	}
	old, err := store.GetByCode(context.Background(), "existing")
	require.NoError(t, err)
	assert.Equal(t, "old", old.ID)
}

func TestImporter_Run_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingTemplate", func(t *testing.T) {
		_, err := New(newMemStore(), Config{Template: "NOPE", Files: []string{writeGz(t, "A1")}}).Run(ctx)
		require.ErrorIs(t, err, discount.ErrNotFound)
	})
	t.Run("NoFiles", func(t *testing.T) {
		_, err := New(newMemStore(template()), Config{Template: "PARTNER"}).Run(ctx)
		require.Error(t, err)
	})
	t.Run("MissingFile", func(t *testing.T) {
		cfg := Config{Template: "PARTNER", Files: []string{filepath.Join(t.TempDir(), "nope.gz")}}
		_, err := New(newMemStore(template()), cfg).Run(ctx)
		require.Error(t, err)
	})
	t.Run("NotGzip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "plain.gz")
		require.NoError(t, os.WriteFile(path, []byte("A1\nA2\n"), 0o600))
		_, err := New(newMemStore(template()), Config{Template: "PARTNER", Files: []string{path}}).Run(ctx)
		require.Error(t, err)
	})
	t.Run("CreateFails", func(t *testing.T) {
		store := newMemStore(template())
		store.createErr = errors.New("db down")
		_, err := New(store, Config{Template: "PARTNER", Files: []string{writeGz(t, "A1", "A2")}}).Run(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db down")
	})
}

func TestValidCode(t *testing.T) {
	assert.True(t, validCode("SUMMER-2026"))
	assert.False(t, validCode("two words"))
	assert.False(t, validCode("tab\tcode"))
	assert.False(t, validCode(strings.Repeat("x", maxCodeLen+1)))
}
