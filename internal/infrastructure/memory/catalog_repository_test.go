package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
)

func TestStorefrontCatalog_Prices(t *testing.T) {
	repo := NewStorefrontCatalog()
	ctx := context.Background()

	p, err := repo.Get(ctx, "hoodie-supra")
	require.NoError(t, err)
	assert.Equal(t, "49.00", p.Price.StringFixed(2))
	assert.Equal(t, "A80 Supra Hoodie", p.Title)

	_, err = repo.Get(ctx, "tee-unknown")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 8)
	assert.Equal(t, "hoodie-kaido", all[0].ID)
}

func TestTotal_SumsCatalogPrices(t *testing.T) {
	repo := NewStorefrontCatalog()

	total, err := domain.Total(context.Background(), repo, []domain.Line{
		{ProductID: "tee-hachiroku", Quantity: 2},
		{ProductID: "lanyard-jpn", Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "57.97", total.StringFixed(2))
}

func TestTotal_Rejects(t *testing.T) {
	repo := NewStorefrontCatalog()
	ctx := context.Background()

	_, err := domain.Total(ctx, repo, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	_, err = domain.Total(ctx, repo, []domain.Line{{ProductID: "tee-gt-r", Quantity: 0}})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = domain.Total(ctx, repo, []domain.Line{{ProductID: "ghost", Quantity: 1}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPut_ReplacesProduct(t *testing.T) {
	repo := NewCatalogRepository()
	p, err := domain.NewProduct("sku-1", "Sku", "misc", decimal.RequireFromString("1.50"))
	require.NoError(t, err)
	repo.Put(p)

	got, err := repo.Get(context.Background(), "sku-1")
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("1.5")))
}
