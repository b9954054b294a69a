package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
)

// CatalogRepository is a read-mostly in-memory price list.
type CatalogRepository struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

func NewCatalogRepository(products ...domain.Product) *CatalogRepository {
	r := &CatalogRepository{
		products: make(map[string]domain.Product, len(products)),
	}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

// NewStorefrontCatalog returns the catalog the storefront UI renders.
func NewStorefrontCatalog() *CatalogRepository {
	seed := []struct {
		id, title, category, price string
	}{
		{"tee-hachiroku", "AE86 Track Tee", "tees", "24.99"},
		{"tee-gt-r", "R34 Skyline Tee", "tees", "27.50"},
		{"hoodie-supra", "A80 Supra Hoodie", "hoodies", "49.00"},
		{"sticker-kanjo", "Kanjo Night Sticker Pack", "stickers", "9.50"},
		{"plate-tow", "JDM Tow Strap Keychain", "accessories", "12.00"},
		{"tee-rotary", "Rotary Spirit Tee", "tees", "26.00"},
		{"hoodie-kaido", "Kaido Racer Hoodie", "hoodies", "55.00"},
		{"lanyard-jpn", "Japan Script Lanyard", "accessories", "7.99"},
	}
	products := make([]domain.Product, 0, len(seed))
	for _, s := range seed {
		p, err := domain.NewProduct(s.id, s.title, s.category, decimal.RequireFromString(s.price))
		if err != nil {
			panic(err)
		}
		products = append(products, p)
	}
	return NewCatalogRepository(products...)
}

func (r *CatalogRepository) Get(ctx context.Context, productID string) (domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[productID]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: %s", domain.ErrNotFound, productID)
	}
	return p, nil
}

// List returns every product ordered by id.
func (r *CatalogRepository) List(ctx context.Context) ([]domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	out := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Put adds or replaces a product.
func (r *CatalogRepository) Put(p domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
}
