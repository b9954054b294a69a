package checkout

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
)

// CatalogPricer prices carts against the trusted catalog. An empty cart is
// charged the fallback amount.
type CatalogPricer struct {
	repo     catalog.Repository
	fallback decimal.Decimal
}

func NewCatalogPricer(repo catalog.Repository, fallback decimal.Decimal) *CatalogPricer {
	return &CatalogPricer{repo: repo, fallback: fallback}
}

func (p *CatalogPricer) Price(ctx context.Context, lines []catalog.Line) (decimal.Decimal, error) {
	if len(lines) == 0 {
		return p.fallback, nil
	}
	return catalog.Total(ctx, p.repo, lines)
}
