package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type Repository interface {
	Get(ctx context.Context, productID string) (Product, error)
	List(ctx context.Context) ([]Product, error)
}

// Total prices every line against repo. An unknown product or an invalid
// quantity fails the whole cart.
func Total(ctx context.Context, repo Repository, lines []Line) (decimal.Decimal, error) {
	if len(lines) == 0 {
		return decimal.Zero, ErrEmptyCart
	}
	if repo == nil {
		return decimal.Zero, errors.New("catalog: repository is required")
	}
	total := decimal.Zero
	for _, line := range lines {
		if err := line.Validate(); err != nil {
			return decimal.Zero, err
		}
		product, err := repo.Get(ctx, line.ProductID)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(product.Subtotal(line.Quantity))
	}
	return total, nil
}
