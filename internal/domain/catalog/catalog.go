package catalog

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("catalog: product not found")
	ErrMissingID       = errors.New("catalog: product id is required")
	ErrInvalidQuantity = errors.New("catalog: quantity must be greater than zero")
	ErrInvalidPrice    = errors.New("catalog: price must be greater than zero")
	ErrEmptyCart       = errors.New("catalog: cart is empty")
)

// Product is a sellable item with its trusted unit price in the store currency.
type Product struct {
	ID       string
	Title    string
	Category string
	Price    decimal.Decimal
}

func NewProduct(id, title, category string, price decimal.Decimal) (Product, error) {
	if id == "" {
		return Product{}, ErrMissingID
	}
	if !price.IsPositive() {
		return Product{}, fmt.Errorf("%w: %s", ErrInvalidPrice, id)
	}
	return Product{ID: id, Title: title, Category: category, Price: price}, nil
}

// Line is one cart entry as submitted by the client. Only the product id and
// quantity are taken from the client; the price always comes from the catalog.
type Line struct {
	ProductID string
	Quantity  int
}

func (l Line) Validate() error {
	if l.ProductID == "" {
		return ErrMissingID
	}
	if l.Quantity <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidQuantity, l.ProductID)
	}
	return nil
}

// Subtotal returns price × quantity for a validated line.
func (p Product) Subtotal(quantity int) decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(quantity)))
}
