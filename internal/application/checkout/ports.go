package checkout

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
)

// TokenSource hands out a bearer token for the payment processor.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// OrderGateway creates and captures orders at the payment processor.
type OrderGateway interface {
	CreateOrder(ctx context.Context, accessToken string, d order.Draft) (string, error)
	CaptureOrder(ctx context.Context, accessToken, orderID string) (*payment.Capture, error)
}

// Pricer computes the amount to charge for a cart, in the store currency.
type Pricer interface {
	Price(ctx context.Context, lines []catalog.Line) (decimal.Decimal, error)
}
