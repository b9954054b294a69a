// Package checkout orchestrates order creation and capture against the
// payment processor.
package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/money"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
)

const (
	checkoutService     = "checkout-service"
	useCaseOrderCreate  = "checkout.create_order"
	useCaseOrderCapture = "checkout.capture_order"
	spanPrefix          = "UC."
)

// CreateOrderUseCase prices the cart server-side, obtains a token and
// registers the order with the processor.
type CreateOrderUseCase struct {
	tokens        TokenSource
	gateway       OrderGateway
	pricer        Pricer
	storeCurrency string
	tel           observability.Observability

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

var _ application.UseCase[CreateOrderInput, *CreateOrderResult] = (*CreateOrderUseCase)(nil)

func NewCreateOrderUseCase(
	tokens TokenSource,
	gateway OrderGateway,
	pricer Pricer,
	storeCurrency string,
	tel observability.Observability,
) *CreateOrderUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	return &CreateOrderUseCase{
		tokens:        tokens,
		gateway:       gateway,
		pricer:        pricer,
		storeCurrency: strings.ToUpper(strings.TrimSpace(storeCurrency)),
		tel:           tel,
		log:           tel.Logger().With(observability.F("service", checkoutService)),
		reqCounter:    tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram:  tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

type CreateOrderInput struct {
	// Currency defaults to the store currency when empty.
	Currency string
	// ClientAmount is what the browser believes the total is. It is only
	// compared against the computed amount, never charged.
	ClientAmount string
	Items        []catalog.Line
}

type CreateOrderResult struct {
	OrderID string
	Amount  money.Amount
}

func (uc *CreateOrderUseCase) Execute(ctx context.Context, cmd CreateOrderInput) (_ *CreateOrderResult, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(observability.F("use_case", useCaseOrderCreate))

	ctx, span := uc.tel.Tracer().Start(ctx, spanPrefix+"CreateOrder",
		attribute.String("use_case", useCaseOrderCreate),
		attribute.Int("order.items", len(cmd.Items)),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	var orderID string

	defer func() {
		lat := time.Since(start).Seconds()

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseOrderCreate),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat, observability.L("use_case", useCaseOrderCreate))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		fields = append(fields, observability.TraceFields(ctx)...)
		if orderID != "" {
			fields = append(fields, observability.F("order_id", orderID))
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	currency := cmd.Currency
	if strings.TrimSpace(currency) == "" {
		currency = uc.storeCurrency
	}
	currency, err = money.NormalizeCurrency(currency)
	if err != nil {
		outcome, statusText = "error", "CURRENCY_INVALID"
		return nil, wrapValidation(err)
	}
	if currency != uc.storeCurrency {
		outcome, statusText = "error", "CURRENCY_MISMATCH"
		return nil, newValidation("currency " + currency + " is not accepted, use " + uc.storeCurrency)
	}

	total, err := uc.pricer.Price(ctx, cmd.Items)
	if err != nil {
		outcome, statusText = "error", "PRICING_FAILED"
		if isCartError(err) {
			return nil, wrapValidation(err)
		}
		return nil, err
	}
	amount, err := money.NewAmount(currency, total)
	if err != nil {
		outcome, statusText = "error", "AMOUNT_INVALID"
		return nil, wrapValidation(err)
	}
	span.SetAttributes(
		attribute.String("order.currency", amount.Currency()),
		attribute.String("order.amount", amount.Value()),
	)
	uc.checkClientAmount(logger, cmd.ClientAmount, amount)

	draft, err := order.NewDraft(amount)
	if err != nil {
		outcome, statusText = "error", "DRAFT_INVALID"
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		outcome, statusText = "error", "CONTEXT_CANCELED"
		return nil, err
	}

	token, err := uc.tokens.AccessToken(ctx)
	if err != nil {
		outcome, statusText = "error", "TOKEN_FAILED"
		return nil, err
	}

	orderID, err = uc.gateway.CreateOrder(ctx, token, draft)
	if err != nil {
		outcome, statusText = "error", "UPSTREAM_CREATE_FAILED"
		return nil, err
	}

	span.AddEvent("order.created", trace.WithAttributes(attribute.String("order.id", orderID)))
	return &CreateOrderResult{OrderID: orderID, Amount: amount}, nil
}

// checkClientAmount warns when the browser's total disagrees with ours.
func (uc *CreateOrderUseCase) checkClientAmount(logger observability.Logger, raw string, charged money.Amount) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	claimed, err := decimal.NewFromString(raw)
	if err == nil && claimed.Round(money.Scale).Equal(charged.Decimal()) {
		return
	}
	logger.Warn("client_amount_ignored",
		observability.F("client_amount", raw),
		observability.F("charged_amount", charged.Value()),
		observability.F("currency", charged.Currency()),
	)
}

func isCartError(err error) bool {
	return errors.Is(err, catalog.ErrNotFound) ||
		errors.Is(err, catalog.ErrMissingID) ||
		errors.Is(err, catalog.ErrInvalidQuantity) ||
		errors.Is(err, catalog.ErrEmptyCart)
}
