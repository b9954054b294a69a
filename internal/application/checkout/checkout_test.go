package checkout

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/zaplogger"
)

type fakeTokens struct {
	token string
	err   error
	calls int
}

func (f *fakeTokens) AccessToken(context.Context) (string, error) {
	f.calls++
	return f.token, f.err
}

type fakeGateway struct {
	orderID   string
	capture   *payment.Capture
	err       error
	drafts    []order.Draft
	captured  []string
	tokensGot []string
}

func (f *fakeGateway) CreateOrder(_ context.Context, token string, d order.Draft) (string, error) {
	f.tokensGot = append(f.tokensGot, token)
	f.drafts = append(f.drafts, d)
	return f.orderID, f.err
}

func (f *fakeGateway) CaptureOrder(_ context.Context, token, orderID string) (*payment.Capture, error) {
	f.tokensGot = append(f.tokensGot, token)
	f.captured = append(f.captured, orderID)
	return f.capture, f.err
}

type fakePublisher struct {
	events []domoutbox.Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, e domoutbox.Event) error {
	f.events = append(f.events, e)
	return f.err
}

func newPricer() *CatalogPricer {
	return NewCatalogPricer(memory.NewStorefrontCatalog(), decimal.RequireFromString("19.99"))
}

func newObservedTel() (*observer.ObservedLogs, *zaplogger.Logger) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logs, zaplogger.Wrap(zap.New(core))
}

func TestCreateOrder_DefaultsToFallbackAmount(t *testing.T) {
	tokens := &fakeTokens{token: "A21AAtoken"}
	gw := &fakeGateway{orderID: "5O190127TN364715T"}
	uc := NewCreateOrderUseCase(tokens, gw, newPricer(), "EUR", nil)

	res, err := uc.Execute(context.Background(), CreateOrderInput{})
	require.NoError(t, err)

	assert.Equal(t, "5O190127TN364715T", res.OrderID)
	assert.Equal(t, "19.99", res.Amount.Value())
	assert.Equal(t, "EUR", res.Amount.Currency())
	require.Len(t, gw.drafts, 1)
	assert.Equal(t, order.IntentCapture, gw.drafts[0].Intent)
	assert.Equal(t, order.ShippingNoShipping, gw.drafts[0].ShippingPreference)
	assert.Equal(t, order.UserActionPayNow, gw.drafts[0].UserAction)
	assert.Equal(t, []string{"A21AAtoken"}, gw.tokensGot)
}

func TestCreateOrder_UpperCasesCurrency(t *testing.T) {
	gw := &fakeGateway{orderID: "X"}
	uc := NewCreateOrderUseCase(&fakeTokens{token: "t"}, gw, newPricer(), "EUR", nil)

	res, err := uc.Execute(context.Background(), CreateOrderInput{Currency: "eur"})
	require.NoError(t, err)
	assert.Equal(t, "EUR", res.Amount.Currency())
	assert.Equal(t, "EUR", gw.drafts[0].Amount.Currency())
}

func TestCreateOrder_RoundsHalfAwayFromZero(t *testing.T) {
	gw := &fakeGateway{orderID: "X"}
	pricer := NewCatalogPricer(memory.NewStorefrontCatalog(), decimal.RequireFromString("10.005"))
	uc := NewCreateOrderUseCase(&fakeTokens{token: "t"}, gw, pricer, "EUR", nil)

	res, err := uc.Execute(context.Background(), CreateOrderInput{})
	require.NoError(t, err)
	assert.Equal(t, "10.01", res.Amount.Value())
	assert.Equal(t, "10.01", gw.drafts[0].Amount.Value())
}

func TestCreateOrder_PricesCartFromCatalog(t *testing.T) {
	gw := &fakeGateway{orderID: "X"}
	uc := NewCreateOrderUseCase(&fakeTokens{token: "t"}, gw, newPricer(), "EUR", nil)

	res, err := uc.Execute(context.Background(), CreateOrderInput{
		Items: []catalog.Line{
			{ProductID: "tee-hachiroku", Quantity: 2},
			{ProductID: "lanyard-jpn", Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "57.97", res.Amount.Value())
}

func TestCreateOrder_IgnoresClientAmount(t *testing.T) {
	logs, log := newObservedTel()
	gw := &fakeGateway{orderID: "X"}
	uc := NewCreateOrderUseCase(&fakeTokens{token: "t"}, gw, newPricer(), "EUR", infraobs.New(infraobs.Options{Logger: log}))

	res, err := uc.Execute(context.Background(), CreateOrderInput{ClientAmount: "0.01"})
	require.NoError(t, err)
	assert.Equal(t, "19.99", res.Amount.Value())

	warned := logs.FilterMessage("client_amount_ignored").All()
	require.Len(t, warned, 1)
	assert.Equal(t, "0.01", warned[0].ContextMap()["client_amount"])
	assert.Equal(t, "19.99", warned[0].ContextMap()["charged_amount"])

	done := logs.FilterMessage("use_case_done").All()
	require.Len(t, done, 1)
	assert.Equal(t, "success", done[0].ContextMap()["outcome"])
	assert.Equal(t, useCaseOrderCreate, done[0].ContextMap()["use_case"])
}

func TestCreateOrder_MatchingClientAmountIsQuiet(t *testing.T) {
	logs, log := newObservedTel()
	uc := NewCreateOrderUseCase(&fakeTokens{token: "t"}, &fakeGateway{orderID: "X"}, newPricer(), "EUR", infraobs.New(infraobs.Options{Logger: log}))

	_, err := uc.Execute(context.Background(), CreateOrderInput{ClientAmount: "19.99"})
	require.NoError(t, err)
	assert.Zero(t, logs.FilterMessage("client_amount_ignored").Len())
}

func TestCreateOrder_ValidationErrors(t *testing.T) {
	cases := map[string]CreateOrderInput{
		"currency mismatch":  {Currency: "USD"},
		"currency malformed": {Currency: "euro"},
		"unknown product":    {Items: []catalog.Line{{ProductID: "nope", Quantity: 1}}},
		"zero quantity":      {Items: []catalog.Line{{ProductID: "tee-gt-r", Quantity: 0}}},
		"missing product":    {Items: []catalog.Line{{Quantity: 1}}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			tokens := &fakeTokens{token: "t"}
			gw := &fakeGateway{orderID: "X"}
			uc := NewCreateOrderUseCase(tokens, gw, newPricer(), "EUR", nil)

			_, err := uc.Execute(context.Background(), in)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Zero(t, tokens.calls)
			assert.Empty(t, gw.drafts)
		})
	}
}

func TestCreateOrder_TokenFailureShortCircuits(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusInternalServerError} {
		tokens := &fakeTokens{err: &payment.UpstreamError{Op: payment.OpToken, StatusCode: status, Body: []byte(`{"error":"invalid_client"}`)}}
		gw := &fakeGateway{orderID: "X"}
		uc := NewCreateOrderUseCase(tokens, gw, newPricer(), "EUR", nil)

		_, err := uc.Execute(context.Background(), CreateOrderInput{})
		assert.ErrorIs(t, err, payment.ErrUpstreamAuth)
		assert.Empty(t, gw.drafts, "no order call after a token failure")
	}
}

func TestCreateOrder_UpstreamRejection(t *testing.T) {
	upstream := &payment.UpstreamError{Op: payment.OpCreate, StatusCode: http.StatusUnprocessableEntity, Body: []byte(`{"name":"UNPROCESSABLE_ENTITY"}`)}
	uc := NewCreateOrderUseCase(&fakeTokens{token: "t"}, &fakeGateway{err: upstream}, newPricer(), "EUR", nil)

	_, err := uc.Execute(context.Background(), CreateOrderInput{})
	var ue *payment.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Same(t, upstream, ue)
}

func TestCreateOrder_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tokens := &fakeTokens{token: "t"}
	uc := NewCreateOrderUseCase(tokens, &fakeGateway{orderID: "X"}, newPricer(), "EUR", nil)

	_, err := uc.Execute(ctx, CreateOrderInput{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, tokens.calls)
}

func TestCaptureOrder_CompletedPassesPayloadThrough(t *testing.T) {
	payload := []byte(`{"id":"5O190127TN364715T","status":"COMPLETED","payer":{"name":{"given_name":"John"}}}`)
	gw := &fakeGateway{capture: &payment.Capture{OrderID: "5O190127TN364715T", Status: payment.StatusCompleted, Payload: payload}}
	pub := &fakePublisher{}
	uc := NewCaptureOrderUseCase(&fakeTokens{token: "t"}, gw, pub, nil)

	res, err := uc.Execute(context.Background(), CaptureOrderInput{OrderID: "5O190127TN364715T"})
	require.NoError(t, err)
	assert.Equal(t, payload, res.Payload)
	assert.Equal(t, payment.StatusCompleted, res.Status)
	assert.Equal(t, []string{"5O190127TN364715T"}, gw.captured)

	require.Len(t, pub.events, 1)
	evt, ok := pub.events[0].(order.OrderCapturedEvent)
	require.True(t, ok)
	assert.Equal(t, "5O190127TN364715T", evt.OrderID)
	assert.Equal(t, payment.StatusCompleted, evt.CaptureStatus)
}

func TestCaptureOrder_PendingDoesNotPublish(t *testing.T) {
	gw := &fakeGateway{capture: &payment.Capture{OrderID: "X", Status: "PENDING", Payload: []byte(`{"status":"PENDING"}`)}}
	pub := &fakePublisher{}
	uc := NewCaptureOrderUseCase(&fakeTokens{token: "t"}, gw, pub, nil)

	res, err := uc.Execute(context.Background(), CaptureOrderInput{OrderID: "X"})
	require.NoError(t, err)
	assert.Equal(t, "PENDING", res.Status)
	assert.Empty(t, pub.events)
}

func TestCaptureOrder_PublishFailureDoesNotFail(t *testing.T) {
	logs, log := newObservedTel()
	gw := &fakeGateway{capture: &payment.Capture{OrderID: "X", Status: payment.StatusCompleted, Payload: []byte(`{}`)}}
	pub := &fakePublisher{err: errors.New("broker down")}
	uc := NewCaptureOrderUseCase(&fakeTokens{token: "t"}, gw, pub, infraobs.New(infraobs.Options{Logger: log}))

	_, err := uc.Execute(context.Background(), CaptureOrderInput{OrderID: "X"})
	require.NoError(t, err)

	done := logs.FilterMessage("use_case_done").All()
	require.Len(t, done, 1)
	assert.Equal(t, "EVENT_PUBLISH_FAILED", done[0].ContextMap()["status"])
	assert.Equal(t, "broker down", done[0].ContextMap()["event_publish_error"])
}

func TestCaptureOrder_RequiresOrderID(t *testing.T) {
	tokens := &fakeTokens{token: "t"}
	uc := NewCaptureOrderUseCase(tokens, &fakeGateway{}, nil, nil)

	_, err := uc.Execute(context.Background(), CaptureOrderInput{OrderID: "  "})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, tokens.calls)
}

func TestCaptureOrder_TokenFailureShortCircuits(t *testing.T) {
	tokens := &fakeTokens{err: &payment.UpstreamError{Op: payment.OpToken, StatusCode: http.StatusUnauthorized}}
	gw := &fakeGateway{}
	uc := NewCaptureOrderUseCase(tokens, gw, nil, nil)

	_, err := uc.Execute(context.Background(), CaptureOrderInput{OrderID: "X"})
	assert.ErrorIs(t, err, payment.ErrUpstreamAuth)
	assert.Empty(t, gw.captured)
}

func TestCaptureOrder_UpstreamRejection(t *testing.T) {
	upstream := &payment.UpstreamError{Op: payment.OpCapture, StatusCode: http.StatusNotFound, Body: []byte(`{"name":"RESOURCE_NOT_FOUND"}`)}
	uc := NewCaptureOrderUseCase(&fakeTokens{token: "t"}, &fakeGateway{err: upstream}, nil, nil)

	_, err := uc.Execute(context.Background(), CaptureOrderInput{OrderID: "X"})
	assert.ErrorIs(t, err, payment.ErrUpstreamRejected)
}

func TestCatalogPricer(t *testing.T) {
	p := newPricer()

	total, err := p.Price(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("19.99")))

	total, err = p.Price(context.Background(), []catalog.Line{{ProductID: "hoodie-supra", Quantity: 3}})
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("147")))

	_, err = p.Price(context.Background(), []catalog.Line{{ProductID: "ghost", Quantity: 1}})
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestCreateOrder_RecordsFailedSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tel := infraobs.New(infraobs.Options{Tracer: oteltrace.FromProvider(tp, "test")})
	tokens := &fakeTokens{err: &payment.UpstreamError{Op: payment.OpToken, StatusCode: http.StatusUnauthorized}}
	uc := NewCreateOrderUseCase(tokens, &fakeGateway{}, newPricer(), "EUR", tel)

	_, err := uc.Execute(context.Background(), CreateOrderInput{})
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "UC.CreateOrder", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "TOKEN_FAILED", spans[0].Status().Description)
}
