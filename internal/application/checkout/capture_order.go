package checkout

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
)

const (
	publishPeer     = "event_sink"
	publishEndpoint = "order.captured"
	publishTimeout  = 300 * time.Millisecond
)

// CaptureOrderUseCase captures an approved order and, once funds are
// collected, announces it on the event sink.
type CaptureOrderUseCase struct {
	tokens    TokenSource
	gateway   OrderGateway
	publisher domoutbox.Publisher
	tel       observability.Observability

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

var _ application.UseCase[CaptureOrderInput, *CaptureOrderResult] = (*CaptureOrderUseCase)(nil)

// NewCaptureOrderUseCase wires the use case. A nil publisher drops events.
func NewCaptureOrderUseCase(
	tokens TokenSource,
	gateway OrderGateway,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *CaptureOrderUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	if publisher == nil {
		publisher = domoutbox.NopPublisher()
	}
	m := tel.Metrics()
	return &CaptureOrderUseCase{
		tokens:       tokens,
		gateway:      gateway,
		publisher:    publisher,
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", checkoutService)),
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

type CaptureOrderInput struct {
	OrderID string
}

type CaptureOrderResult struct {
	OrderID string
	Status  string
	// Payload is the processor's response body, unmodified.
	Payload []byte
}

func (uc *CaptureOrderUseCase) Execute(ctx context.Context, cmd CaptureOrderInput) (_ *CaptureOrderResult, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(observability.F("use_case", useCaseOrderCapture))
	orderID := strings.TrimSpace(cmd.OrderID)

	ctx, span := uc.tel.Tracer().Start(ctx, spanPrefix+"CaptureOrder",
		attribute.String("use_case", useCaseOrderCapture),
		attribute.String("order.id", orderID),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	var captureStatus string
	var publishErr error

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
			observability.L("use_case", useCaseOrderCapture),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat, observability.L("use_case", useCaseOrderCapture))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
			observability.F("order_id", orderID),
		}
		fields = append(fields, observability.TraceFields(ctx)...)
		if captureStatus != "" {
			fields = append(fields, observability.F("capture_status", captureStatus))
		}
		if publishErr != nil {
			fields = append(fields, observability.F("event_publish_error", publishErr.Error()))
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	if orderID == "" {
		outcome, statusText = "error", "ORDER_ID_REQUIRED"
		return nil, newValidation("order id is required")
	}
	entity, err := order.Created(orderID)
	if err != nil {
		outcome, statusText = "error", "ORDER_ID_REQUIRED"
		return nil, wrapValidation(err)
	}

	token, err := uc.tokens.AccessToken(ctx)
	if err != nil {
		outcome, statusText = "error", "TOKEN_FAILED"
		return nil, err
	}

	capture, err := uc.gateway.CaptureOrder(ctx, token, orderID)
	if err != nil {
		outcome, statusText = "error", "UPSTREAM_CAPTURE_FAILED"
		return nil, err
	}
	captureStatus = capture.Status
	if err := entity.Captured(capture.Status); err != nil {
		outcome, statusText = "error", "STATE_TRANSITION_FAILED"
		return nil, err
	}
	span.SetAttributes(attribute.String("order.capture_status", capture.Status))
	span.AddEvent("order.captured", trace.WithAttributes(attribute.String("order.state", entity.Label())))

	if entity.Completed() {
		publishErr = uc.publish(ctx, entity)
		if publishErr != nil {
			statusText = "EVENT_PUBLISH_FAILED"
		}
	}

	return &CaptureOrderResult{
		OrderID: orderID,
		Status:  capture.Status,
		Payload: capture.Payload,
	}, nil
}

// publish is best effort: a failure is logged and counted but never fails
// the capture, which already happened upstream.
func (uc *CaptureOrderUseCase) publish(ctx context.Context, entity *order.Order) error {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	pubStart := time.Now()
	pubOutcome := "success"

	err := uc.publisher.Publish(pubCtx, order.NewOrderCapturedEvent(entity))
	if err != nil {
		pubOutcome = "error"
	} else if pubCtx.Err() != nil {
		pubOutcome = "canceled"
		err = pubCtx.Err()
	}

	uc.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", publishEndpoint),
		observability.L("outcome", pubOutcome),
	)
	uc.extHistogram.Observe(time.Since(pubStart).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", publishEndpoint),
	)
	return err
}
