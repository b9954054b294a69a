// Package fulfillment reacts to captured orders. Shipping, receipts and sales
// records are handled outside this service; here a capture is only marked as
// awaiting fulfillment.
package fulfillment

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
)

const (
	fulfillmentService = "fulfillment-service"
	useCaseMarkPending = "fulfillment.mark_pending"
	spanPrefix         = "UC."

	StatusPending = "pending"
)

var (
	ErrMissingOrderID = errors.New("fulfillment: order id is required")
	ErrNotCompleted   = errors.New("fulfillment: capture is not completed")
)

type MarkPendingInput struct {
	EventID       string
	OrderID       string
	CaptureStatus string
}

type MarkPendingResult struct {
	OrderID string
	Status  string
}

// MarkPendingUseCase takes a completed capture and hands it to fulfillment.
type MarkPendingUseCase struct {
	tel observability.Observability

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

var _ application.UseCase[MarkPendingInput, *MarkPendingResult] = (*MarkPendingUseCase)(nil)

func NewMarkPendingUseCase(tel observability.Observability) *MarkPendingUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	return &MarkPendingUseCase{
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", fulfillmentService)),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

func (uc *MarkPendingUseCase) Execute(ctx context.Context, cmd MarkPendingInput) (_ *MarkPendingResult, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(observability.F("use_case", useCaseMarkPending))

	ctx, span := uc.tel.Tracer().Start(ctx, spanPrefix+"MarkPending",
		attribute.String("use_case", useCaseMarkPending),
		attribute.String("order.id", cmd.OrderID),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

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
			observability.L("use_case", useCaseMarkPending),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat, observability.L("use_case", useCaseMarkPending))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		fields = append(fields, observability.TraceFields(ctx)...)
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	if cmd.OrderID == "" {
		outcome, statusText = "error", "ORDER_ID_REQUIRED"
		return nil, ErrMissingOrderID
	}
	if cmd.CaptureStatus != payment.StatusCompleted {
		outcome, statusText = "error", "CAPTURE_NOT_COMPLETED"
		return nil, ErrNotCompleted
	}

	// TODO: persist the sale and send the receipt once an order store exists.
	logger.Info("fulfillment_pending",
		observability.F("order_id", cmd.OrderID),
		observability.F("capture_status", cmd.CaptureStatus),
		observability.F("source_event_id", cmd.EventID),
	)
	return &MarkPendingResult{OrderID: cmd.OrderID, Status: StatusPending}, nil
}
