// Package workerpresentation adapts event bus deliveries to use cases.
package workerpresentation

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/application/fulfillment"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

const fulfillmentWorker = "fulfillment_worker"

type markPending = application.UseCase[fulfillment.MarkPendingInput, *fulfillment.MarkPendingResult]

// FulfillmentWorker feeds order.captured events to the fulfillment use case.
type FulfillmentWorker struct {
	subscriber domoutbox.Subscriber
	useCase    markPending
	tracer     observability.Tracer
	log        observability.Logger
}

func NewFulfillmentWorker(subscriber domoutbox.Subscriber, useCase markPending, tel observability.Observability) *FulfillmentWorker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &FulfillmentWorker{
		subscriber: subscriber,
		useCase:    useCase,
		tracer:     tel.Tracer(),
		log:        tel.Logger().With(observability.F("component", fulfillmentWorker)),
	}
}

// Start registers the handler. Events published before Start are not replayed.
func (w *FulfillmentWorker) Start() {
	if w.subscriber == nil || w.useCase == nil {
		return
	}
	w.subscriber.Subscribe(domorder.OrderCapturedEvent{}.EventName(), w.handleOrderCaptured)
}

func (w *FulfillmentWorker) handleOrderCaptured(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.OrderCapturedEvent)
	if !ok {
		return nil
	}

	ctx, span := w.tracer.Start(ctx, "Worker."+e.EventName(),
		attribute.String("event.name", e.EventName()),
		attribute.String("order.id", evt.OrderID),
	)
	defer span.End()

	ctx = WithEventContext(ctx, w.log, map[string]string{
		"event_id": evt.ID,
		"event":    e.EventName(),
	})

	_, err := w.useCase.Execute(ctx, fulfillment.MarkPendingInput{
		EventID:       evt.ID,
		OrderID:       evt.OrderID,
		CaptureStatus: evt.CaptureStatus,
	})
	return err
}
