package order

import (
	"time"

	"github.com/google/uuid"
)

// OrderCapturedEvent is emitted after the processor reports a completed
// capture. It is the hook for fulfillment (recording the sale, notifying the
// customer), which lives outside this service.
type OrderCapturedEvent struct {
	ID            string    `json:"event_id"`
	OrderID       string    `json:"order_id"`
	CaptureStatus string    `json:"capture_status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (OrderCapturedEvent) EventName() string { return "order.captured" }

func (e OrderCapturedEvent) EventKey() string { return e.OrderID }

func NewOrderCapturedEvent(o *Order) OrderCapturedEvent {
	return OrderCapturedEvent{
		ID:            uuid.NewString(),
		OrderID:       o.ID,
		CaptureStatus: o.CaptureStatus,
		OccurredAt:    time.Now().UTC(),
	}
}
