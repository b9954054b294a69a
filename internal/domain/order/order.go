package order

import (
	"errors"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/money"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
)

var (
	ErrMissingID              = errors.New("order: id is required")
	ErrMissingAmount          = errors.New("order: amount is required")
	ErrInvalidStateTransition = errors.New("order: invalid state transition")
)

type Status string

const (
	StatusCreated  Status = "created"
	StatusCaptured Status = "captured"
)

// Intent is fixed: funds are captured right after buyer approval.
const IntentCapture = "CAPTURE"

// Application context values sent with every order.
const (
	ShippingNoShipping = "NO_SHIPPING"
	UserActionPayNow   = "PAY_NOW"
)

// Draft is the order to be created upstream: one purchase unit with the
// server-computed amount.
type Draft struct {
	Intent             string
	Amount             money.Amount
	ShippingPreference string
	UserAction         string
}

func NewDraft(amount money.Amount) (Draft, error) {
	if amount.IsZero() {
		return Draft{}, ErrMissingAmount
	}
	return Draft{
		Intent:             IntentCapture,
		Amount:             amount,
		ShippingPreference: ShippingNoShipping,
		UserAction:         UserActionPayNow,
	}, nil
}

// Order tracks a processor order through created → captured:<status>. The
// processor owns the terminal status; this value only mirrors it for the
// duration of a request.
type Order struct {
	ID            string
	Status        Status
	CaptureStatus string
	UpdatedAt     time.Time

	state orderState
}

// Created returns an order the processor has assigned id to.
func Created(id string) (*Order, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	return &Order{
		ID:        id,
		Status:    StatusCreated,
		UpdatedAt: time.Now().UTC(),
		state:     createdState{},
	}, nil
}

// Captured records the processor's capture outcome. It fails when the order
// was already captured.
func (o *Order) Captured(captureStatus string) error {
	next, err := o.currentState().onCaptured(o, captureStatus)
	if err != nil {
		return err
	}
	o.state = next
	o.Status = next.status()
	o.touch()
	return nil
}

// Completed reports whether the capture finished with funds collected.
func (o *Order) Completed() bool {
	return o.Status == StatusCaptured && o.CaptureStatus == payment.StatusCompleted
}

// Label renders the lifecycle position, e.g. "created" or "captured:COMPLETED".
func (o *Order) Label() string {
	if o.Status == StatusCaptured {
		return string(o.Status) + ":" + o.CaptureStatus
	}
	return string(o.Status)
}

func (o *Order) currentState() orderState {
	if o.state == nil {
		return stateFor(o.Status)
	}
	return o.state
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
