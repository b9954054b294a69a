package order

// orderState implements the state pattern for order lifecycle transitions.
type orderState interface {
	status() Status
	onCaptured(o *Order, captureStatus string) (orderState, error)
}

type createdState struct{}

func (createdState) status() Status { return StatusCreated }

func (createdState) onCaptured(o *Order, captureStatus string) (orderState, error) {
	o.CaptureStatus = captureStatus
	return capturedState{}, nil
}

type capturedState struct{}

func (capturedState) status() Status { return StatusCaptured }

func (capturedState) onCaptured(*Order, string) (orderState, error) {
	return nil, ErrInvalidStateTransition
}

func stateFor(s Status) orderState {
	if s == StatusCaptured {
		return capturedState{}
	}
	return createdState{}
}
