package payment

// Capture is the processor's answer to a capture call. Payload is the
// response body exactly as received.
type Capture struct {
	OrderID string
	Status  string
	Payload []byte
}
