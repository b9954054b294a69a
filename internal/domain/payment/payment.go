package payment

import (
	"errors"
	"fmt"
	"strings"
)

// Environment selects the PayPal REST API the credentials belong to.
type Environment string

const (
	Sandbox Environment = "sandbox"
	Live    Environment = "live"
)

const (
	sandboxBaseURL = "https://api-m.sandbox.paypal.com"
	liveBaseURL    = "https://api-m.paypal.com"
)

// ParseEnvironment maps "live" to Live; every other value is Sandbox.
func ParseEnvironment(v string) Environment {
	if strings.EqualFold(strings.TrimSpace(v), string(Live)) {
		return Live
	}
	return Sandbox
}

func (e Environment) BaseURL() string {
	if e == Live {
		return liveBaseURL
	}
	return sandboxBaseURL
}

// Credentials are the REST app client id and secret.
type Credentials struct {
	ClientID string
	Secret   string
}

// String never prints the secret.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{ClientID:%s}", c.ClientID)
}

// Upstream operations, used as the Op of an UpstreamError.
const (
	OpToken   = "token"
	OpCreate  = "create_order"
	OpCapture = "capture_order"
)

// Capture statuses reported by the processor.
const (
	StatusCompleted = "COMPLETED"
)

var (
	// ErrUpstreamAuth matches token endpoint rejections.
	ErrUpstreamAuth = errors.New("payment: upstream authentication failed")
	// ErrUpstreamRejected matches order endpoint rejections.
	ErrUpstreamRejected = errors.New("payment: upstream rejected request")
	// ErrUpstreamUnavailable matches transport failures: connection errors,
	// timeouts, undecodable success bodies.
	ErrUpstreamUnavailable = errors.New("payment: upstream unavailable")
)

// UpstreamError is a non-success HTTP response from the payment processor.
// StatusCode and Body are the upstream values, unmodified.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// Unwrap classifies the error: token failures are ErrUpstreamAuth, order
// endpoint failures are ErrUpstreamRejected.
func (e *UpstreamError) Unwrap() error {
	if e.Op == OpToken {
		return ErrUpstreamAuth
	}
	return ErrUpstreamRejected
}
