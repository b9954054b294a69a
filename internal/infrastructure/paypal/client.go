// Package paypal talks to the PayPal REST API: OAuth2 client-credentials
// token exchange and the v2 checkout orders endpoints.
package paypal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
)

const (
	peerPayPal       = "paypal"
	componentPayPal  = "paypal_client"
	spanPrefix       = "PayPal."
	defaultTimeout   = 15 * time.Second
	maxResponseBytes = 1 << 20

	endpointToken   = "oauth2.token"
	endpointCreate  = "orders.create"
	endpointCapture = "orders.capture"
)

// Options configures the API clients. BaseURL and Credentials are required.
type Options struct {
	BaseURL     string
	Credentials payment.Credentials
	// HTTPClient defaults to a client with the default transport.
	HTTPClient *http.Client
	// Timeout bounds each outbound call; zero means 15s.
	Timeout time.Duration
	Tel     observability.Observability
}

// api holds what TokenAcquirer and Client share: base URL, instrumented HTTP
// client, per-call timeout, telemetry.
type api struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	tracer  observability.Tracer
	log     observability.Logger

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func newAPI(opts Options) (*api, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("paypal: base url is required")
	}
	tel := opts.Tel
	if tel == nil {
		tel = observability.Nop()
	}
	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	// Copy so the caller's client keeps its transport.
	hc := *base
	hc.Transport = &propagatingTransport{base: base.Transport}

	return &api{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		http:         &hc,
		timeout:      timeout,
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("component", componentPayPal)),
		extCounter:   tel.Metrics().Counter(observability.MExternalRequests),
		extHistogram: tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}, nil
}

// call runs fn inside a client span bounded by the per-call timeout and
// records the outcome. fn returns the upstream status code (0 when no
// response arrived).
func (a *api) call(ctx context.Context, endpoint string, fn func(ctx context.Context) (int, error), attrs ...attribute.KeyValue) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	attrs = append(attrs,
		attribute.String("peer.service", peerPayPal),
		attribute.String("paypal.endpoint", endpoint),
	)
	ctx, span := a.tracer.Start(ctx, spanPrefix+endpoint, attrs...)
	start := time.Now()

	statusCode, err := fn(ctx)

	latency := time.Since(start).Seconds()
	outcome := outcomeOf(err)
	a.extCounter.Add(1,
		observability.L("peer", peerPayPal),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	a.extHistogram.Observe(latency,
		observability.L("peer", peerPayPal),
		observability.L("endpoint", endpoint),
	)

	if span != nil {
		if statusCode != 0 {
			span.SetAttributes(attribute.Int("http.status_code", statusCode))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		} else {
			span.SetStatus(codes.Ok, "OK")
		}
		span.End()
	}

	fields := []observability.Field{
		observability.F("peer", peerPayPal),
		observability.F("endpoint", endpoint),
		observability.F("outcome", outcome),
		observability.F("latency_seconds", latency),
	}
	if statusCode != 0 {
		fields = append(fields, observability.F("status_code", statusCode))
	}
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	logger := logctx.FromOr(ctx, a.log)
	if err != nil {
		logger.Warn("upstream_call_done", fields...)
	} else {
		logger.Info("upstream_call_done", fields...)
	}
	return err
}

func outcomeOf(err error) string {
	var ue *payment.UpstreamError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &ue):
		return "http_" + strconv.Itoa(ue.StatusCode)
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

// unavailable wraps a transport-level failure so callers can match
// payment.ErrUpstreamUnavailable while keeping the cause (e.g. a deadline).
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, payment.ErrUpstreamUnavailable, err)
}

// propagatingTransport injects the W3C trace context into every outbound request.
type propagatingTransport struct {
	base http.RoundTripper
}

func (t *propagatingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if trace.SpanContextFromContext(req.Context()).IsValid() {
		req = req.Clone(req.Context())
		otel.GetTextMapPropagator().Inject(req.Context(), propagation.HeaderCarrier(req.Header))
	}
	return base.RoundTrip(req)
}
