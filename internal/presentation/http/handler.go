// Package httppresentation exposes the checkout use cases over HTTP.
package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/application/checkout"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/money"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
)

const (
	componentHTTPHandler = "http_server"
	maxBodyBytes         = 1 << 20
)

// Routes for the order endpoints. The short aliases are what the storefront
// dev server calls.
var orderRoutePrefixes = []string{"/api/paypal/orders", "/api/orders"}

type (
	CreateOrder  = application.UseCase[checkout.CreateOrderInput, *checkout.CreateOrderResult]
	CaptureOrder = application.UseCase[checkout.CaptureOrderInput, *checkout.CaptureOrderResult]
)

// Deps are the handler's collaborators. Metrics, when set, is served at /metrics.
type Deps struct {
	CreateOrder    CreateOrder
	CaptureOrder   CaptureOrder
	Catalog        catalog.Repository
	StoreCurrency  string
	AllowedOrigins []string
	Metrics        http.Handler
	Tel            observability.Observability
}

type Handler struct {
	createOrder    CreateOrder
	captureOrder   CaptureOrder
	catalog        catalog.Repository
	storeCurrency  string
	allowedOrigins []string
	metrics        http.Handler

	tracer       observability.Tracer
	log          observability.Logger
	reqCounter   observability.Counter   // http_requests_total{method,route,status}
	durHistogram observability.Histogram // http_request_duration_seconds{method,route,status}
}

func NewHandler(d Deps) *Handler {
	tel := d.Tel
	if tel == nil {
		tel = observability.Nop()
	}
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Handler{
		createOrder:    d.CreateOrder,
		captureOrder:   d.CaptureOrder,
		catalog:        d.Catalog,
		storeCurrency:  d.StoreCurrency,
		allowedOrigins: origins,
		metrics:        d.Metrics,
		tracer:         tel.Tracer(),
		log:            tel.Logger().With(observability.F("component", componentHTTPHandler)),
		reqCounter:     tel.Metrics().Counter(observability.MHTTPRequests),
		durHistogram:   tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
}

// Router wires the routes behind CORS and the observability chain:
// Trace → request logger → HTTP metrics → access log → handler.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", headerRequestID, "traceparent", "tracestate"},
		ExposedHeaders: []string{headerRequestID},
		MaxAge:         300,
	}))
	r.Use(h.withTrace, h.withRequestLogger, h.withHTTPMetrics, h.withAccessLog)

	r.MethodNotAllowed(h.handleMethodNotAllowed)
	r.NotFound(h.handleNotFound)

	r.Get("/health", h.handleHealth)
	r.Get("/api/catalog", h.handleCatalog)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}
	for _, prefix := range orderRoutePrefixes {
		r.Post(prefix, h.handleCreateOrder)
		r.Post(prefix+"/{orderID}/capture", h.handleCaptureOrder)
	}
	return r
}

type cartItem struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type createOrderRequest struct {
	Currency string `json:"currency"`
	// Amount is accepted as a number or a string and only used to detect
	// drift between the storefront and the catalog.
	Amount json.RawMessage `json:"amount"`
	Items  []cartItem      `json:"items"`
}

type createOrderResponse struct {
	ID string `json:"id"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	req := decodeCreateOrder(r.Context(), w, r, h.log)

	lines := make([]catalog.Line, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, catalog.Line{ProductID: it.ID, Quantity: it.Quantity})
	}

	result, err := h.createOrder.Execute(r.Context(), checkout.CreateOrderInput{
		Currency:     req.Currency,
		ClientAmount: rawAmount(req.Amount),
		Items:        lines,
	})
	if err != nil {
		h.writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, createOrderResponse{ID: result.OrderID})
}

func (h *Handler) handleCaptureOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if unescaped, err := url.PathUnescape(orderID); err == nil {
		orderID = unescaped
	}

	result, err := h.captureOrder.Execute(r.Context(), checkout.CaptureOrderInput{OrderID: orderID})
	if err != nil {
		h.writeUseCaseError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Payload)
}

type productResponse struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Category string      `json:"category"`
	Price    json.Number `json:"price"`
	Currency string      `json:"currency"`
}

func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeJSON(w, http.StatusOK, []productResponse{})
		return
	}
	products, err := h.catalog.List(r.Context())
	if err != nil {
		h.writeUseCaseError(w, r, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, productResponse{
			ID:       p.ID,
			Title:    p.Title,
			Category: p.Category,
			Price:    json.Number(p.Price.StringFixed(money.Scale)),
			Currency: h.storeCurrency,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
}

func (h *Handler) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
}

// decodeCreateOrder never fails: an empty or unparsable body is treated as
// {} so the defaults apply.
func decodeCreateOrder(ctx context.Context, w http.ResponseWriter, r *http.Request, fallback observability.Logger) createOrderRequest {
	var req createOrderRequest
	if r.Body == nil {
		return req
	}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
	if err == nil || errors.Is(err, io.EOF) {
		return req
	}
	logctx.FromOr(ctx, fallback).Warn("request_body_malformed",
		observability.F("error", err.Error()),
	)
	return createOrderRequest{}
}

func rawAmount(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	return strings.Trim(s, `"`)
}

// writeUseCaseError maps use case failures to responses. Processor
// rejections of order calls are forwarded with their status and body.
func (h *Handler) writeUseCaseError(w http.ResponseWriter, r *http.Request, err error) {
	var ue *payment.UpstreamError
	switch {
	case errors.Is(err, checkout.ErrValidation):
		writeError(w, http.StatusBadRequest, err)
	case errors.As(err, &ue) && ue.Op == payment.OpToken:
		writeError(w, http.StatusInternalServerError, ue)
	case errors.As(err, &ue):
		writeUpstream(w, ue)
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": "upstream timeout"})
	case errors.Is(err, payment.ErrUpstreamUnavailable):
		writeError(w, http.StatusBadGateway, err)
	default:
		logctx.FromOr(r.Context(), h.log).Error("request_failed", observability.F("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err)
	}
}

// writeUpstream forwards an upstream status and body. A body that is not
// JSON is wrapped as {"error": body}.
func writeUpstream(w http.ResponseWriter, ue *payment.UpstreamError) {
	body := bytes.TrimSpace(ue.Body)
	if len(body) == 0 || !json.Valid(body) {
		msg := string(body)
		if msg == "" {
			msg = http.StatusText(ue.StatusCode)
		}
		writeJSON(w, ue.StatusCode, map[string]string{"error": msg})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ue.StatusCode)
	_, _ = w.Write(ue.Body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
