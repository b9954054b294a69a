package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
)

const ordersPath = "/v2/checkout/orders"

// Client calls the v2 checkout orders API with a caller-supplied bearer token.
type Client struct {
	api *api
}

func NewClient(opts Options) (*Client, error) {
	a, err := newAPI(opts)
	if err != nil {
		return nil, err
	}
	return &Client{api: a}, nil
}

type amountDTO struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnitDTO struct {
	Amount amountDTO `json:"amount"`
}

type applicationContextDTO struct {
	ShippingPreference string `json:"shipping_preference"`
	UserAction         string `json:"user_action"`
}

type createOrderRequest struct {
	Intent             string                `json:"intent"`
	PurchaseUnits      []purchaseUnitDTO     `json:"purchase_units"`
	ApplicationContext applicationContextDTO `json:"application_context"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func newCreateOrderRequest(d order.Draft) createOrderRequest {
	return createOrderRequest{
		Intent: d.Intent,
		PurchaseUnits: []purchaseUnitDTO{{
			Amount: amountDTO{
				CurrencyCode: d.Amount.Currency(),
				Value:        d.Amount.Value(),
			},
		}},
		ApplicationContext: applicationContextDTO{
			ShippingPreference: d.ShippingPreference,
			UserAction:         d.UserAction,
		},
	}
}

// CreateOrder registers a capture-intent order and returns its id.
func (c *Client) CreateOrder(ctx context.Context, accessToken string, d order.Draft) (string, error) {
	body, err := json.Marshal(newCreateOrderRequest(d))
	if err != nil {
		return "", fmt.Errorf("%s: encode: %w", payment.OpCreate, err)
	}

	var id string
	err = c.api.call(ctx, endpointCreate, func(ctx context.Context) (int, error) {
		status, raw, err := c.post(ctx, payment.OpCreate, c.api.baseURL+ordersPath, accessToken, body)
		if err != nil {
			return status, err
		}
		var resp orderResponse
		if err := json.Unmarshal(raw, &resp); err != nil || resp.ID == "" {
			return status, unavailable(payment.OpCreate, fmt.Errorf("order id missing from response (status %d)", status))
		}
		id = resp.ID
		return status, nil
	}, attribute.String("order.currency", d.Amount.Currency()), attribute.String("order.amount", d.Amount.Value()))
	if err != nil {
		return "", err
	}
	return id, nil
}

// CaptureOrder captures a previously approved order.
func (c *Client) CaptureOrder(ctx context.Context, accessToken, orderID string) (*payment.Capture, error) {
	endpoint := c.api.baseURL + ordersPath + "/" + url.PathEscape(orderID) + "/capture"

	var capture *payment.Capture
	err := c.api.call(ctx, endpointCapture, func(ctx context.Context) (int, error) {
		status, raw, err := c.post(ctx, payment.OpCapture, endpoint, accessToken, nil)
		if err != nil {
			return status, err
		}
		var resp orderResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return status, unavailable(payment.OpCapture, fmt.Errorf("decode response: %w", err))
		}
		capture = &payment.Capture{OrderID: resp.ID, Status: resp.Status, Payload: raw}
		if capture.OrderID == "" {
			capture.OrderID = orderID
		}
		return status, nil
	}, attribute.String("order.id", orderID))
	if err != nil {
		return nil, err
	}
	return capture, nil
}

// post sends a JSON POST and returns the status and body. Non-2xx answers
// become a *payment.UpstreamError carrying the body as received.
func (c *Client) post(ctx context.Context, op, endpoint, accessToken string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.api.http.Do(req)
	if err != nil {
		return 0, nil, unavailable(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, unavailable(op, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, nil, &payment.UpstreamError{Op: op, StatusCode: resp.StatusCode, Body: raw}
	}
	return resp.StatusCode, raw, nil
}
