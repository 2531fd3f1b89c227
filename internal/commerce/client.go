// Package commerce is the HTTP client for the remote commerce API that owns products
// and orders.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"shopfront/internal/domain"
)

const maxReplyBytes = 1 << 20

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	AdminToken string
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
	// BreakerFailures is the number of consecutive failures that opens the breaker.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

type Client struct {
	base       string
	http       *http.Client
	adminToken string
	breaker    *gobreaker.CircuitBreaker[reply]
}

type reply struct {
	status int
	body   []byte
}

var errServerStatus = errors.New("server error status")

func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("commerce: bad base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("commerce: base url must be http(s), got %q", cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker[reply](gobreaker.Settings{
		Name:        "commerce-api",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
	})
	return &Client{
		base:       strings.TrimRight(u.String(), "/"),
		http:       hc,
		adminToken: cfg.AdminToken,
		breaker:    cb,
	}, nil
}

func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	if err := c.getJSON(ctx, "/products", false, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Product(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := c.getJSON(ctx, "/products/"+url.PathEscape(id), false, &p)
	return p, err
}

// Checkout submits an order. A declined payment is a normal reply with status "failed",
// even when the API pairs it with a 4xx status code.
func (c *Client) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	const path = "/orders/checkout"
	var out domain.CheckoutResponse
	r, err := c.do(ctx, http.MethodPost, path, req, false)
	if err != nil {
		return out, err
	}
	if r.status >= 300 {
		if json.Unmarshal(r.body, &out) == nil && out.Status == domain.StatusFailed {
			return out, nil
		}
		return domain.CheckoutResponse{}, apiError(http.MethodPost, path, r)
	}
	if err := json.Unmarshal(r.body, &out); err != nil {
		return out, fmt.Errorf("commerce: decode checkout reply: %w", err)
	}
	return out, nil
}

func (c *Client) Order(ctx context.Context, orderID string) (domain.Order, error) {
	var o domain.Order
	err := c.getJSON(ctx, "/orders/"+url.PathEscape(orderID), false, &o)
	return o, err
}

func (c *Client) AdminOrders(ctx context.Context) ([]domain.OrderSummary, error) {
	var out []domain.OrderSummary
	if err := c.getJSON(ctx, "/admin/orders", true, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AdminOrder(ctx context.Context, id string) (domain.OrderDetail, error) {
	var o domain.OrderDetail
	err := c.getJSON(ctx, "/admin/orders/"+url.PathEscape(id), true, &o)
	return o, err
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.OrderDetail, error) {
	path := "/admin/orders/" + url.PathEscape(id) + "/status"
	var o domain.OrderDetail
	r, err := c.do(ctx, http.MethodPatch, path, map[string]domain.OrderStatus{"status": status}, true)
	if err != nil {
		return o, err
	}
	if r.status >= 300 {
		return o, apiError(http.MethodPatch, path, r)
	}
	if len(bytes.TrimSpace(r.body)) == 0 {
		return o, nil
	}
	if err := json.Unmarshal(r.body, &o); err != nil {
		return o, fmt.Errorf("commerce: decode order: %w", err)
	}
	return o, nil
}

func (c *Client) getJSON(ctx context.Context, path string, admin bool, out any) error {
	r, err := c.do(ctx, http.MethodGet, path, nil, admin)
	if err != nil {
		return err
	}
	if r.status >= 300 {
		return apiError(http.MethodGet, path, r)
	}
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("commerce: decode %s: %w", path, err)
	}
	return nil
}

// do sends one request through the breaker. Transport failures and 5xx replies count
// against the breaker; 4xx replies do not.
func (c *Client) do(ctx context.Context, method, path string, in any, admin bool) (reply, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return reply{}, fmt.Errorf("commerce: encode %s: %w", path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return reply{}, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin && c.adminToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.adminToken)
	}

	r, err := c.breaker.Execute(func() (reply, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return reply{}, err
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
		if err != nil {
			return reply{}, err
		}
		r := reply{status: resp.StatusCode, body: b}
		if resp.StatusCode >= 500 {
			return r, errServerStatus
		}
		return r, nil
	})
	switch {
	case err == nil:
		return r, nil
	case errors.Is(err, errServerStatus):
		return r, apiError(method, path, r)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return reply{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return reply{}, fmt.Errorf("commerce %s %s: %w", method, path, err)
	}
}

func apiError(method, path string, r reply) *APIError {
	var msg struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(r.body, &msg)
	m := msg.Message
	if m == "" {
		m = msg.Error
	}
	return &APIError{Method: method, Path: path, Status: r.status, Message: m}
}
