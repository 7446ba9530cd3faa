package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rahulpdmehta/hungerwood-core/pkg/config"
	"github.com/rahulpdmehta/hungerwood-core/pkg/enums"
	pkgerrors "github.com/rahulpdmehta/hungerwood-core/pkg/errors"
	"github.com/rahulpdmehta/hungerwood-core/pkg/logger"
)

type tokenKey struct{}

// WithToken stores the caller's bearer token in the context. The client
// forwards it opaquely; token contents are never inspected here.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFromContext(ctx context.Context) string {
	if token, ok := ctx.Value(tokenKey{}).(string); ok {
		return token
	}
	return ""
}

// Client talks to the remote ordering backend. All requests carry a bounded
// timeout; stream requests use a separate transport without one.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
	logg         *logger.Logger
}

// New builds a backend client from configuration.
func New(cfg config.BackendConfig, logg *logger.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("backend base url required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parsing backend base url: %w", err)
	}
	return &Client{
		baseURL:      base,
		httpClient:   &http.Client{Timeout: cfg.RequestTimeout},
		streamClient: &http.Client{},
		logg:         logg,
	}, nil
}

// Ping verifies the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "backend unreachable")
	}
	defer drainAndClose(resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("backend health returned %d", resp.StatusCode))
	}
	return nil
}

// ListMyOrders fetches the caller's orders.
func (c *Client) ListMyOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := c.do(ctx, http.MethodGet, "/orders/my", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrder fetches a single order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	var out Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder submits the draft; the backend responds with the created order.
func (c *Client) CreateOrder(ctx context.Context, draft OrderDraft) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodPost, "/orders", draft, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateOrderStatus submits an admin status transition. Legality is checked
// by the caller against the transition table; the backend is authoritative
// and may still reject.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status enums.OrderStatus) (*Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	body := map[string]any{"status": status}
	var out Order
	if err := c.do(ctx, http.MethodPatch, "/orders/"+url.PathEscape(orderID)+"/status", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePaymentOrder asks the backend for a gateway order.
func (c *Client) CreatePaymentOrder(ctx context.Context, req CreatePaymentOrderRequest) (*GatewayOrder, error) {
	var out GatewayOrder
	if err := c.do(ctx, http.MethodPost, "/payment/create-order", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyPayment submits the gateway proof. The backend creates the order only
// on verified success.
func (c *Client) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodPost, "/payment/verify-payment", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetWallet fetches the caller's wallet balance.
func (c *Client) GetWallet(ctx context.Context) (*Wallet, error) {
	var out Wallet
	if err := c.do(ctx, http.MethodGet, "/wallet", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetWalletSummary fetches balance plus referral info.
func (c *Client) GetWalletSummary(ctx context.Context) (*WalletSummary, error) {
	var out WalletSummary
	if err := c.do(ctx, http.MethodGet, "/wallet/summary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding request body")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := tokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s %s failed", method, path))
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return c.classify(resp, method, path)
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decoding %s %s response", method, path))
	}
	return nil
}

type wireError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// classify maps backend status codes onto the error taxonomy. Payment
// verification rejections are kept distinct from transport failures so
// callers can tell "payment failed" from "network flaked".
func (c *Client) classify(resp *http.Response, method, path string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := fmt.Sprintf("%s %s returned %d", method, path, resp.StatusCode)
	var decoded wireError
	if err := json.Unmarshal(raw, &decoded); err == nil {
		if decoded.Message != "" {
			message = decoded.Message
		} else if decoded.Error != "" {
			message = decoded.Error
		}
	}

	var code pkgerrors.Code
	switch resp.StatusCode {
	case http.StatusBadRequest:
		code = pkgerrors.CodeValidation
	case http.StatusUnauthorized:
		code = pkgerrors.CodeUnauthorized
	case http.StatusPaymentRequired:
		code = pkgerrors.CodePaymentVerification
	case http.StatusForbidden:
		code = pkgerrors.CodeForbidden
	case http.StatusNotFound:
		code = pkgerrors.CodeNotFound
	case http.StatusConflict:
		code = pkgerrors.CodeConflict
	case http.StatusUnprocessableEntity:
		code = pkgerrors.CodeStateConflict
	case http.StatusTooManyRequests:
		code = pkgerrors.CodeRateLimit
	default:
		code = pkgerrors.CodeDependency
	}
	return pkgerrors.New(code, message)
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
