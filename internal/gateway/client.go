package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"toolcart/pkg/apperror"
	"toolcart/pkg/metrics"
	"toolcart/pkg/utils"

	"go.uber.org/zap"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultMinUnits = 100
	defaultMaxUnits = 1_500_000_000

	StatusCreated = "created"
)

// Config is the validated subset of application settings the client needs.
type Config struct {
	KeyID      string
	KeySecret  string
	BaseURL    string
	Timeout    time.Duration
	MinUnits   int64
	MaxUnits   int64
	Production bool
}

func ConfigFrom(cfg utils.PaymentConfig, production bool) Config {
	return Config{
		KeyID:      cfg.KeyID,
		KeySecret:  cfg.KeySecret,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		MinUnits:   cfg.MinUnits,
		MaxUnits:   cfg.MaxUnits,
		Production: production,
	}
}

// PaymentIntent is the normalized remote order, whichever path produced it.
type PaymentIntent struct {
	GatewayOrderID string `json:"id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	Status         string `json:"status"`
	AmountPaid     int64  `json:"amount_paid"`
	Stub           bool   `json:"-"`
}

// Payment is the gateway payment entity as returned by GET /payments/{id}.
type Payment struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	Method           string `json:"method"`
	Captured         bool   `json:"captured"`
	Email            string `json:"email"`
	Contact          string `json:"contact"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
	CreatedAt        int64  `json:"created_at"`
}

type orderRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	PaymentCapture *int   `json:"payment_capture,omitempty"`
}

type errorEnvelope struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// Client talks to the payment gateway REST API. Build it once with New and share it.
type Client struct {
	cfg        Config
	baseURL    string
	http       *http.Client
	log        *zap.Logger
	metrics    *metrics.Metrics
	newReceipt func() string
	newStubID  func() string
}

// New validates cfg and returns a ready client, or the configuration error
// that should stop startup.
func New(cfg Config, log *zap.Logger, m *metrics.Metrics) (*Client, error) {
	if !strings.HasPrefix(cfg.KeyID, "rzp_") {
		return nil, errors.New("payment gateway key id must start with rzp_")
	}
	if cfg.KeySecret == "" {
		return nil, errors.New("payment gateway key secret is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("payment gateway base url %q is invalid", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MinUnits <= 0 {
		cfg.MinUnits = defaultMinUnits
	}
	if cfg.MaxUnits <= 0 {
		cfg.MaxUnits = defaultMaxUnits
	}

	return &Client{
		cfg:        cfg,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		http:       &http.Client{},
		log:        log.With(zap.String("component", "payment_gateway")),
		metrics:    m,
		newReceipt: func() string { return "retry_" + utils.NewULID() },
		newStubID:  func() string { return "order_stub_" + utils.NewULID() },
	}, nil
}

// CreateOrder creates a remote payment intent. Steps: validate amount, call with
// timeout, retry once with a simplified payload, then fall back to a stub
// outside production.
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*PaymentIntent, error) {
	// 1. Validate amount before any network call
	if err := c.validateAmount(amount); err != nil {
		return nil, err
	}

	// 2. Initial attempt with the full payload
	capture := 1
	intent, err := c.createWithTimeout(ctx, "initial", orderRequest{
		Amount:         amount,
		Currency:       currency,
		Receipt:        receipt,
		PaymentCapture: &capture,
	})
	if err == nil {
		return intent, nil
	}
	if !isRetryable(err) {
		return nil, err
	}

	// 3. One retry with minimal fields and a fresh receipt
	intent, retryErr := c.retrySimplified(ctx, amount, currency)
	if retryErr == nil {
		return intent, nil
	}

	c.log.Warn("Payment gateway retry failed",
		zap.NamedError("initial_error", err),
		zap.NamedError("retry_error", retryErr),
		zap.Bool("production", c.cfg.Production),
	)

	// 4. Environment-gated fallback, production surfaces the original error
	if c.cfg.Production {
		return nil, err
	}
	return c.fallbackIntent(amount, currency, receipt), nil
}

func (c *Client) validateAmount(amount int64) error {
	if amount < c.cfg.MinUnits {
		return apperror.Validation(apperror.ReasonAmountTooSmall,
			fmt.Sprintf("amount too small, minimum is %d minor units", c.cfg.MinUnits))
	}
	if amount > c.cfg.MaxUnits {
		return apperror.Validation(apperror.ReasonAmountTooLarge,
			fmt.Sprintf("amount too large, maximum is %d minor units", c.cfg.MaxUnits))
	}
	return nil
}

func (c *Client) retrySimplified(ctx context.Context, amount int64, currency string) (*PaymentIntent, error) {
	return c.createWithTimeout(ctx, "retry", orderRequest{
		Amount:   amount,
		Currency: currency,
		Receipt:  c.newReceipt(),
	})
}

// fallbackIntent builds a clearly flagged local intent so checkout stays
// exercisable without a reachable gateway.
func (c *Client) fallbackIntent(amount int64, currency, receipt string) *PaymentIntent {
	intent := &PaymentIntent{
		GatewayOrderID: c.newStubID(),
		Amount:         amount,
		Currency:       currency,
		Receipt:        receipt,
		Status:         StatusCreated,
		AmountPaid:     0,
		Stub:           true,
	}
	c.metrics.GatewayCall("fallback", "stub")
	c.log.Warn("Using stub payment intent",
		zap.String("gateway_order_id", intent.GatewayOrderID),
		zap.Int64("amount", amount),
	)
	return intent
}

func (c *Client) createWithTimeout(ctx context.Context, stage string, payload orderRequest) (*PaymentIntent, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	var intent PaymentIntent
	if err := c.do(ctx, http.MethodPost, "/orders", body, &intent); err != nil {
		c.metrics.GatewayCall(stage, outcomeOf(err))
		c.log.Error("Payment gateway order creation failed",
			zap.Error(err),
			zap.String("stage", stage),
			zap.String("receipt", payload.Receipt),
		)
		return nil, err
	}
	c.metrics.GatewayCall(stage, "success")

	// Normalize missing fields from the request
	if intent.Currency == "" {
		intent.Currency = payload.Currency
	}
	if intent.Amount == 0 {
		intent.Amount = payload.Amount
	}
	if intent.Receipt == "" {
		intent.Receipt = payload.Receipt
	}

	return &intent, nil
}

// FetchPayment returns the gateway payment entity. It is bounded by the same
// timeout but never retried.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, apperror.New(apperror.KindValidation, "payment id is required")
	}

	var payment Payment
	if err := c.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil, &payment); err != nil {
		c.log.Error("Failed to fetch payment", zap.Error(err), zap.String("payment_id", paymentID))
		return nil, err
	}
	return &payment, nil
}

// do runs one request under its own deadline. The caller's cancellation is
// detached so only the timeout can end an in-flight call.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(callCtx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(callCtx, err) {
			return apperror.GatewayTimeout(err)
		}
		return apperror.Gateway(0, "payment gateway unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(callCtx, err) {
			return apperror.GatewayTimeout(err)
		}
		return apperror.Gateway(0, "read gateway response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		var envelope errorEnvelope
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Description != "" {
			msg = envelope.Error.Description
		}
		return apperror.Gateway(resp.StatusCode, msg, nil)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return apperror.Gateway(resp.StatusCode, "malformed gateway response", err)
	}
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isRetryable covers timeouts, transport failures, 429 and 5xx.
func isRetryable(err error) bool {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Kind {
	case apperror.KindGatewayTimeout:
		return true
	case apperror.KindGateway:
		return appErr.StatusCode == 0 ||
			appErr.StatusCode == http.StatusTooManyRequests ||
			appErr.StatusCode >= http.StatusInternalServerError
	}
	return false
}

func outcomeOf(err error) string {
	switch apperror.KindOf(err) {
	case apperror.KindGatewayTimeout:
		return "timeout"
	case apperror.KindGateway:
		return "error"
	}
	return "internal"
}
