package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"toolcart/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, baseURL string, production bool) *Client {
	t.Helper()
	client, err := New(Config{
		KeyID:      "rzp_test_abc123",
		KeySecret:  "key-secret-for-tests-only",
		BaseURL:    baseURL,
		Timeout:    50 * time.Millisecond,
		MinUnits:   100,
		MaxUnits:   1_500_000_000,
		Production: production,
	}, zap.NewNop(), nil)
	require.NoError(t, err)
	return client
}

// slowHandler never answers within the client timeout.
func slowHandler(hits *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{KeyID: "key_abc", KeySecret: "s", BaseURL: "https://api.example.com"}, zap.NewNop(), nil)
	assert.Error(t, err)

	_, err = New(Config{KeyID: "rzp_test_abc", KeySecret: "", BaseURL: "https://api.example.com"}, zap.NewNop(), nil)
	assert.Error(t, err)

	_, err = New(Config{KeyID: "rzp_test_abc", KeySecret: "s", BaseURL: "not a url"}, zap.NewNop(), nil)
	assert.Error(t, err)
}

func TestCreateOrder_AmountBounds(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, false)

	tests := []struct {
		name   string
		amount int64
		reason string
	}{
		{name: "below minimum", amount: 50, reason: apperror.ReasonAmountTooSmall},
		{name: "above maximum", amount: 1_500_000_001, reason: apperror.ReasonAmountTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent, err := client.CreateOrder(context.Background(), tt.amount, "INR", "r1")

			assert.Nil(t, intent)
			assert.ErrorIs(t, err, &apperror.Error{Kind: apperror.KindValidation, Reason: tt.reason})
		})
	}
	assert.Equal(t, int32(0), hits.Load())
}

func TestCreateOrder_Success(t *testing.T) {
	var got orderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_abc123", user)
		assert.Equal(t, "key-secret-for-tests-only", pass)
		assert.Equal(t, "/orders", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"order_abc","amount":100,"currency":"INR","receipt":"r1","status":"created","amount_paid":0}`))
	}))
	defer srv.Close()

	intent, err := newTestClient(t, srv.URL, true).CreateOrder(context.Background(), 100, "INR", "r1")

	require.NoError(t, err)
	assert.Equal(t, "order_abc", intent.GatewayOrderID)
	assert.Equal(t, int64(100), intent.Amount)
	assert.Equal(t, "INR", intent.Currency)
	assert.Equal(t, "r1", intent.Receipt)
	assert.False(t, intent.Stub)

	require.NotNil(t, got.PaymentCapture)
	assert.Equal(t, 1, *got.PaymentCapture)
	assert.Equal(t, "r1", got.Receipt)
}

func TestCreateOrder_TimeoutsFallBackToStubOutsideProduction(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(slowHandler(&hits))
	defer srv.Close()

	intent, err := newTestClient(t, srv.URL, false).CreateOrder(context.Background(), 100, "INR", "r1")

	require.NoError(t, err)
	assert.True(t, intent.Stub)
	assert.True(t, strings.HasPrefix(intent.GatewayOrderID, "order_stub_"))
	assert.Equal(t, StatusCreated, intent.Status)
	assert.Equal(t, int64(100), intent.Amount)
	assert.Equal(t, int64(0), intent.AmountPaid)
	assert.Equal(t, "INR", intent.Currency)
	assert.Equal(t, "r1", intent.Receipt)
	assert.Equal(t, int32(2), hits.Load())
}

func TestCreateOrder_TimeoutsSurfaceInProduction(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(slowHandler(&hits))
	defer srv.Close()

	intent, err := newTestClient(t, srv.URL, true).CreateOrder(context.Background(), 100, "INR", "r1")

	assert.Nil(t, intent)
	assert.ErrorIs(t, err, apperror.ErrGatewayTimeout)
	assert.Equal(t, int32(2), hits.Load())
}

func TestCreateOrder_RetryUsesSimplifiedPayload(t *testing.T) {
	var hits atomic.Int32
	var retry map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&retry))
		w.Write([]byte(`{"id":"order_retry","amount":2500,"currency":"USD","status":"created"}`))
	}))
	defer srv.Close()

	intent, err := newTestClient(t, srv.URL, true).CreateOrder(context.Background(), 2500, "USD", "r1")

	require.NoError(t, err)
	assert.Equal(t, "order_retry", intent.GatewayOrderID)
	assert.Equal(t, "USD", intent.Currency)
	assert.Equal(t, int32(2), hits.Load())

	assert.NotContains(t, retry, "payment_capture")
	assert.Equal(t, "USD", retry["currency"])
	assert.Equal(t, float64(2500), retry["amount"])
	receipt, _ := retry["receipt"].(string)
	assert.True(t, strings.HasPrefix(receipt, "retry_"))
	assert.Equal(t, receipt, intent.Receipt)
}

func TestCreateOrder_BadRequestIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"currency is not supported"}}`))
	}))
	defer srv.Close()

	intent, err := newTestClient(t, srv.URL, false).CreateOrder(context.Background(), 100, "XYZ", "r1")

	assert.Nil(t, intent)
	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.KindGateway, appErr.Kind)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	assert.Contains(t, appErr.Error(), "currency is not supported")
	assert.Equal(t, int32(1), hits.Load())
}

func TestCreateOrder_CallerCancellationDoesNotAbortCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"order_abc","amount":100,"currency":"INR","receipt":"r1","status":"created"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	intent, err := newTestClient(t, srv.URL, true).CreateOrder(ctx, 100, "INR", "r1")

	require.NoError(t, err)
	assert.Equal(t, "order_abc", intent.GatewayOrderID)
}

func TestFetchPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payments/pay_123" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The id provided does not exist"}}`))
			return
		}
		w.Write([]byte(`{"id":"pay_123","order_id":"order_abc","amount":100,"currency":"INR","status":"captured","captured":true}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, true)

	payment, err := client.FetchPayment(context.Background(), "pay_123")
	require.NoError(t, err)
	assert.Equal(t, "order_abc", payment.OrderID)
	assert.True(t, payment.Captured)

	_, err = client.FetchPayment(context.Background(), "pay_missing")
	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusNotFound, appErr.StatusCode)

	_, err = client.FetchPayment(context.Background(), " ")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
