package gateway

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionJSON = `{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.example.com/cs_test_1"}`

func newTestGateway(t *testing.T, handler http.HandlerFunc) *StripeGateway {
	return newLoggingTestGateway(t, handler, logger.Discard())
}

func newLoggingTestGateway(t *testing.T, handler http.HandlerFunc, log *slog.Logger) *StripeGateway {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewStripeGateway(StripeConfig{
		APIKey:               "sk_test_123",
		BaseURL:              server.URL,
		Timeout:              2 * time.Second,
		MaxRetries:           3,
		RetryInitialInterval: time.Millisecond,
	}, log)
}

func testRequest() CheckoutRequest {
	return CheckoutRequest{
		ClientReferenceID: "CUST3_17",
		IdempotencyKey:    "CUST3_17",
		Currency:          "usd",
		SuccessURL:        "https://shop.example.com/success",
		CancelURL:         "https://shop.example.com/cancel",
		LineItems: []LineItem{
			{Name: "Widget", UnitAmount: 900, Quantity: 2},
		},
		Metadata: map[string]string{"order_id": "17", "customer_id": "3"},
	}
}

func TestCreateCheckoutSession_Success(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "CUST3_17", r.Header.Get("Idempotency-Key"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "CUST3_17", r.PostForm.Get("client_reference_id"))
		assert.Equal(t, "900", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "usd", r.PostForm.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "2", r.PostForm.Get("line_items[0][quantity]"))
		assert.Equal(t, "17", r.PostForm.Get("metadata[order_id]"))
		assert.Equal(t, "3", r.PostForm.Get("metadata[customer_id]"))
		assert.Equal(t, "17", r.PostForm.Get("payment_intent_data[metadata][order_id]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sessionJSON))
	})

	session, err := g.CreateCheckoutSession(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.ID)
	assert.Equal(t, "https://checkout.example.com/cs_test_1", session.URL)
}

func TestCreateCheckoutSession_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"type":"api_error","message":"try again"}}`))
			return
		}
		assert.Equal(t, "CUST3_17", r.Header.Get("Idempotency-Key"))
		_, _ = w.Write([]byte(sessionJSON))
	})

	session, err := g.CreateCheckoutSession(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCreateCheckoutSession_RetryLogCarriesBreakerState(t *testing.T) {
	var (
		calls atomic.Int32
		buf   bytes.Buffer
	)
	g := newLoggingTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":{"type":"api_error","message":"upstream"}}`))
			return
		}
		_, _ = w.Write([]byte(sessionJSON))
	}, logger.New(&buf, "warn"))

	_, err := g.CreateCheckoutSession(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"msg":"checkout session attempt failed, retrying"`)
	assert.Contains(t, buf.String(), `"breaker_state":"closed"`)
}

func TestCreateCheckoutSession_RetryBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"rate_limit","message":"slow down"}}`))
	})

	_, err := g.CreateCheckoutSession(context.Background(), testRequest())
	require.ErrorIs(t, err, domain.ErrGateway)
	assert.Equal(t, int32(4), calls.Load())
}

func TestCreateCheckoutSession_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad currency"}}`))
	})

	_, err := g.CreateCheckoutSession(context.Background(), testRequest())
	require.ErrorIs(t, err, domain.ErrGateway)
	assert.Contains(t, err.Error(), "bad currency")
	assert.Equal(t, int32(1), calls.Load())
}
