//go:build !integration

package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"comics-commerce/internal/config"
	"comics-commerce/internal/domain"
	"comics-commerce/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, h http.HandlerFunc) *YooKassaGateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	logger := zerolog.Nop()
	return NewYooKassaGateway(config.PaymentConfig{
		BaseURL:        srv.URL + "/v3/",
		ShopID:         "shop",
		SecretKey:      "secret",
		RequestTimeout: 2 * time.Second,
		Retry:          config.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
	}, &logger)
}

func TestYooKassaGateway_CreatePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("should send the idempotence key and decimal amount", func(t *testing.T) {
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v3/payments", r.URL.Path)
			assert.Equal(t, "k-1", r.Header.Get("Idempotence-Key"))
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "shop", user)
			assert.Equal(t, "secret", pass)

			var body apiCreateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "500.00", body.Amount.Value)
			assert.Equal(t, "RUB", body.Amount.Currency)
			assert.True(t, body.Capture)
			assert.Equal(t, "redirect", body.Confirmation.Type)
			assert.Equal(t, "p-1", body.Metadata["payment_id"])

			_, _ = w.Write([]byte(`{"id":"gw-1","status":"pending","paid":false,
				"amount":{"value":"500.00","currency":"RUB"},
				"confirmation":{"type":"redirect","confirmation_url":"https://pay.example/c/gw-1"}}`))
		})

		gp, err := gw.CreatePayment(ctx, adapter.CreatePaymentRequest{
			Amount: 50000, Currency: "RUB", ReturnURL: "https://shop.example/return",
			IdempotencyKey: "k-1", Metadata: map[string]string{"payment_id": "p-1"},
		})
		require.NoError(t, err)
		assert.Equal(t, "gw-1", gp.ID)
		assert.Equal(t, adapter.GatewayStatusPending, gp.Status)
		assert.Equal(t, int64(50000), gp.Amount)
		assert.Equal(t, "https://pay.example/c/gw-1", gp.ConfirmationURL)
	})

	t.Run("should map a 4xx answer to rejected", func(t *testing.T) {
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"type":"error","code":"invalid_request","description":"bad amount"}`))
		})
		_, err := gw.CreatePayment(ctx, adapter.CreatePaymentRequest{Amount: 1, Currency: "RUB", IdempotencyKey: "k"})
		assert.ErrorIs(t, err, domain.ErrGatewayRejected)
	})

	t.Run("should map a 5xx answer to unavailable without retrying", func(t *testing.T) {
		var calls int32
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := gw.CreatePayment(ctx, adapter.CreatePaymentRequest{Amount: 1, Currency: "RUB", IdempotencyKey: "k"})
		assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("should refuse a request without a key", func(t *testing.T) {
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})
		_, err := gw.CreatePayment(ctx, adapter.CreatePaymentRequest{Amount: 1, Currency: "RUB"})
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestYooKassaGateway_GetPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("should retry transient failures", func(t *testing.T) {
		var calls int32
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			assert.Equal(t, "/v3/payments/gw-1", r.URL.Path)
			_, _ = w.Write([]byte(`{"id":"gw-1","status":"succeeded","paid":true,
				"amount":{"value":"500.00","currency":"RUB"},"payment_method":{"type":"bank_card"}}`))
		})

		gp, err := gw.GetPayment(ctx, "gw-1")
		require.NoError(t, err)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
		assert.Equal(t, adapter.GatewayStatusSucceeded, gp.Status)
		assert.Equal(t, "bank_card", gp.Method)
	})

	t.Run("should give up after the last attempt", func(t *testing.T) {
		var calls int32
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		_, err := gw.GetPayment(ctx, "gw-1")
		assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("should not retry a rejection", func(t *testing.T) {
		var calls int32
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusNotFound)
		})
		_, err := gw.GetPayment(ctx, "gw-404")
		assert.ErrorIs(t, err, domain.ErrGatewayRejected)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

func TestAmountConversion(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"500.00", 50000, true},
		{"12.5", 1250, true},
		{"7", 700, true},
		{"0.001", 0, false},
		{"-1.00", 0, false},
		{"abc", 0, false},
	}
	for _, c := range cases {
		t.Run("should convert "+c.in, func(t *testing.T) {
			got, err := toMinor(c.in)
			if !c.ok {
				assert.ErrorIs(t, err, domain.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
	assert.Equal(t, "500.00", fromMinor(50000))
	assert.Equal(t, "0.05", fromMinor(5))
}
