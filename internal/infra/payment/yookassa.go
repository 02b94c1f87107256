package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"comics-commerce/internal/config"
	"comics-commerce/internal/domain"
	"comics-commerce/internal/domain/ports/adapter"
	"comics-commerce/internal/infra/metrics"

	"github.com/rs/zerolog"
)

var _ adapter.PaymentGateway = (*YooKassaGateway)(nil)

// YooKassaGateway talks to a YooKassa-compatible REST API.
type YooKassaGateway struct {
	baseURL   string
	shopID    string
	secretKey string
	retry     config.RetryConfig
	client    *http.Client
	log       *zerolog.Logger
}

func NewYooKassaGateway(cfg config.PaymentConfig, logger *zerolog.Logger) *YooKassaGateway {
	l := logger.With().Str("component", "YooKassaGateway").Logger()
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &YooKassaGateway{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		shopID:    cfg.ShopID,
		secretKey: cfg.SecretKey,
		retry:     cfg.Retry,
		client:    &http.Client{Timeout: timeout},
		log:       &l,
	}
}

func (g *YooKassaGateway) Name() string { return "yookassa" }

type apiAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type apiConfirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type apiMethod struct {
	Type string `json:"type"`
}

// apiPayment is the payment object shared by responses and webhook bodies.
type apiPayment struct {
	ID            string            `json:"id"`
	Status        string            `json:"status"`
	Paid          bool              `json:"paid"`
	Amount        apiAmount         `json:"amount"`
	Confirmation  *apiConfirmation  `json:"confirmation,omitempty"`
	PaymentMethod *apiMethod        `json:"payment_method,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type apiCreateRequest struct {
	Amount       apiAmount         `json:"amount"`
	Capture      bool              `json:"capture"`
	Confirmation apiConfirmation   `json:"confirmation"`
	Description  string            `json:"description,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type apiError struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// CreatePayment is not retried here: the caller owns the idempotency key and
// resumes creation with the same key.
func (g *YooKassaGateway) CreatePayment(ctx context.Context, req adapter.CreatePaymentRequest) (*adapter.GatewayPayment, error) {
	if req.IdempotencyKey == "" || req.Amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	body, err := json.Marshal(apiCreateRequest{
		Amount:       apiAmount{Value: fromMinor(req.Amount), Currency: req.Currency},
		Capture:      true,
		Confirmation: apiConfirmation{Type: "redirect", ReturnURL: req.ReturnURL},
		Description:  req.Description,
		Metadata:     req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal create payment: %w", err)
	}

	var out apiPayment
	if err := g.call(ctx, "create", http.MethodPost, "/payments", body, req.IdempotencyKey, &out); err != nil {
		return nil, err
	}
	return toGatewayPayment(out)
}

// GetPayment retries transient failures with exponential backoff.
func (g *YooKassaGateway) GetPayment(ctx context.Context, gatewayID string) (*adapter.GatewayPayment, error) {
	if gatewayID == "" {
		return nil, domain.ErrInvalidArgument
	}
	attempts := g.retry.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := g.retry.BaseDelay

	var lastErr error
	for i := 0; i < attempts; i++ {
		var out apiPayment
		err := g.call(ctx, "get", http.MethodGet, "/payments/"+gatewayID, nil, "", &out)
		if err == nil {
			return toGatewayPayment(out)
		}
		if !errors.Is(err, domain.ErrGatewayUnavailable) || i == attempts-1 {
			return nil, err
		}
		lastErr = err
		metrics.IncGatewayCall("get", "retry")
		g.log.Warn().Err(err).Str("gateway_payment_id", gatewayID).Int("attempt", i+1).Dur("backoff", delay).Msg("retrying gateway lookup")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
		if g.retry.MaxDelay > 0 && delay > g.retry.MaxDelay {
			delay = g.retry.MaxDelay
		}
	}
	return nil, lastErr
}

// call performs one request. Transport failures, 429 and 5xx map to
// ErrGatewayUnavailable; other non-2xx answers map to ErrGatewayRejected.
func (g *YooKassaGateway) call(ctx context.Context, op, method, path string, body []byte, idemKey string, out interface{}) error {
	start := time.Now()
	defer func() { metrics.ObserveGatewayCall(op, time.Since(start).Seconds()) }()

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.SetBasicAuth(g.shopID, g.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idemKey != "" {
		req.Header.Set("Idempotence-Key", idemKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		metrics.IncGatewayCall(op, "unavailable")
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.IncGatewayCall(op, "unavailable")
		return fmt.Errorf("%w: read body: %v", domain.ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		metrics.IncGatewayCall(op, "unavailable")
		return fmt.Errorf("%w: status %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode >= 300:
		metrics.IncGatewayCall(op, "rejected")
		var apiErr apiError
		_ = json.Unmarshal(raw, &apiErr)
		return fmt.Errorf("%w: status %d %s %s", domain.ErrGatewayRejected, resp.StatusCode, apiErr.Code, apiErr.Description)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		metrics.IncGatewayCall(op, "unavailable")
		return fmt.Errorf("%w: decode response: %v", domain.ErrGatewayUnavailable, err)
	}
	metrics.IncGatewayCall(op, "ok")
	return nil
}

func toGatewayPayment(p apiPayment) (*adapter.GatewayPayment, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("%w: payment without id", domain.ErrGatewayUnavailable)
	}
	amount, err := toMinor(p.Amount.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	gp := &adapter.GatewayPayment{
		ID:       p.ID,
		Status:   adapter.GatewayStatus(p.Status),
		Paid:     p.Paid,
		Amount:   amount,
		Currency: p.Amount.Currency,
		Metadata: p.Metadata,
	}
	if p.Confirmation != nil {
		gp.ConfirmationURL = p.Confirmation.ConfirmationURL
	}
	if p.PaymentMethod != nil {
		gp.Method = methodName(p.PaymentMethod.Type)
	}
	return gp, nil
}

func methodName(t string) string {
	switch t {
	case "bank_card", "sbp":
		return t
	case "yoo_money", "sberbank", "tinkoff_bank":
		return "wallet"
	case "":
		return ""
	}
	return "unknown"
}
