package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"comics-commerce/internal/domain"
	"comics-commerce/internal/domain/ports/adapter"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Webhook-Signature"

type webhookBody struct {
	Type   string     `json:"type"`
	Event  string     `json:"event"`
	Object apiPayment `json:"object"`
}

// ParseNotification decodes a webhook body. Malformed JSON, an unknown event
// or a missing payment id is domain.ErrInvalidArgument.
func ParseNotification(body []byte) (adapter.PaymentNotification, error) {
	var wb webhookBody
	if err := json.Unmarshal(body, &wb); err != nil {
		return adapter.PaymentNotification{}, fmt.Errorf("decode webhook: %w", domain.ErrInvalidArgument)
	}
	event := adapter.PaymentEvent(wb.Event)
	if !event.Valid() {
		return adapter.PaymentNotification{}, fmt.Errorf("webhook event %q: %w", wb.Event, domain.ErrInvalidArgument)
	}
	if wb.Object.ID == "" {
		return adapter.PaymentNotification{}, fmt.Errorf("webhook without payment id: %w", domain.ErrInvalidArgument)
	}
	gp, err := toGatewayPayment(wb.Object)
	if err != nil {
		return adapter.PaymentNotification{}, fmt.Errorf("webhook payment: %w", domain.ErrInvalidArgument)
	}
	return adapter.PaymentNotification{Event: event, Payment: *gp}, nil
}

func Sign(secret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature compares in constant time. An empty secret disables the check.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" {
		return true
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(Sign(secret, body))
	return hmac.Equal(got, want)
}
