package adapter

import "context"

// GatewayStatus is the provider-side payment state.
type GatewayStatus string

const (
	GatewayStatusPending           GatewayStatus = "pending"
	GatewayStatusWaitingForCapture GatewayStatus = "waiting_for_capture"
	GatewayStatusSucceeded         GatewayStatus = "succeeded"
	GatewayStatusCanceled          GatewayStatus = "canceled"
)

// CreatePaymentRequest describes an outbound payment creation.
// IdempotencyKey is mandatory: the gateway returns the same payment for a
// repeated key instead of creating a second one.
type CreatePaymentRequest struct {
	Amount         int64 // minor units
	Currency       string
	Description    string
	ReturnURL      string
	IdempotencyKey string
	Metadata       map[string]string
}

// GatewayPayment is the provider's view of a payment.
type GatewayPayment struct {
	ID              string
	Status          GatewayStatus
	Paid            bool
	Amount          int64 // minor units
	Currency        string
	Method          string
	ConfirmationURL string
	Metadata        map[string]string
}

// PaymentGateway is the hex port for payment providers.
// Implementations wrap transport failures in domain.ErrGatewayUnavailable and
// definitive refusals in domain.ErrGatewayRejected.
type PaymentGateway interface {
	Name() string
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*GatewayPayment, error)
	// GetPayment is idempotent and may be retried.
	GetPayment(ctx context.Context, gatewayID string) (*GatewayPayment, error)
}

// PaymentEvent is the notification type pushed by the gateway.
type PaymentEvent string

const (
	EventPaymentSucceeded         PaymentEvent = "payment.succeeded"
	EventPaymentWaitingForCapture PaymentEvent = "payment.waiting_for_capture"
	EventPaymentCanceled          PaymentEvent = "payment.canceled"
)

func (e PaymentEvent) Valid() bool {
	switch e {
	case EventPaymentSucceeded, EventPaymentWaitingForCapture, EventPaymentCanceled:
		return true
	}
	return false
}

// PaymentNotification is a decoded webhook delivery. Deliveries are
// at-least-once and may arrive out of order.
type PaymentNotification struct {
	Event   PaymentEvent
	Payment GatewayPayment
}
