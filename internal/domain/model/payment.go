package model

import (
	"fmt"
	"time"

	"comics-commerce/internal/domain"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // created locally, awaiting gateway outcome
	PaymentStatusSucceeded PaymentStatus = "succeeded" // terminal; ledger credited exactly once
	PaymentStatusFailed    PaymentStatus = "failed"    // terminal; nothing credited
)

// ParsePaymentStatus rejects anything outside the closed set.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentStatusPending, PaymentStatusSucceeded, PaymentStatusFailed:
		return PaymentStatus(s), nil
	}
	return "", fmt.Errorf("payment status %q: %w", s, domain.ErrUnknownStatus)
}

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSucceeded || s == PaymentStatusFailed
}

type PaymentMethod string

const (
	PaymentMethodUnknown  PaymentMethod = "unknown"
	PaymentMethodBankCard PaymentMethod = "bank_card"
	PaymentMethodSBP      PaymentMethod = "sbp"
	PaymentMethodWallet   PaymentMethod = "wallet"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentMethodUnknown, PaymentMethodBankCard, PaymentMethodSBP, PaymentMethodWallet:
		return PaymentMethod(s), nil
	case "":
		return PaymentMethodUnknown, nil
	}
	return "", fmt.Errorf("payment method %q: %w", s, domain.ErrUnknownStatus)
}

// PaymentPurpose tags what a confirmed payment pays for.
type PaymentPurpose string

const PaymentPurposeTopUp PaymentPurpose = "topup"

func ParsePaymentPurpose(s string) (PaymentPurpose, error) {
	if PaymentPurpose(s) == PaymentPurposeTopUp {
		return PaymentPurposeTopUp, nil
	}
	return "", fmt.Errorf("payment purpose %q: %w", s, domain.ErrUnknownStatus)
}

// Payment is one attempt to move money from the gateway into the ledger.
type Payment struct {
	ID               string // UUID
	UserID           string // UUID
	Provider         string // e.g. "yookassa"
	Amount           int64  // minor units
	Currency         string
	Method           PaymentMethod
	Status           PaymentStatus
	Purpose          PaymentPurpose
	GatewayPaymentID *string // assigned by the gateway after creation
	ConfirmationURL  string
	IdempotencyKey   string // caller-supplied; also sent to the gateway
	Description      string
	Meta             map[string]string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	PaidAt           *time.Time
}

func NewTopUpPayment(id, userID string, amount int64, currency, idempotencyKey, provider string) (*Payment, error) {
	if id == "" || userID == "" || amount <= 0 || currency == "" || idempotencyKey == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Payment{
		ID:             id,
		UserID:         userID,
		Provider:       provider,
		Amount:         amount,
		Currency:       currency,
		Method:         PaymentMethodUnknown,
		Status:         PaymentStatusPending,
		Purpose:        PaymentPurposeTopUp,
		IdempotencyKey: idempotencyKey,
		Meta:           map[string]string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
