package model

import (
	"fmt"
	"time"

	"comics-commerce/internal/domain"
)

type TransactionType string

const (
	TransactionDeposit      TransactionType = "DEPOSIT"
	TransactionPurchase     TransactionType = "PURCHASE"
	TransactionWithdrawal   TransactionType = "WITHDRAWAL"
	TransactionSubscription TransactionType = "SUBSCRIPTION"
)

func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case TransactionDeposit, TransactionPurchase, TransactionWithdrawal, TransactionSubscription:
		return TransactionType(s), nil
	}
	return "", fmt.Errorf("transaction type %q: %w", s, domain.ErrUnknownStatus)
}

// IsDebit reports whether the type decreases the balance.
func (t TransactionType) IsDebit() bool { return t != TransactionDeposit }

type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "COMPLETED"
	TransactionFailed    TransactionStatus = "FAILED"
)

func ParseTransactionStatus(s string) (TransactionStatus, error) {
	switch TransactionStatus(s) {
	case TransactionCompleted, TransactionFailed:
		return TransactionStatus(s), nil
	}
	return "", fmt.Errorf("transaction status %q: %w", s, domain.ErrUnknownStatus)
}

// Transaction is an append-only ledger row. At most one row references a given payment.
type Transaction struct {
	ID             string
	UserID         string
	Type           TransactionType
	Amount         int64 // always positive; Type gives the direction
	Status         TransactionStatus
	BalanceAfter   int64
	PaymentID      *string
	OrderID        *string
	SubscriptionID *string
	Description    string
	CreatedAt      time.Time
}
