package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrUnknownStatus      = errors.New("unknown status value")

	ErrUserNotFound    = errors.New("user not found")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")

	// Ledger / checkout
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrOutOfStock        = errors.New("out of stock")
	ErrProductNotFound   = errors.New("product not found")
	ErrOrderNotFound     = errors.New("order not found")

	// Subscriptions
	ErrAlreadySubscribed = errors.New("user already has an active subscription")
	ErrPlanNotFound      = errors.New("subscription plan not found")

	// Payments
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrAlreadyProcessed   = errors.New("payment already processed")
	ErrAmountMismatch     = errors.New("payment amount mismatch")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment gateway rejected the request")
	ErrRateLimited        = errors.New("too many requests")
	ErrLockNotAcquired    = errors.New("lock not acquired")
)

// InsufficientFundsError carries the shortfall so callers can prompt a top-up.
type InsufficientFundsError struct {
	Required int64
	Current  int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %d, current %d", e.Required, e.Current)
}

func (e *InsufficientFundsError) Is(target error) bool { return target == ErrInsufficientFunds }

// Shortfall is the amount missing to complete the operation.
func (e *InsufficientFundsError) Shortfall() int64 {
	if e.Required <= e.Current {
		return 0
	}
	return e.Required - e.Current
}

// OutOfStockError names the line that could not be fulfilled.
type OutOfStockError struct {
	ProductID string
	VariantID *string
	Requested int
}

func (e *OutOfStockError) Error() string {
	if e.VariantID != nil {
		return fmt.Sprintf("out of stock: product %s variant %s (requested %d)", e.ProductID, *e.VariantID, e.Requested)
	}
	return fmt.Sprintf("out of stock: product %s (requested %d)", e.ProductID, e.Requested)
}

func (e *OutOfStockError) Is(target error) bool { return target == ErrOutOfStock }
