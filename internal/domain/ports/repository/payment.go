package repository

import (
	"context"
	"time"

	"comics-commerce/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	// Save inserts a new payment; a duplicate (user, idempotency key) returns domain.ErrAlreadyExists.
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByGatewayID(ctx context.Context, tx Tx, gatewayID string) (*model.Payment, error)
	FindByIdempotencyKey(ctx context.Context, tx Tx, userID, key string) (*model.Payment, error)
	SetGatewayData(ctx context.Context, tx Tx, id, gatewayID, confirmationURL string) error
	// TransitionFromPending moves a pending payment to a terminal status.
	// It reports false when the payment was not pending anymore.
	TransitionFromPending(ctx context.Context, tx Tx, id string, to model.PaymentStatus, method model.PaymentMethod, paidAt *time.Time) (bool, error)
	// ListPendingOlderThan returns pending payments not touched since olderThan,
	// least recently touched first.
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Payment, error)
	// TouchPending bumps updated_at of a pending payment so the next scan starts
	// with payments that were not tried yet.
	TouchPending(ctx context.Context, tx Tx, id string) error
}
