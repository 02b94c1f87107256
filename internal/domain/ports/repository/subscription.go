package repository

import (
	"context"
	"time"

	"comics-commerce/internal/domain/model"
)

// SubscriptionRepository is the port for user subscriptions.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, sub *model.UserSubscription) error
	FindActiveByUser(ctx context.Context, tx Tx, userID string, at time.Time) (*model.UserSubscription, error)
	ListExpired(ctx context.Context, tx Tx, at time.Time, limit int) ([]*model.UserSubscription, error)
	// MarkExpired flips an active subscription to expired; false if it was not active.
	MarkExpired(ctx context.Context, tx Tx, id string) (bool, error)
	// ExpireLapsedByUser expires the user's active rows whose period ended at or before at.
	ExpireLapsedByUser(ctx context.Context, tx Tx, userID string, at time.Time) (int, error)
}
