package model

import (
	"fmt"
	"time"

	"comics-commerce/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive  SubscriptionStatus = "active"
	SubscriptionStatusExpired SubscriptionStatus = "expired"
)

func ParseSubscriptionStatus(s string) (SubscriptionStatus, error) {
	switch SubscriptionStatus(s) {
	case SubscriptionStatusActive, SubscriptionStatusExpired:
		return SubscriptionStatus(s), nil
	}
	return "", fmt.Errorf("subscription status %q: %w", s, domain.ErrUnknownStatus)
}

// UserSubscription is one paid period of a plan.
type UserSubscription struct {
	ID        string
	UserID    string
	PlanID    string
	Price     int64 // what was debited
	StartAt   time.Time
	EndAt     time.Time
	Status    SubscriptionStatus
	CreatedAt time.Time
}

// NewUserSubscription starts a subscription now with EndAt = now + plan duration.
func NewUserSubscription(id, userID string, plan *SubscriptionPlan, now time.Time) (*UserSubscription, error) {
	if id == "" || userID == "" || plan.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	return &UserSubscription{
		ID:        id,
		UserID:    userID,
		PlanID:    plan.ID,
		Price:     plan.Price,
		StartAt:   now,
		EndAt:     now.Add(plan.Duration()),
		Status:    SubscriptionStatusActive,
		CreatedAt: now,
	}, nil
}

func (s *UserSubscription) IsActiveAt(t time.Time) bool {
	return s != nil && s.Status == SubscriptionStatusActive && t.Before(s.EndAt)
}
