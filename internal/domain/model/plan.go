package model

import (
	"time"

	"comics-commerce/internal/domain"
)

// SubscriptionPlan is a priced duration template.
type SubscriptionPlan struct {
	ID           string
	Name         string
	DurationDays int
	Price        int64
	Active       bool
	CreatedAt    time.Time
}

func (p *SubscriptionPlan) IsZero() bool { return p == nil || p.ID == "" }

// Duration returns the length of one subscription period.
func (p *SubscriptionPlan) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

// NewSubscriptionPlan validates and constructs a plan.
func NewSubscriptionPlan(id, name string, durationDays int, price int64) (*SubscriptionPlan, error) {
	if id == "" || name == "" || durationDays <= 0 || price <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &SubscriptionPlan{
		ID:           id,
		Name:         name,
		DurationDays: durationDays,
		Price:        price,
		Active:       true,
		CreatedAt:    time.Now(),
	}, nil
}
