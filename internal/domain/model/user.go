package model

import (
	"time"

	"comics-commerce/internal/domain"

	"github.com/google/uuid"
)

// User is the wallet owner. Balance is kept in minor units and only changes
// through the ledger's conditional updates.
type User struct {
	ID                string
	Email             string
	Balance           int64
	IsSubscribed      bool
	SubscriptionStart *time.Time
	SubscriptionEnd   *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewUser(id, email string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if email == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &User{
		ID:        id,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

// HasActiveSubscription reports whether the denormalized subscription window covers at.
func (u *User) HasActiveSubscription(at time.Time) bool {
	if u == nil || !u.IsSubscribed || u.SubscriptionEnd == nil {
		return false
	}
	return at.Before(*u.SubscriptionEnd)
}
