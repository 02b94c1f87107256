package repository

import (
	"context"
	"time"

	"comics-commerce/internal/domain/model"
)

// -----------------------------
// Users / balance
// -----------------------------

// UserRepository owns the balance column. Balance changes go through the
// conditional Debit/Credit methods only; Save never touches the balance of an
// existing row.
type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	// LockByID reads the user row with a row lock when tx is a real transaction.
	LockByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	// DebitBalance atomically subtracts amount only if balance >= amount.
	// ok=false means the guard failed (or the user does not exist).
	DebitBalance(ctx context.Context, tx Tx, id string, amount int64) (newBalance int64, ok bool, err error)
	CreditBalance(ctx context.Context, tx Tx, id string, amount int64) (newBalance int64, err error)
	SetSubscription(ctx context.Context, tx Tx, id string, active bool, start, end *time.Time) error
}

// -----------------------------
// Transaction history
// -----------------------------

type TransactionRepository interface {
	// Append inserts one history row. A second row for the same payment
	// returns domain.ErrAlreadyExists.
	Append(ctx context.Context, tx Tx, t *model.Transaction) error
	ListByUser(ctx context.Context, tx Tx, userID string, limit, offset int) ([]*model.Transaction, error)
	CountByUser(ctx context.Context, tx Tx, userID string) (int, error)
}
