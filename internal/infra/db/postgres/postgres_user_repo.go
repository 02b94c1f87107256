package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"comics-commerce/internal/domain"
	"comics-commerce/internal/domain/model"
	"comics-commerce/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

const userColumns = `id, email, balance, is_subscribed, subscription_start, subscription_end, created_at, updated_at`

// Save upserts profile fields. The balance is written on insert only.
func (r *PostgresUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, email, balance, is_subscribed, subscription_start, subscription_end, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET email=$2, updated_at=NOW();`
	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.Email, u.Balance, u.IsSubscribed, u.SubscriptionStart, u.SubscriptionEnd, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return r.findOne(ctx, tx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *PostgresUserRepo) LockByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return r.findOne(ctx, tx, forUpdate(`SELECT `+userColumns+` FROM users WHERE id=$1`, tx), id)
}

// DebitBalance is the single place a balance decreases. The guard is part of
// the UPDATE so concurrent debits can never overdraw.
func (r *PostgresUserRepo) DebitBalance(ctx context.Context, tx repository.Tx, id string, amount int64) (int64, bool, error) {
	const q = `UPDATE users SET balance = balance - $2, updated_at = NOW() WHERE id = $1 AND balance >= $2 RETURNING balance;`
	row, err := pickRow(ctx, r.pool, tx, q, id, amount)
	if err != nil {
		return 0, false, err
	}
	var bal int64
	if err := row.Scan(&bal); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// guard failed or no such user
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("debit balance: %w", err)
	}
	return bal, true, nil
}

func (r *PostgresUserRepo) CreditBalance(ctx context.Context, tx repository.Tx, id string, amount int64) (int64, error) {
	const q = `UPDATE users SET balance = balance + $2, updated_at = NOW() WHERE id = $1 RETURNING balance;`
	row, err := pickRow(ctx, r.pool, tx, q, id, amount)
	if err != nil {
		return 0, err
	}
	var bal int64
	if err := row.Scan(&bal); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrUserNotFound
		}
		return 0, fmt.Errorf("credit balance: %w", err)
	}
	return bal, nil
}

func (r *PostgresUserRepo) SetSubscription(ctx context.Context, tx repository.Tx, id string, active bool, start, end *time.Time) error {
	const q = `UPDATE users SET is_subscribed=$2, subscription_start=$3, subscription_end=$4, updated_at=NOW() WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, active, start, end)
	if err != nil {
		return fmt.Errorf("set subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *PostgresUserRepo) findOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, tx, q+";", args...)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.Balance, &u.IsSubscribed, &u.SubscriptionStart, &u.SubscriptionEnd, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("read user: %w", err)
	}
	return &u, nil
}
