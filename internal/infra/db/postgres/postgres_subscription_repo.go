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

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, user_id, plan_id, price, start_at, end_at, status, created_at`

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.UserSubscription) error {
	const q = `
INSERT INTO user_subscriptions (` + subscriptionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET end_at=$6, status=$7;`

	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.UserID, s.PlanID, s.Price, s.StartAt, s.EndAt, string(s.Status), s.CreatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		// ux_user_subscriptions_active
		if isUniqueViolation(err) {
			return domain.ErrAlreadySubscribed
		}
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string, at time.Time) (*model.UserSubscription, error) {
	const q = `
SELECT ` + subscriptionColumns + `
  FROM user_subscriptions
 WHERE user_id=$1 AND status='active' AND end_at > $2
 ORDER BY end_at DESC
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, at)
	if err != nil {
		return nil, err
	}
	s, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return s, err
}

func (r *subscriptionRepo) ListExpired(ctx context.Context, tx repository.Tx, at time.Time, limit int) ([]*model.UserSubscription, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT ` + subscriptionColumns + `
  FROM user_subscriptions
 WHERE status='active' AND end_at <= $1
 ORDER BY end_at
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, at, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired subscriptions: %w", err)
	}
	defer rows.Close()

	var out []*model.UserSubscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *subscriptionRepo) MarkExpired(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	tag, err := execSQL(ctx, r.pool, tx, `UPDATE user_subscriptions SET status='expired' WHERE id=$1 AND status='active';`, id)
	if err != nil {
		return false, fmt.Errorf("expire subscription: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *subscriptionRepo) ExpireLapsedByUser(ctx context.Context, tx repository.Tx, userID string, at time.Time) (int, error) {
	const q = `UPDATE user_subscriptions SET status='expired' WHERE user_id=$1 AND status='active' AND end_at <= $2;`
	tag, err := execSQL(ctx, r.pool, tx, q, userID, at)
	if err != nil {
		return 0, fmt.Errorf("expire lapsed subscriptions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanSubscription(row pgx.Row) (*model.UserSubscription, error) {
	var (
		s      model.UserSubscription
		status string
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.Price, &s.StartAt, &s.EndAt, &status, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	var err error
	if s.Status, err = model.ParseSubscriptionStatus(status); err != nil {
		return nil, err
	}
	return &s, nil
}
