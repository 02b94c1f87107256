package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"comics-commerce/internal/domain"
	"comics-commerce/internal/domain/model"
	"comics-commerce/internal/domain/ports/repository"
)

var _ repository.TransactionRepository = (*transactionRepo)(nil)

type transactionRepo struct{ pool *pgxpool.Pool }

func NewTransactionRepo(pool *pgxpool.Pool) *transactionRepo {
	return &transactionRepo{pool: pool}
}

// Append relies on ux_transactions_payment: a second row for one payment is
// reported as domain.ErrAlreadyExists.
func (r *transactionRepo) Append(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	const q = `
INSERT INTO transactions (id, user_id, type, amount, status, balance_after, payment_id, order_id, subscription_id, description, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`
	_, err := execSQL(ctx, r.pool, tx, q, t.ID, t.UserID, string(t.Type), t.Amount, string(t.Status), t.BalanceAfter, t.PaymentID, t.OrderID, t.SubscriptionID, t.Description, t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *transactionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit, offset int) ([]*model.Transaction, error) {
	const q = `
SELECT id, user_id, type, amount, status, balance_after, payment_id, order_id, subscription_id, description, created_at
  FROM transactions
 WHERE user_id=$1
 ORDER BY created_at DESC, id
 LIMIT $2 OFFSET $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *transactionRepo) CountByUser(ctx context.Context, tx repository.Tx, userID string) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM transactions WHERE user_id=$1;`, userID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var (
		t            model.Transaction
		kind, status string
	)
	if err := row.Scan(&t.ID, &t.UserID, &kind, &t.Amount, &status, &t.BalanceAfter, &t.PaymentID, &t.OrderID, &t.SubscriptionID, &t.Description, &t.CreatedAt); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	var err error
	if t.Type, err = model.ParseTransactionType(kind); err != nil {
		return nil, err
	}
	if t.Status, err = model.ParseTransactionStatus(status); err != nil {
		return nil, err
	}
	return &t, nil
}
