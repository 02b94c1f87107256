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

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, provider, amount, currency, method, status, purpose, gateway_payment_id,
       confirmation_url, idempotency_key, description, meta, created_at, updated_at, paid_at`

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, user_id, provider, amount, currency, method, status, purpose, gateway_payment_id,
  confirmation_url, idempotency_key, description, meta, created_at, updated_at, paid_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16);`
	meta := p.Meta
	if meta == nil {
		meta = map[string]string{}
	}
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, p.Provider, p.Amount, p.Currency, string(p.Method), string(p.Status), string(p.Purpose), p.GatewayPaymentID,
		p.ConfirmationURL, p.IdempotencyKey, p.Description, meta, p.CreatedAt, p.UpdatedAt, p.PaidAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	if !isUUID(id) {
		return nil, domain.ErrNotFound
	}
	return r.findOne(ctx, tx, forUpdate(`SELECT `+paymentColumns+` FROM payments WHERE id=$1`, tx), id)
}

func (r *paymentRepo) FindByGatewayID(ctx context.Context, tx repository.Tx, gatewayID string) (*model.Payment, error) {
	return r.findOne(ctx, tx, forUpdate(`SELECT `+paymentColumns+` FROM payments WHERE gateway_payment_id=$1`, tx), gatewayID)
}

func (r *paymentRepo) FindByIdempotencyKey(ctx context.Context, tx repository.Tx, userID, key string) (*model.Payment, error) {
	return r.findOne(ctx, tx, `SELECT `+paymentColumns+` FROM payments WHERE user_id=$1 AND idempotency_key=$2`, userID, key)
}

func (r *paymentRepo) SetGatewayData(ctx context.Context, tx repository.Tx, id, gatewayID, confirmationURL string) error {
	const q = `UPDATE payments SET gateway_payment_id=$2, confirmation_url=$3, updated_at=NOW() WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, gatewayID, confirmationURL)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("set gateway data: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

// TransitionFromPending is the compare-and-set that makes settlement happen
// at most once: only the caller that still sees 'pending' gets true.
func (r *paymentRepo) TransitionFromPending(ctx context.Context, tx repository.Tx, id string, to model.PaymentStatus, method model.PaymentMethod, paidAt *time.Time) (bool, error) {
	if !to.IsTerminal() {
		return false, domain.ErrInvalidArgument
	}
	const q = `
UPDATE payments
   SET status=$2, method=COALESCE(NULLIF($3, ''), method), paid_at=$4, updated_at=NOW()
 WHERE id=$1 AND status='pending';`
	tag, err := execSQL(ctx, r.pool, tx, q, id, string(to), string(method), paidAt)
	if err != nil {
		return false, fmt.Errorf("transition payment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE status='pending' AND updated_at < $1 ORDER BY updated_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending payments: %w", err)
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *paymentRepo) TouchPending(ctx context.Context, tx repository.Tx, id string) error {
	if !isUUID(id) {
		return domain.ErrNotFound
	}
	if _, err := execSQL(ctx, r.pool, tx, `UPDATE payments SET updated_at=NOW() WHERE id=$1 AND status='pending';`, id); err != nil {
		return fmt.Errorf("touch payment: %w", err)
	}
	return nil
}

func (r *paymentRepo) findOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Payment, error) {
	row, err := pickRow(ctx, r.pool, tx, q+";", args...)
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
		return nil, domain.ErrNotFound
	}
	return p, err
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var (
		p                       model.Payment
		method, status, purpose string
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Provider, &p.Amount, &p.Currency, &method, &status, &purpose, &p.GatewayPaymentID,
		&p.ConfirmationURL, &p.IdempotencyKey, &p.Description, &p.Meta, &p.CreatedAt, &p.UpdatedAt, &p.PaidAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	if p.Method, err = model.ParsePaymentMethod(method); err != nil {
		return nil, err
	}
	if p.Status, err = model.ParsePaymentStatus(status); err != nil {
		return nil, err
	}
	if p.Purpose, err = model.ParsePaymentPurpose(purpose); err != nil {
		return nil, err
	}
	return &p, nil
}
