package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"comics-commerce/internal/domain"
	"comics-commerce/internal/domain/model"
	"comics-commerce/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

// Create writes the order, its items and its status history. Callers run it
// inside the checkout transaction.
func (r *orderRepo) Create(ctx context.Context, tx repository.Tx, o *model.Order) error {
	const qOrder = `
INSERT INTO orders (
  id, number, user_id, subtotal, discount, shipping_cost, final_amount, currency,
  status, payment_status, shipping_status, shipping_address, comment, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15);`
	_, err := execSQL(ctx, r.pool, tx, qOrder,
		o.ID, o.Number, o.UserID, o.Subtotal, o.Discount, o.ShippingCost, o.FinalAmount, o.Currency,
		string(o.Status), string(o.PaymentStatus), string(o.ShippingStatus), o.ShippingAddress, o.Comment, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert order: %w", err)
	}

	const qItem = `
INSERT INTO order_items (id, order_id, product_id, variant_id, title, quantity, unit_price, line_total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	for _, it := range o.Items {
		if _, err := execSQL(ctx, r.pool, tx, qItem, it.ID, o.ID, it.ProductID, it.VariantID, it.Title, it.Quantity, it.UnitPrice, it.LineTotal); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	const qHist = `INSERT INTO order_status_history (order_id, status, note, created_at) VALUES ($1,$2,$3,$4);`
	for _, h := range o.History {
		if _, err := execSQL(ctx, r.pool, tx, qHist, o.ID, string(h.Status), h.Note, h.CreatedAt); err != nil {
			return fmt.Errorf("insert order history: %w", err)
		}
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	const q = `
SELECT id, number, user_id, subtotal, discount, shipping_cost, final_amount, currency,
       status, payment_status, shipping_status, shipping_address, comment, created_at, updated_at
  FROM orders WHERE id=$1;`
	if !isUUID(id) {
		return nil, domain.ErrNotFound
	}
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var (
		o                                 model.Order
		status, paymentStatus, shipStatus string
	)
	if err := row.Scan(&o.ID, &o.Number, &o.UserID, &o.Subtotal, &o.Discount, &o.ShippingCost, &o.FinalAmount, &o.Currency,
		&status, &paymentStatus, &shipStatus, &o.ShippingAddress, &o.Comment, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	if o.Status, err = model.ParseOrderStatus(status); err != nil {
		return nil, err
	}
	if o.PaymentStatus, err = model.ParseOrderPaymentStatus(paymentStatus); err != nil {
		return nil, err
	}
	if o.ShippingStatus, err = model.ParseShippingStatus(shipStatus); err != nil {
		return nil, err
	}

	if o.Items, err = r.items(ctx, tx, o.ID); err != nil {
		return nil, err
	}
	if o.History, err = r.history(ctx, tx, o.ID); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) items(ctx context.Context, tx repository.Tx, orderID string) ([]model.OrderItem, error) {
	const q = `
SELECT id, order_id, product_id, variant_id, title, quantity, unit_price, line_total
  FROM order_items WHERE order_id=$1 ORDER BY id;`
	rows, err := queryRows(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	var out []model.OrderItem
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VariantID, &it.Title, &it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *orderRepo) history(ctx context.Context, tx repository.Tx, orderID string) ([]model.OrderStatusEntry, error) {
	const q = `SELECT status, note, created_at FROM order_status_history WHERE order_id=$1 ORDER BY id;`
	rows, err := queryRows(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order history: %w", err)
	}
	defer rows.Close()

	var out []model.OrderStatusEntry
	for rows.Next() {
		var (
			e      model.OrderStatusEntry
			status string
		)
		if err := rows.Scan(&status, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		if e.Status, err = model.ParseOrderStatus(status); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
