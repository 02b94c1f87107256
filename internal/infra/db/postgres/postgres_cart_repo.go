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

var _ repository.CartRepository = (*cartRepo)(nil)

type cartRepo struct{ pool *pgxpool.Pool }

func NewCartRepo(pool *pgxpool.Pool) *cartRepo {
	return &cartRepo{pool: pool}
}

func (r *cartRepo) Create(ctx context.Context, tx repository.Tx, c *model.Cart) error {
	const q = `INSERT INTO carts (id, user_id, created_at, updated_at) VALUES ($1,$2,$3,$4);`
	if _, err := execSQL(ctx, r.pool, tx, q, c.ID, c.UserID, c.CreatedAt, c.UpdatedAt); err != nil {
		return fmt.Errorf("insert cart: %w", err)
	}
	return nil
}

func (r *cartRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Cart, error) {
	if !isUUID(id) {
		return nil, domain.ErrNotFound
	}
	row, err := pickRow(ctx, r.pool, tx, forUpdate(`SELECT id, user_id, created_at, updated_at FROM carts WHERE id=$1`, tx)+";", id)
	if err != nil {
		return nil, err
	}
	var c model.Cart
	if err := row.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}

	const qi = `
SELECT id, cart_id, product_id, variant_id, quantity, unit_price, title, created_at
  FROM cart_items WHERE cart_id=$1 ORDER BY created_at, id;`
	rows, err := queryRows(ctx, r.pool, tx, qi, id)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it model.CartItem
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.VariantID, &it.Quantity, &it.UnitPrice, &it.Title, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		c.Items = append(c.Items, it)
	}
	return &c, rows.Err()
}

func (r *cartRepo) AddItem(ctx context.Context, tx repository.Tx, it *model.CartItem) error {
	const q = `
INSERT INTO cart_items (id, cart_id, product_id, variant_id, quantity, unit_price, title, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	if _, err := execSQL(ctx, r.pool, tx, q, it.ID, it.CartID, it.ProductID, it.VariantID, it.Quantity, it.UnitPrice, it.Title, it.CreatedAt); err != nil {
		return fmt.Errorf("insert cart item: %w", err)
	}
	return r.touch(ctx, tx, it.CartID)
}

func (r *cartRepo) UpdateItemQuantity(ctx context.Context, tx repository.Tx, cartID, itemID string, qty int) error {
	if !isUUID(cartID) || !isUUID(itemID) {
		return domain.ErrNotFound
	}
	tag, err := execSQL(ctx, r.pool, tx, `UPDATE cart_items SET quantity=$3 WHERE cart_id=$1 AND id=$2;`, cartID, itemID, qty)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return r.touch(ctx, tx, cartID)
}

func (r *cartRepo) RemoveItem(ctx context.Context, tx repository.Tx, cartID, itemID string) error {
	if !isUUID(cartID) || !isUUID(itemID) {
		return domain.ErrNotFound
	}
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM cart_items WHERE cart_id=$1 AND id=$2;`, cartID, itemID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return r.touch(ctx, tx, cartID)
}

func (r *cartRepo) Clear(ctx context.Context, tx repository.Tx, cartID string) error {
	if !isUUID(cartID) {
		return domain.ErrNotFound
	}
	if _, err := execSQL(ctx, r.pool, tx, `DELETE FROM cart_items WHERE cart_id=$1;`, cartID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return r.touch(ctx, tx, cartID)
}

func (r *cartRepo) touch(ctx context.Context, tx repository.Tx, cartID string) error {
	tag, err := execSQL(ctx, r.pool, tx, `UPDATE carts SET updated_at=NOW() WHERE id=$1;`, cartID)
	if err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
