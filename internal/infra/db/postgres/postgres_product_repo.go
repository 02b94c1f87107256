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

var _ repository.ProductRepository = (*productRepo)(nil)

type productRepo struct{ pool *pgxpool.Pool }

func NewProductRepo(pool *pgxpool.Pool) *productRepo {
	return &productRepo{pool: pool}
}

func (r *productRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	const q = `SELECT id, title, price, stock, sales_count, active, created_at FROM products WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var p model.Product
	if err := row.Scan(&p.ID, &p.Title, &p.Price, &p.Stock, &p.SalesCount, &p.Active, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	return &p, nil
}

func (r *productRepo) FindVariant(ctx context.Context, tx repository.Tx, productID, variantID string) (*model.ProductVariant, error) {
	const q = `SELECT id, product_id, name, price, stock FROM product_variants WHERE product_id=$1 AND id=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, productID, variantID)
	if err != nil {
		return nil, err
	}
	var v model.ProductVariant
	if err := row.Scan(&v.ID, &v.ProductID, &v.Name, &v.Price, &v.Stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	return &v, nil
}

// DecrementStock is a conditional update; two buyers racing for the last unit
// cannot both succeed.
func (r *productRepo) DecrementStock(ctx context.Context, tx repository.Tx, productID string, variantID *string, qty int) (bool, error) {
	if qty <= 0 {
		return false, domain.ErrInvalidArgument
	}
	if variantID != nil {
		const qv = `UPDATE product_variants SET stock = stock - $3 WHERE product_id=$1 AND id=$2 AND stock >= $3;`
		tag, err := execSQL(ctx, r.pool, tx, qv, productID, *variantID, qty)
		if err != nil {
			return false, fmt.Errorf("decrement variant stock: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return false, nil
		}
		if _, err := execSQL(ctx, r.pool, tx, `UPDATE products SET sales_count = sales_count + $2 WHERE id=$1;`, productID, qty); err != nil {
			return false, fmt.Errorf("bump sales count: %w", err)
		}
		return true, nil
	}

	const q = `UPDATE products SET stock = stock - $2, sales_count = sales_count + $2 WHERE id=$1 AND stock >= $2;`
	tag, err := execSQL(ctx, r.pool, tx, q, productID, qty)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
