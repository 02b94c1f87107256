package repository

import (
	"context"

	"comics-commerce/internal/domain/model"
)

// -----------------------------
// Orders, carts, products
// -----------------------------

type OrderRepository interface {
	// Create stores the order with its items and history in one go.
	Create(ctx context.Context, tx Tx, o *model.Order) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Order, error)
}

type CartRepository interface {
	Create(ctx context.Context, tx Tx, c *model.Cart) error
	// FindByID returns the cart with its items ordered by creation time.
	FindByID(ctx context.Context, tx Tx, id string) (*model.Cart, error)
	AddItem(ctx context.Context, tx Tx, item *model.CartItem) error
	UpdateItemQuantity(ctx context.Context, tx Tx, cartID, itemID string, qty int) error
	RemoveItem(ctx context.Context, tx Tx, cartID, itemID string) error
	Clear(ctx context.Context, tx Tx, cartID string) error
}

type ProductRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Product, error)
	FindVariant(ctx context.Context, tx Tx, productID, variantID string) (*model.ProductVariant, error)
	// DecrementStock subtracts qty only when enough stock is left and bumps the
	// sales counter. ok=false means nothing was changed.
	DecrementStock(ctx context.Context, tx Tx, productID string, variantID *string, qty int) (ok bool, err error)
}
