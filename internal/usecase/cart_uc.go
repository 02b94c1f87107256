// File: internal/usecase/cart_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"comics-commerce/internal/domain"
	"comics-commerce/internal/domain/model"
	"comics-commerce/internal/domain/ports/repository"
)

var _ CartUseCase = (*cartUC)(nil)

type AddItemInput struct {
	ProductID string
	VariantID *string
	Quantity  int
}

type CartUseCase interface {
	// Get returns the cart; an unknown or empty id yields an empty cart.
	Get(ctx context.Context, cartID string) (*model.Cart, error)
	// AddItem creates the cart when cartID is empty and returns the updated cart.
	AddItem(ctx context.Context, cartID, userID string, in AddItemInput) (*model.Cart, error)
	// UpdateItem sets the quantity of a line; zero removes it.
	UpdateItem(ctx context.Context, cartID, itemID string, qty int) (*model.Cart, error)
	RemoveItem(ctx context.Context, cartID, itemID string) (*model.Cart, error)
	Clear(ctx context.Context, cartID string) error
}

type cartUC struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewCartUseCase(carts repository.CartRepository, products repository.ProductRepository, tm repository.TransactionManager, logger *zerolog.Logger) *cartUC {
	l := logger.With().Str("component", "CartUC").Logger()
	return &cartUC{carts: carts, products: products, tm: tm, log: &l}
}

func (u *cartUC) Get(ctx context.Context, cartID string) (*model.Cart, error) {
	if cartID == "" {
		return &model.Cart{}, nil
	}
	c, err := u.carts.FindByID(ctx, repository.NoTX, cartID)
	if errors.Is(err, domain.ErrNotFound) {
		return &model.Cart{}, nil
	}
	return c, err
}

func (u *cartUC) AddItem(ctx context.Context, cartID, userID string, in AddItemInput) (*model.Cart, error) {
	if in.ProductID == "" || in.Quantity <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	var out *model.Cart
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		cart, err := u.loadOrCreate(ctx, tx, cartID, userID)
		if err != nil {
			return err
		}

		product, err := u.products.FindByID(ctx, tx, in.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrProductNotFound
			}
			return err
		}
		if !product.Active {
			return domain.ErrProductNotFound
		}
		var variant *model.ProductVariant
		stock := product.Stock
		if in.VariantID != nil {
			variant, err = u.products.FindVariant(ctx, tx, product.ID, *in.VariantID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.ErrProductNotFound
				}
				return err
			}
			stock = variant.Stock
		}

		// Merge with an existing line for the same product/variant; that line
		// keeps the price it was first captured at.
		if existing := findLine(cart, in.ProductID, in.VariantID); existing != nil {
			qty := existing.Quantity + in.Quantity
			if qty > stock {
				return &domain.OutOfStockError{ProductID: in.ProductID, VariantID: in.VariantID, Requested: qty}
			}
			if err := u.carts.UpdateItemQuantity(ctx, tx, cart.ID, existing.ID, qty); err != nil {
				return err
			}
		} else {
			if in.Quantity > stock {
				return &domain.OutOfStockError{ProductID: in.ProductID, VariantID: in.VariantID, Requested: in.Quantity}
			}
			title := product.Title
			if variant != nil && variant.Name != "" {
				title += " (" + variant.Name + ")"
			}
			item := &model.CartItem{
				ID:        uuid.NewString(),
				CartID:    cart.ID,
				ProductID: product.ID,
				VariantID: in.VariantID,
				Quantity:  in.Quantity,
				UnitPrice: model.UnitPrice(product, variant),
				Title:     title,
				CreatedAt: time.Now(),
			}
			if err := u.carts.AddItem(ctx, tx, item); err != nil {
				return err
			}
		}

		out, err = u.carts.FindByID(ctx, tx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *cartUC) UpdateItem(ctx context.Context, cartID, itemID string, qty int) (*model.Cart, error) {
	if cartID == "" || itemID == "" || qty < 0 {
		return nil, domain.ErrInvalidArgument
	}
	if qty == 0 {
		return u.RemoveItem(ctx, cartID, itemID)
	}
	var out *model.Cart
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		cart, err := u.carts.FindByID(ctx, tx, cartID)
		if err != nil {
			return err
		}
		line := findItem(cart, itemID)
		if line == nil {
			return domain.ErrNotFound
		}
		stock, err := u.stockFor(ctx, tx, line.ProductID, line.VariantID)
		if err != nil {
			return err
		}
		if qty > stock {
			return &domain.OutOfStockError{ProductID: line.ProductID, VariantID: line.VariantID, Requested: qty}
		}
		if err := u.carts.UpdateItemQuantity(ctx, tx, cartID, itemID, qty); err != nil {
			return err
		}
		out, err = u.carts.FindByID(ctx, tx, cartID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *cartUC) RemoveItem(ctx context.Context, cartID, itemID string) (*model.Cart, error) {
	if cartID == "" || itemID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if err := u.carts.RemoveItem(ctx, repository.NoTX, cartID, itemID); err != nil {
		return nil, err
	}
	return u.Get(ctx, cartID)
}

func (u *cartUC) Clear(ctx context.Context, cartID string) error {
	if cartID == "" {
		return nil
	}
	err := u.carts.Clear(ctx, repository.NoTX, cartID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

func (u *cartUC) loadOrCreate(ctx context.Context, tx repository.Tx, cartID, userID string) (*model.Cart, error) {
	if cartID != "" {
		c, err := u.carts.FindByID(ctx, tx, cartID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		// stale cookie: fall through and issue a new cart
	}
	now := time.Now()
	c := &model.Cart{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	if userID != "" {
		c.UserID = &userID
	}
	if err := u.carts.Create(ctx, tx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (u *cartUC) stockFor(ctx context.Context, tx repository.Tx, productID string, variantID *string) (int, error) {
	if variantID != nil {
		v, err := u.products.FindVariant(ctx, tx, productID, *variantID)
		if err != nil {
			return 0, err
		}
		return v.Stock, nil
	}
	p, err := u.products.FindByID(ctx, tx, productID)
	if err != nil {
		return 0, err
	}
	return p.Stock, nil
}

func findLine(c *model.Cart, productID string, variantID *string) *model.CartItem {
	for i := range c.Items {
		it := &c.Items[i]
		if it.ProductID != productID {
			continue
		}
		if (it.VariantID == nil) != (variantID == nil) {
			continue
		}
		if it.VariantID != nil && *it.VariantID != *variantID {
			continue
		}
		return it
	}
	return nil
}

func findItem(c *model.Cart, itemID string) *model.CartItem {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i]
		}
	}
	return nil
}
