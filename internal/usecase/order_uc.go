// File: internal/usecase/order_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"comics-commerce/internal/domain"
	"comics-commerce/internal/domain/model"
	"comics-commerce/internal/domain/ports/repository"
	"comics-commerce/internal/infra/logging"
	"comics-commerce/internal/infra/metrics"
)

var _ OrderUseCase = (*orderUC)(nil)

const maxNoteLength = 1000

type CheckoutInput struct {
	ShippingAddress string
	Comment         string
}

type OrderUseCase interface {
	// CreateOrder turns the cart into a paid order. The whole checkout is one
	// transaction: on any error nothing is written.
	CreateOrder(ctx context.Context, userID, cartID string, in CheckoutInput) (*model.Order, error)
	Get(ctx context.Context, userID, orderID string) (*model.Order, error)
}

// ShippingPolicy is a flat fee waived from a subtotal threshold.
type ShippingPolicy struct {
	Fee      int64
	FreeFrom int64 // 0 disables free shipping
}

func (p ShippingPolicy) CostFor(subtotal int64) int64 {
	if p.FreeFrom > 0 && subtotal >= p.FreeFrom {
		return 0
	}
	return p.Fee
}

type orderUC struct {
	orders   repository.OrderRepository
	carts    repository.CartRepository
	products repository.ProductRepository
	users    repository.UserRepository
	ledger   *ledgerUC
	tm       repository.TransactionManager
	shipping ShippingPolicy
	currency string
	policy   *bluemonday.Policy
	log      *zerolog.Logger
}

func NewOrderUseCase(
	orders repository.OrderRepository,
	carts repository.CartRepository,
	products repository.ProductRepository,
	users repository.UserRepository,
	ledger *ledgerUC,
	tm repository.TransactionManager,
	shipping ShippingPolicy,
	currency string,
	logger *zerolog.Logger,
) *orderUC {
	l := logger.With().Str("component", "OrderUC").Logger()
	return &orderUC{
		orders:   orders,
		carts:    carts,
		products: products,
		users:    users,
		ledger:   ledger,
		tm:       tm,
		shipping: shipping,
		currency: currency,
		policy:   bluemonday.StrictPolicy(),
		log:      &l,
	}
}

func (u *orderUC) CreateOrder(ctx context.Context, userID, cartID string, in CheckoutInput) (*model.Order, error) {
	log := logging.With(ctx, u.log)
	defer logging.TraceDuration(log, "OrderUC.CreateOrder")()

	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if cartID == "" {
		metrics.IncOrder("empty_cart")
		return nil, domain.ErrEmptyCart
	}
	address, err := u.sanitize(in.ShippingAddress)
	if err != nil {
		return nil, err
	}
	comment, err := u.sanitize(in.Comment)
	if err != nil {
		return nil, err
	}

	var order *model.Order
	var purchase *model.Transaction
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		cart, err := u.carts.FindByID(ctx, tx, cartID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrEmptyCart
			}
			return err
		}
		if cart.IsEmpty() {
			return domain.ErrEmptyCart
		}
		if cart.UserID != nil && *cart.UserID != userID {
			return domain.ErrForbidden
		}

		user, err := u.users.FindByID(ctx, tx, userID)
		if err != nil {
			return err
		}

		// Prices are the ones captured at add-to-cart time.
		o, err := model.NewOrderFromCart(uuid.NewString(), userID, cart.Items, 0, u.shipping.CostFor(cart.Total()), u.currency)
		if err != nil {
			return err
		}
		if user.Balance < o.FinalAmount {
			return &domain.InsufficientFundsError{Required: o.FinalAmount, Current: user.Balance}
		}
		o.ShippingAddress = address
		o.Comment = comment

		if err := u.orders.Create(ctx, tx, o); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		if o.FinalAmount > 0 {
			purchase, err = u.ledger.debitTx(ctx, tx, ledgerEntry{
				UserID:      userID,
				Amount:      o.FinalAmount,
				Type:        model.TransactionPurchase,
				OrderID:     &o.ID,
				Description: "order " + o.Number,
			})
			if err != nil {
				return err
			}
		}

		for _, it := range o.Items {
			ok, err := u.products.DecrementStock(ctx, tx, it.ProductID, it.VariantID, it.Quantity)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if !ok {
				return &domain.OutOfStockError{ProductID: it.ProductID, VariantID: it.VariantID, Requested: it.Quantity}
			}
		}

		if err := u.carts.Clear(ctx, tx, cartID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		order = o
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyCart):
			metrics.IncOrder("empty_cart")
		case errors.Is(err, domain.ErrInsufficientFunds):
			metrics.IncOrder("insufficient_funds")
		case errors.Is(err, domain.ErrOutOfStock):
			metrics.IncOrder("out_of_stock")
		default:
			metrics.IncOrder("error")
			log.Error().Err(err).Str("cart_id", cartID).Msg("checkout failed")
		}
		return nil, err
	}

	observeLedgerCommit(purchase)
	metrics.IncOrder("created")
	metrics.ObserveOrderAmount(order.FinalAmount)
	log.Info().Str("order_id", order.ID).Str("number", order.Number).Int64("amount", order.FinalAmount).Msg("order created")
	return order, nil
}

func (u *orderUC) Get(ctx context.Context, userID, orderID string) (*model.Order, error) {
	o, err := u.orders.FindByID(ctx, repository.NoTX, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	if o.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

func (u *orderUC) sanitize(s string) (string, error) {
	s = strings.TrimSpace(u.policy.Sanitize(s))
	if utf8.RuneCountInString(s) > maxNoteLength {
		return "", fmt.Errorf("note longer than %d characters: %w", maxNoteLength, domain.ErrInvalidArgument)
	}
	return s, nil
}
