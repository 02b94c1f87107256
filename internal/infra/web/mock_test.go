//go:build !integration

package web

import (
	"context"

	"comics-commerce/internal/domain"
	"comics-commerce/internal/domain/model"
	"comics-commerce/internal/domain/ports/adapter"
	"comics-commerce/internal/usecase"
)

// --- Mock use cases ---
// Each mock embeds its interface so unused methods panic if a test reaches them.

type mockUserUC struct {
	usecase.UserUseCase
	EnsureUserFunc func(ctx context.Context, id, email string) (*model.User, error)
	ensured        []string
}

func (m *mockUserUC) EnsureUser(ctx context.Context, id, email string) (*model.User, error) {
	m.ensured = append(m.ensured, id)
	if m.EnsureUserFunc != nil {
		return m.EnsureUserFunc(ctx, id, email)
	}
	return &model.User{ID: id, Email: email}, nil
}

type mockCartUC struct {
	usecase.CartUseCase
	GetFunc        func(ctx context.Context, cartID string) (*model.Cart, error)
	AddItemFunc    func(ctx context.Context, cartID, userID string, in usecase.AddItemInput) (*model.Cart, error)
	UpdateItemFunc func(ctx context.Context, cartID, itemID string, qty int) (*model.Cart, error)
	ClearFunc      func(ctx context.Context, cartID string) error
}

func (m *mockCartUC) Get(ctx context.Context, cartID string) (*model.Cart, error) {
	return m.GetFunc(ctx, cartID)
}

func (m *mockCartUC) AddItem(ctx context.Context, cartID, userID string, in usecase.AddItemInput) (*model.Cart, error) {
	return m.AddItemFunc(ctx, cartID, userID, in)
}

func (m *mockCartUC) UpdateItem(ctx context.Context, cartID, itemID string, qty int) (*model.Cart, error) {
	return m.UpdateItemFunc(ctx, cartID, itemID, qty)
}

func (m *mockCartUC) Clear(ctx context.Context, cartID string) error {
	return m.ClearFunc(ctx, cartID)
}

type mockOrderUC struct {
	usecase.OrderUseCase
	CreateOrderFunc func(ctx context.Context, userID, cartID string, in usecase.CheckoutInput) (*model.Order, error)
	GetFunc         func(ctx context.Context, userID, orderID string) (*model.Order, error)
}

func (m *mockOrderUC) CreateOrder(ctx context.Context, userID, cartID string, in usecase.CheckoutInput) (*model.Order, error) {
	return m.CreateOrderFunc(ctx, userID, cartID, in)
}

func (m *mockOrderUC) Get(ctx context.Context, userID, orderID string) (*model.Order, error) {
	return m.GetFunc(ctx, userID, orderID)
}

type mockSubscriptionUC struct {
	usecase.SubscriptionUseCase
	PlansFunc     func(ctx context.Context) ([]*model.SubscriptionPlan, error)
	SubscribeFunc func(ctx context.Context, userID, planID string) (*model.UserSubscription, error)
}

func (m *mockSubscriptionUC) Plans(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	return m.PlansFunc(ctx)
}

func (m *mockSubscriptionUC) Subscribe(ctx context.Context, userID, planID string) (*model.UserSubscription, error) {
	return m.SubscribeFunc(ctx, userID, planID)
}

type mockLedgerUC struct {
	usecase.LedgerUseCase
	OverviewFunc func(ctx context.Context, userID string, limit, offset int) (*usecase.BalanceOverview, error)
}

func (m *mockLedgerUC) Overview(ctx context.Context, userID string, limit, offset int) (*usecase.BalanceOverview, error) {
	return m.OverviewFunc(ctx, userID, limit, offset)
}

type mockPaymentUC struct {
	usecase.PaymentUseCase
	CreateTopUpFunc   func(ctx context.Context, userID string, amount int64, key, returnURL string) (*model.Payment, error)
	HandleWebhookFunc func(ctx context.Context, n adapter.PaymentNotification) (usecase.WebhookResult, error)
	StatusFunc        func(ctx context.Context, userID, paymentID string) (*model.Payment, error)
}

func (m *mockPaymentUC) CreateTopUp(ctx context.Context, userID string, amount int64, key, returnURL string) (*model.Payment, error) {
	return m.CreateTopUpFunc(ctx, userID, amount, key, returnURL)
}

func (m *mockPaymentUC) HandleWebhook(ctx context.Context, n adapter.PaymentNotification) (usecase.WebhookResult, error) {
	return m.HandleWebhookFunc(ctx, n)
}

func (m *mockPaymentUC) Status(ctx context.Context, userID, paymentID string) (*model.Payment, error) {
	if m.StatusFunc == nil {
		return nil, domain.ErrPaymentNotFound
	}
	return m.StatusFunc(ctx, userID, paymentID)
}
