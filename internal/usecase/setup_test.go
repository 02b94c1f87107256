//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"testing"
	"time"

	"comics-commerce/internal/usecase"

	"github.com/rs/zerolog"
)

type testEnv struct {
	db       *memDB
	tm       *MockTxManager
	gateway  *MockPaymentGateway
	locker   *MockLocker
	limiter  *MockRateLimiter
	ledger   usecase.LedgerUseCase
	carts    usecase.CartUseCase
	orders   usecase.OrderUseCase
	subs     usecase.SubscriptionUseCase
	payments usecase.PaymentUseCase
	users    usecase.UserUseCase
	plans    *usecase.PlanUseCase
}

type envOption func(*envConfig)

type envConfig struct {
	shipping usecase.ShippingPolicy
	policy   usecase.TopUpPolicy
	logOut   io.Writer
}

func withShipping(p usecase.ShippingPolicy) envOption {
	return func(c *envConfig) { c.shipping = p }
}

func withLogOutput(w io.Writer) envOption {
	return func(c *envConfig) { c.logOut = w }
}

func withTopUpPolicy(fn func(p *usecase.TopUpPolicy)) envOption {
	return func(c *envConfig) { fn(&c.policy) }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	cfg := envConfig{
		policy: usecase.TopUpPolicy{
			Min:        100,
			Max:        1_000_000,
			Currency:   "RUB",
			ReturnURL:  "https://shop.example.test/balance",
			RateLimit:  100,
			RateWindow: time.Minute,
		},
	}
	for _, o := range opts {
		o(&cfg)
	}

	db := newMemDB()
	tm := NewMockTxManager(db)
	logger := newTestLogger()
	if cfg.logOut != nil {
		l := zerolog.New(cfg.logOut)
		logger = &l
	}

	users := &memUserRepo{db: db}
	history := &memHistoryRepo{db: db}
	products := &memProductRepo{db: db}
	carts := &memCartRepo{db: db}

	env := &testEnv{
		db:      db,
		tm:      tm,
		gateway: &MockPaymentGateway{},
		locker:  NewMockLocker(),
		limiter: &MockRateLimiter{},
	}
	ledger := usecase.NewLedgerUseCase(users, history, tm, "RUB", logger)
	env.ledger = ledger
	env.carts = usecase.NewCartUseCase(carts, products, tm, logger)
	env.orders = usecase.NewOrderUseCase(&memOrderRepo{db: db}, carts, products, users, ledger, tm, cfg.shipping, "RUB", logger)
	env.subs = usecase.NewSubscriptionUseCase(&memPlanRepo{db: db}, &memSubRepo{db: db}, users, ledger, tm, logger)
	env.users = usecase.NewUserUseCase(users, tm, logger)
	env.plans = usecase.NewPlanUseCase(&memPlanRepo{db: db})
	env.payments = usecase.NewPaymentUseCase(&memPaymentRepo{db: db}, ledger, tm, env.gateway, env.locker, env.limiter, cfg.policy, logger)
	return env
}

// cartWith fills a fresh cart for userID with qty units of productID.
func (e *testEnv) cartWith(t *testing.T, userID, productID string, qty int) string {
	t.Helper()
	c, err := e.carts.AddItem(context.Background(), "", userID, usecase.AddItemInput{ProductID: productID, Quantity: qty})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	return c.ID
}

// conserved checks that the balance equals the sum of the user's history.
func (e *testEnv) conserved(t *testing.T, userID string, initial int64) {
	t.Helper()
	sum := initial
	for _, r := range e.db.rows(userID) {
		if r.Type.IsDebit() {
			sum -= r.Amount
		} else {
			sum += r.Amount
		}
	}
	if got := e.db.balance(userID); got != sum {
		t.Errorf("balance %d does not match history sum %d", got, sum)
	}
}
