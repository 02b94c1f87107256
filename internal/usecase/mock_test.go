//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"comics-commerce/internal/domain"
	"comics-commerce/internal/domain/model"
	"comics-commerce/internal/domain/ports/adapter"
	"comics-commerce/internal/domain/ports/repository"
)

// memDB is a tiny in-memory store shared by all mock repositories so that a
// MockTxManager can snapshot and roll back every table at once.
type memDB struct {
	mu   sync.Mutex // guards the tables
	txMu sync.Mutex // serialises transactions

	users    map[string]*model.User
	history  []*model.Transaction
	payments map[string]*model.Payment
	products map[string]*model.Product
	variants map[string]*model.ProductVariant // key: productID/variantID
	carts    map[string]*model.Cart
	orders   map[string]*model.Order
	plans    map[string]*model.SubscriptionPlan
	subs     map[string]*model.UserSubscription

	// failOn injects an error into the named operation, e.g. "history.Append".
	failOn map[string]error
}

type memTables struct {
	users    map[string]*model.User
	history  []*model.Transaction
	payments map[string]*model.Payment
	products map[string]*model.Product
	variants map[string]*model.ProductVariant
	carts    map[string]*model.Cart
	orders   map[string]*model.Order
	plans    map[string]*model.SubscriptionPlan
	subs     map[string]*model.UserSubscription
}

func newMemDB() *memDB {
	return &memDB{
		users:    map[string]*model.User{},
		payments: map[string]*model.Payment{},
		products: map[string]*model.Product{},
		variants: map[string]*model.ProductVariant{},
		carts:    map[string]*model.Cart{},
		orders:   map[string]*model.Order{},
		plans:    map[string]*model.SubscriptionPlan{},
		subs:     map[string]*model.UserSubscription{},
		failOn:   map[string]error{},
	}
}

func (db *memDB) fail(op string) error {
	return db.failOn[op]
}

func (db *memDB) snapshot() memTables {
	db.mu.Lock()
	defer db.mu.Unlock()
	t := memTables{
		users:    map[string]*model.User{},
		payments: map[string]*model.Payment{},
		products: map[string]*model.Product{},
		variants: map[string]*model.ProductVariant{},
		carts:    map[string]*model.Cart{},
		orders:   map[string]*model.Order{},
		plans:    map[string]*model.SubscriptionPlan{},
		subs:     map[string]*model.UserSubscription{},
	}
	for k, v := range db.users {
		cp := *v
		t.users[k] = &cp
	}
	for _, v := range db.history {
		cp := *v
		t.history = append(t.history, &cp)
	}
	for k, v := range db.payments {
		t.payments[k] = copyPayment(v)
	}
	for k, v := range db.products {
		cp := *v
		t.products[k] = &cp
	}
	for k, v := range db.variants {
		cp := *v
		t.variants[k] = &cp
	}
	for k, v := range db.carts {
		t.carts[k] = copyCart(v)
	}
	for k, v := range db.orders {
		cp := *v
		t.orders[k] = &cp
	}
	for k, v := range db.plans {
		cp := *v
		t.plans[k] = &cp
	}
	for k, v := range db.subs {
		cp := *v
		t.subs[k] = &cp
	}
	return t
}

func (db *memDB) restore(t memTables) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users = t.users
	db.history = t.history
	db.payments = t.payments
	db.products = t.products
	db.variants = t.variants
	db.carts = t.carts
	db.orders = t.orders
	db.plans = t.plans
	db.subs = t.subs
}

func copyPayment(p *model.Payment) *model.Payment {
	cp := *p
	cp.Meta = make(map[string]string, len(p.Meta))
	for k, v := range p.Meta {
		cp.Meta[k] = v
	}
	return &cp
}

func copyCart(c *model.Cart) *model.Cart {
	cp := *c
	cp.Items = append([]model.CartItem(nil), c.Items...)
	return &cp
}

// ---- seed helpers ----

func (db *memDB) addUser(id string, balance int64) {
	db.mu.Lock()
	defer db.mu.Unlock()
	now := time.Now()
	db.users[id] = &model.User{ID: id, Email: id + "@example.test", Balance: balance, CreatedAt: now, UpdatedAt: now}
}

func (db *memDB) addProduct(id string, price int64, stock int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.products[id] = &model.Product{ID: id, Title: "Comic " + id, Price: price, Stock: stock, Active: true, CreatedAt: time.Now()}
}

func (db *memDB) addVariant(productID, variantID string, price *int64, stock int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.variants[productID+"/"+variantID] = &model.ProductVariant{ID: variantID, ProductID: productID, Name: variantID, Price: price, Stock: stock}
}

func (db *memDB) addPlan(id string, days int, price int64, active bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.plans[id] = &model.SubscriptionPlan{ID: id, Name: "Plan " + id, DurationDays: days, Price: price, Active: active, CreatedAt: time.Now()}
}

func (db *memDB) balance(userID string) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.users[userID].Balance
}

func (db *memDB) stock(productID string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.products[productID].Stock
}

func (db *memDB) rows(userID string) []*model.Transaction {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []*model.Transaction
	for _, t := range db.history {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out
}

func (db *memDB) orderCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.orders)
}

func (db *memDB) payment(id string) *model.Payment {
	db.mu.Lock()
	defer db.mu.Unlock()
	p, ok := db.payments[id]
	if !ok {
		return nil
	}
	return copyPayment(p)
}

// ---- MockTxManager ----

type memTx struct{}

type MockTxManager struct {
	db        *memDB
	mu        sync.Mutex
	commits   int
	rollbacks int
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager(db *memDB) *MockTxManager {
	return &MockTxManager{db: db}
}

// WithTx runs fn with exclusive access and restores every table when fn fails.
func (m *MockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.db.txMu.Lock()
	defer m.db.txMu.Unlock()

	snap := m.db.snapshot()
	if err := fn(ctx, &memTx{}); err != nil {
		m.db.restore(snap)
		m.mu.Lock()
		m.rollbacks++
		m.mu.Unlock()
		return err
	}
	m.mu.Lock()
	m.commits++
	m.mu.Unlock()
	return nil
}

func (m *MockTxManager) Rollbacks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rollbacks
}

// ---- users ----

type memUserRepo struct{ db *memDB }

var _ repository.UserRepository = (*memUserRepo)(nil)

func (r *memUserRepo) Save(_ context.Context, _ repository.Tx, u *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *u
	if old, ok := r.db.users[u.ID]; ok {
		cp.Balance = old.Balance
	}
	r.db.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) LockByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return r.FindByID(ctx, tx, id)
}

func (r *memUserRepo) DebitBalance(_ context.Context, _ repository.Tx, id string, amount int64) (int64, bool, error) {
	if err := r.db.fail("users.DebitBalance"); err != nil {
		return 0, false, err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok || u.Balance < amount {
		return 0, false, nil
	}
	u.Balance -= amount
	u.UpdatedAt = time.Now()
	return u.Balance, true, nil
}

func (r *memUserRepo) CreditBalance(_ context.Context, _ repository.Tx, id string, amount int64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	u.Balance += amount
	u.UpdatedAt = time.Now()
	return u.Balance, nil
}

func (r *memUserRepo) SetSubscription(_ context.Context, _ repository.Tx, id string, active bool, start, end *time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.IsSubscribed = active
	u.SubscriptionStart = start
	u.SubscriptionEnd = end
	return nil
}

// ---- history ----

type memHistoryRepo struct{ db *memDB }

var _ repository.TransactionRepository = (*memHistoryRepo)(nil)

func (r *memHistoryRepo) Append(_ context.Context, _ repository.Tx, t *model.Transaction) error {
	if err := r.db.fail("history.Append"); err != nil {
		return err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if t.PaymentID != nil {
		for _, existing := range r.db.history {
			if existing.PaymentID != nil && *existing.PaymentID == *t.PaymentID {
				return domain.ErrAlreadyExists
			}
		}
	}
	cp := *t
	r.db.history = append(r.db.history, &cp)
	return nil
}

func (r *memHistoryRepo) ListByUser(_ context.Context, _ repository.Tx, userID string, limit, offset int) ([]*model.Transaction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var all []*model.Transaction
	for i := len(r.db.history) - 1; i >= 0; i-- {
		if t := r.db.history[i]; t.UserID == userID {
			cp := *t
			all = append(all, &cp)
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *memHistoryRepo) CountByUser(_ context.Context, _ repository.Tx, userID string) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for _, t := range r.db.history {
		if t.UserID == userID {
			n++
		}
	}
	return n, nil
}

// ---- payments ----

type memPaymentRepo struct{ db *memDB }

var _ repository.PaymentRepository = (*memPaymentRepo)(nil)

func (r *memPaymentRepo) Save(_ context.Context, _ repository.Tx, p *model.Payment) error {
	if err := r.db.fail("payments.Save"); err != nil {
		return err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.payments {
		if existing.UserID == p.UserID && existing.IdempotencyKey == p.IdempotencyKey {
			return domain.ErrAlreadyExists
		}
	}
	r.db.payments[p.ID] = copyPayment(p)
	return nil
}

func (r *memPaymentRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyPayment(p), nil
}

func (r *memPaymentRepo) FindByGatewayID(_ context.Context, _ repository.Tx, gatewayID string) (*model.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.payments {
		if p.GatewayPaymentID != nil && *p.GatewayPaymentID == gatewayID {
			return copyPayment(p), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memPaymentRepo) FindByIdempotencyKey(_ context.Context, _ repository.Tx, userID, key string) (*model.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.payments {
		if p.UserID == userID && p.IdempotencyKey == key {
			return copyPayment(p), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memPaymentRepo) SetGatewayData(_ context.Context, _ repository.Tx, id, gatewayID, confirmationURL string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[id]
	if !ok {
		return domain.ErrNotFound
	}
	gid := gatewayID
	p.GatewayPaymentID = &gid
	p.ConfirmationURL = confirmationURL
	p.UpdatedAt = time.Now()
	return nil
}

func (r *memPaymentRepo) TransitionFromPending(_ context.Context, _ repository.Tx, id string, to model.PaymentStatus, method model.PaymentMethod, paidAt *time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = to
	if method != "" {
		p.Method = method
	}
	p.PaidAt = paidAt
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *memPaymentRepo) ListPendingOlderThan(_ context.Context, _ repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.db.payments {
		if p.Status == model.PaymentStatusPending && p.UpdatedAt.Before(olderThan) {
			out = append(out, copyPayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memPaymentRepo) TouchPending(_ context.Context, _ repository.Tx, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p, ok := r.db.payments[id]; ok && p.Status == model.PaymentStatusPending {
		p.UpdatedAt = time.Now()
	}
	return nil
}

// ---- products ----

type memProductRepo struct{ db *memDB }

var _ repository.ProductRepository = (*memProductRepo)(nil)

func (r *memProductRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memProductRepo) FindVariant(_ context.Context, _ repository.Tx, productID, variantID string) (*model.ProductVariant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	v, ok := r.db.variants[productID+"/"+variantID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *memProductRepo) DecrementStock(_ context.Context, _ repository.Tx, productID string, variantID *string, qty int) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.products[productID]
	if !ok {
		return false, nil
	}
	if variantID != nil {
		v, ok := r.db.variants[productID+"/"+*variantID]
		if !ok || v.Stock < qty {
			return false, nil
		}
		v.Stock -= qty
		p.SalesCount += qty
		return true, nil
	}
	if p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	p.SalesCount += qty
	return true, nil
}

// ---- carts ----

type memCartRepo struct{ db *memDB }

var _ repository.CartRepository = (*memCartRepo)(nil)

func (r *memCartRepo) Create(_ context.Context, _ repository.Tx, c *model.Cart) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.carts[c.ID] = copyCart(c)
	return nil
}

func (r *memCartRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Cart, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.carts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyCart(c), nil
}

func (r *memCartRepo) AddItem(_ context.Context, _ repository.Tx, item *model.CartItem) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.carts[item.CartID]
	if !ok {
		return domain.ErrNotFound
	}
	c.Items = append(c.Items, *item)
	return nil
}

func (r *memCartRepo) UpdateItemQuantity(_ context.Context, _ repository.Tx, cartID, itemID string, qty int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.carts[cartID]
	if !ok {
		return domain.ErrNotFound
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items[i].Quantity = qty
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memCartRepo) RemoveItem(_ context.Context, _ repository.Tx, cartID, itemID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.carts[cartID]
	if !ok {
		return domain.ErrNotFound
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memCartRepo) Clear(_ context.Context, _ repository.Tx, cartID string) error {
	if err := r.db.fail("carts.Clear"); err != nil {
		return err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.carts[cartID]
	if !ok {
		return domain.ErrNotFound
	}
	c.Items = nil
	return nil
}

// ---- orders ----

type memOrderRepo struct{ db *memDB }

var _ repository.OrderRepository = (*memOrderRepo)(nil)

func (r *memOrderRepo) Create(_ context.Context, _ repository.Tx, o *model.Order) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *o
	r.db.orders[o.ID] = &cp
	return nil
}

func (r *memOrderRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

// ---- plans & subscriptions ----

type memPlanRepo struct{ db *memDB }

var _ repository.SubscriptionPlanRepository = (*memPlanRepo)(nil)

func (r *memPlanRepo) Save(_ context.Context, _ repository.Tx, p *model.SubscriptionPlan) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *p
	r.db.plans[p.ID] = &cp
	return nil
}

func (r *memPlanRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.SubscriptionPlan, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPlanRepo) ListActive(_ context.Context, _ repository.Tx) ([]*model.SubscriptionPlan, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.SubscriptionPlan
	for _, p := range r.db.plans {
		if p.Active {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

type memSubRepo struct{ db *memDB }

var _ repository.SubscriptionRepository = (*memSubRepo)(nil)

func (r *memSubRepo) Save(_ context.Context, _ repository.Tx, s *model.UserSubscription) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	// ux_user_subscriptions_active
	if s.Status == model.SubscriptionStatusActive {
		for _, other := range r.db.subs {
			if other.ID != s.ID && other.UserID == s.UserID && other.Status == model.SubscriptionStatusActive {
				return domain.ErrAlreadySubscribed
			}
		}
	}
	cp := *s
	r.db.subs[s.ID] = &cp
	return nil
}

func (r *memSubRepo) FindActiveByUser(_ context.Context, _ repository.Tx, userID string, at time.Time) (*model.UserSubscription, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.subs {
		if s.UserID == userID && s.IsActiveAt(at) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memSubRepo) ListExpired(_ context.Context, _ repository.Tx, at time.Time, limit int) ([]*model.UserSubscription, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.UserSubscription
	for _, s := range r.db.subs {
		if s.Status == model.SubscriptionStatusActive && !at.Before(s.EndAt) {
			cp := *s
			out = append(out, &cp)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memSubRepo) MarkExpired(_ context.Context, _ repository.Tx, id string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.subs[id]
	if !ok || s.Status != model.SubscriptionStatusActive {
		return false, nil
	}
	s.Status = model.SubscriptionStatusExpired
	return true, nil
}

func (r *memSubRepo) ExpireLapsedByUser(_ context.Context, _ repository.Tx, userID string, at time.Time) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for _, s := range r.db.subs {
		if s.UserID == userID && s.Status == model.SubscriptionStatusActive && !at.Before(s.EndAt) {
			s.Status = model.SubscriptionStatusExpired
			n++
		}
	}
	return n, nil
}

// ---- gateway ----

// MockPaymentGateway records calls; by default CreatePayment answers with a
// pending payment whose id derives from the idempotency key.
type MockPaymentGateway struct {
	mu         sync.Mutex
	CreateFunc func(ctx context.Context, req adapter.CreatePaymentRequest) (*adapter.GatewayPayment, error)
	GetFunc    func(ctx context.Context, gatewayID string) (*adapter.GatewayPayment, error)
	Creates    []adapter.CreatePaymentRequest
	Gets       []string
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (g *MockPaymentGateway) Name() string { return "mockpay" }

func (g *MockPaymentGateway) CreatePayment(ctx context.Context, req adapter.CreatePaymentRequest) (*adapter.GatewayPayment, error) {
	g.mu.Lock()
	g.Creates = append(g.Creates, req)
	g.mu.Unlock()
	if g.CreateFunc != nil {
		return g.CreateFunc(ctx, req)
	}
	id := "gw-" + req.IdempotencyKey
	return &adapter.GatewayPayment{
		ID:              id,
		Status:          adapter.GatewayStatusPending,
		Amount:          req.Amount,
		Currency:        req.Currency,
		ConfirmationURL: "https://pay.example.test/confirm/" + id,
		Metadata:        req.Metadata,
	}, nil
}

func (g *MockPaymentGateway) GetPayment(ctx context.Context, gatewayID string) (*adapter.GatewayPayment, error) {
	g.mu.Lock()
	g.Gets = append(g.Gets, gatewayID)
	g.mu.Unlock()
	if g.GetFunc != nil {
		return g.GetFunc(ctx, gatewayID)
	}
	return nil, fmt.Errorf("no GetFunc: %w", domain.ErrGatewayUnavailable)
}

func (g *MockPaymentGateway) CreateCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Creates)
}

// ---- In-memory Locker ----

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	Err   error // returned by TryLock when set
	Locks int
}

var _ adapter.Locker = (*MockLocker)(nil)

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}}
}

func (l *MockLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return "", l.Err
	}
	if _, ok := l.held[key]; ok {
		return "", domain.ErrLockNotAcquired
	}
	token := uuid.NewString()
	l.held[key] = token
	l.Locks++
	return token, nil
}

func (l *MockLocker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] != token {
		return errors.New("token mismatch")
	}
	delete(l.held, key)
	return nil
}

func (l *MockLocker) hold(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[key] = "someone-else"
}

// ---- rate limiter ----

type MockRateLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	Err    error
}

var _ adapter.RateLimiter = (*MockRateLimiter)(nil)

func (r *MockRateLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return false, r.Err
	}
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[key]++
	return r.counts[key] <= limit, nil
}

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
