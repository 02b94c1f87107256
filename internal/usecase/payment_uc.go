// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"comics-commerce/internal/domain"
	"comics-commerce/internal/domain/model"
	"comics-commerce/internal/domain/ports/adapter"
	"comics-commerce/internal/domain/ports/repository"
	"comics-commerce/internal/infra/logging"
	"comics-commerce/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

const maxIdempotencyKeyLength = 64

// WebhookResult tells the transport layer what happened to a notification.
// Every result is acknowledged to the gateway; only a returned error asks for
// a redelivery.
type WebhookResult string

const (
	WebhookApplied          WebhookResult = "applied"
	WebhookAlreadyProcessed WebhookResult = "already_processed"
	WebhookIgnored          WebhookResult = "ignored"
	WebhookUnknownPayment   WebhookResult = "unknown_payment"
	WebhookAmountMismatch   WebhookResult = "amount_mismatch"
)

type PaymentUseCase interface {
	// CreateTopUp registers a pending payment and creates it at the gateway.
	// Repeating a call with the same idempotency key returns the same payment.
	CreateTopUp(ctx context.Context, userID string, amount int64, idempotencyKey, returnURL string) (*model.Payment, error)
	// HandleWebhook applies a gateway notification at most once.
	HandleWebhook(ctx context.Context, n adapter.PaymentNotification) (WebhookResult, error)
	// Status returns a payment owned by userID.
	Status(ctx context.Context, userID, paymentID string) (*model.Payment, error)
	// Sync queries the gateway for a non-terminal payment and applies the outcome.
	// paymentID may be the local id or the gateway id.
	Sync(ctx context.Context, userID, paymentID string) (*model.Payment, error)
	// Reconcile is Sync without the ownership check, for background workers.
	Reconcile(ctx context.Context, p *model.Payment) error
}

// TopUpPolicy carries the limits applied to top-up creation.
type TopUpPolicy struct {
	Min       int64
	Max       int64
	Currency  string
	ReturnURL string
	// RateLimit is the number of top-ups per user per RateWindow; 0 disables it.
	RateLimit  int
	RateWindow time.Duration
	LockTTL    time.Duration
	// Pending payments that never reached the gateway are failed after this.
	CreationDeadline time.Duration
	// VerifyWebhooks re-reads the payment from the gateway before applying a notification.
	VerifyWebhooks bool
}

type paymentUC struct {
	payments repository.PaymentRepository
	ledger   *ledgerUC
	tm       repository.TransactionManager
	gateway  adapter.PaymentGateway
	locker   adapter.Locker      // optional
	limiter  adapter.RateLimiter // optional
	policy   TopUpPolicy
	now      func() time.Time
	log      *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	ledger *ledgerUC,
	tm repository.TransactionManager,
	gateway adapter.PaymentGateway,
	locker adapter.Locker,
	limiter adapter.RateLimiter,
	policy TopUpPolicy,
	logger *zerolog.Logger,
) *paymentUC {
	if policy.LockTTL <= 0 {
		policy.LockTTL = 30 * time.Second
	}
	if policy.RateWindow <= 0 {
		policy.RateWindow = time.Minute
	}
	if policy.CreationDeadline <= 0 {
		policy.CreationDeadline = 24 * time.Hour
	}
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{
		payments: payments,
		ledger:   ledger,
		tm:       tm,
		gateway:  gateway,
		locker:   locker,
		limiter:  limiter,
		policy:   policy,
		now:      time.Now,
		log:      &l,
	}
}

func (u *paymentUC) CreateTopUp(ctx context.Context, userID string, amount int64, idempotencyKey, returnURL string) (*model.Payment, error) {
	log := logging.With(ctx, u.log)
	defer logging.TraceDuration(log, "PaymentUC.CreateTopUp")()

	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey == "" || len(idempotencyKey) > maxIdempotencyKeyLength {
		return nil, fmt.Errorf("idempotency key: %w", domain.ErrInvalidArgument)
	}
	if amount <= 0 || (u.policy.Min > 0 && amount < u.policy.Min) || (u.policy.Max > 0 && amount > u.policy.Max) {
		return nil, fmt.Errorf("amount %d outside [%d, %d]: %w", amount, u.policy.Min, u.policy.Max, domain.ErrInvalidArgument)
	}
	if returnURL == "" {
		returnURL = u.policy.ReturnURL
	}

	// A replay of an existing key is answered before any limit applies.
	if p, err := u.payments.FindByIdempotencyKey(ctx, repository.NoTX, userID, idempotencyKey); err == nil {
		return u.replay(ctx, p, amount, returnURL)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if err := u.checkRate(ctx, userID); err != nil {
		return nil, err
	}

	unlock, err := u.lock(ctx, "lock:topup:"+userID+":"+idempotencyKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := model.NewTopUpPayment(uuid.NewString(), userID, amount, u.policy.Currency, idempotencyKey, u.gateway.Name())
	if err != nil {
		return nil, err
	}
	p.Description = "Balance top-up"
	p.Meta["user_id"] = userID
	p.Meta["purpose"] = string(p.Purpose)
	p.Meta["payment_id"] = p.ID

	// The pending row exists before the gateway hears about it, so a crash in
	// between leaves something for the reconciler to resume.
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			existing, ferr := u.payments.FindByIdempotencyKey(ctx, repository.NoTX, userID, idempotencyKey)
			if ferr != nil {
				return nil, ferr
			}
			return u.replay(ctx, existing, amount, returnURL)
		}
		return nil, fmt.Errorf("save payment: %w", err)
	}
	metrics.IncPayment(string(model.PaymentStatusPending))
	log.Info().Str("payment_id", p.ID).Int64("amount", amount).Msg("top-up payment registered")

	return u.createAtGateway(ctx, p, returnURL)
}

// replay answers a repeated idempotency key with the stored payment, resuming
// gateway creation when the first attempt never got a gateway id.
func (u *paymentUC) replay(ctx context.Context, p *model.Payment, amount int64, returnURL string) (*model.Payment, error) {
	if p.Amount != amount {
		return nil, fmt.Errorf("idempotency key reused with a different amount: %w", domain.ErrAlreadyExists)
	}
	if p.Status == model.PaymentStatusPending && p.GatewayPaymentID == nil {
		return u.createAtGateway(ctx, p, returnURL)
	}
	return p, nil
}

func (u *paymentUC) createAtGateway(ctx context.Context, p *model.Payment, returnURL string) (*model.Payment, error) {
	log := logging.With(ctx, u.log)
	if returnURL == "" {
		returnURL = u.policy.ReturnURL
	}
	gp, err := u.gateway.CreatePayment(ctx, adapter.CreatePaymentRequest{
		Amount:         p.Amount,
		Currency:       p.Currency,
		Description:    p.Description,
		ReturnURL:      returnURL,
		IdempotencyKey: p.IdempotencyKey,
		Metadata:       p.Meta,
	})
	if err != nil {
		if errors.Is(err, domain.ErrGatewayRejected) {
			if ferr := u.fail(ctx, p, "create"); ferr != nil && !errors.Is(ferr, domain.ErrAlreadyProcessed) {
				log.Error().Err(ferr).Str("payment_id", p.ID).Msg("failed to mark rejected payment")
			}
			p.Status = model.PaymentStatusFailed
			log.Warn().Err(err).Str("payment_id", p.ID).Msg("gateway rejected payment")
			return nil, err
		}
		// Transient: the payment stays pending and the same key is safe to retry.
		log.Warn().Err(err).Str("payment_id", p.ID).Msg("gateway unavailable, payment left pending")
		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			err = fmt.Errorf("%v: %w", err, domain.ErrGatewayUnavailable)
		}
		return nil, err
	}

	if err := u.payments.SetGatewayData(ctx, repository.NoTX, p.ID, gp.ID, gp.ConfirmationURL); err != nil {
		return nil, fmt.Errorf("store gateway id: %w", err)
	}
	p.GatewayPaymentID = &gp.ID
	p.ConfirmationURL = gp.ConfirmationURL
	log.Info().Str("payment_id", p.ID).Str("gateway_id", logging.Redact(gp.ID, false)).Msg("payment created at gateway")

	// The gateway may answer a replayed key with an already final payment.
	if gp.Status == adapter.GatewayStatusSucceeded || gp.Status == adapter.GatewayStatusCanceled {
		if _, err := u.applyGatewayState(ctx, p, gp, "create"); err != nil && !errors.Is(err, domain.ErrAlreadyProcessed) {
			return nil, err
		}
		return u.payments.FindByID(ctx, repository.NoTX, p.ID)
	}
	return p, nil
}

func (u *paymentUC) HandleWebhook(ctx context.Context, n adapter.PaymentNotification) (WebhookResult, error) {
	log := logging.With(ctx, u.log).With().Str("event", string(n.Event)).Str("gateway_id", n.Payment.ID).Logger()

	if !n.Event.Valid() {
		return "", fmt.Errorf("event %q: %w", n.Event, domain.ErrInvalidArgument)
	}
	if n.Payment.ID == "" {
		return "", fmt.Errorf("notification without payment id: %w", domain.ErrInvalidArgument)
	}
	if n.Event == adapter.EventPaymentWaitingForCapture {
		// Payments are created with capture enabled; nothing to do until the final event.
		return WebhookIgnored, nil
	}

	p, err := u.locate(ctx, n.Payment)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			log.Warn().Msg("webhook for unknown payment")
			metrics.IncSettlement("webhook", "unknown")
			return WebhookUnknownPayment, nil
		}
		return "", err
	}

	gp := n.Payment
	gp.Status = statusForEvent(n.Event)
	if u.policy.VerifyWebhooks {
		fresh, err := u.gateway.GetPayment(ctx, n.Payment.ID)
		if err != nil {
			return "", fmt.Errorf("verify notification: %w", err)
		}
		gp = *fresh
	}

	res, err := u.applyGatewayState(ctx, p, &gp, "webhook")
	if errors.Is(err, domain.ErrAlreadyProcessed) {
		log.Info().Str("payment_id", p.ID).Msg("duplicate notification ignored")
		return WebhookAlreadyProcessed, nil
	}
	if err != nil {
		return "", err
	}
	return res, nil
}

func (u *paymentUC) Status(ctx context.Context, userID, paymentID string) (*model.Payment, error) {
	p, err := u.payments.FindByID(ctx, repository.NoTX, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	if p.UserID != userID {
		return nil, domain.ErrPaymentNotFound
	}
	return p, nil
}

func (u *paymentUC) Sync(ctx context.Context, userID, paymentID string) (*model.Payment, error) {
	p, err := u.payments.FindByID(ctx, repository.NoTX, paymentID)
	if errors.Is(err, domain.ErrNotFound) {
		p, err = u.payments.FindByGatewayID(ctx, repository.NoTX, paymentID)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	if p.UserID != userID {
		return nil, domain.ErrPaymentNotFound
	}
	if err := u.reconcile(ctx, p, "sync"); err != nil {
		return nil, err
	}
	return u.payments.FindByID(ctx, repository.NoTX, p.ID)
}

func (u *paymentUC) Reconcile(ctx context.Context, p *model.Payment) error {
	return u.reconcile(ctx, p, "reconciler")
}

func (u *paymentUC) reconcile(ctx context.Context, p *model.Payment, source string) error {
	if p.Status.IsTerminal() {
		return nil
	}
	if p.GatewayPaymentID == nil {
		if u.now().Sub(p.CreatedAt) > u.policy.CreationDeadline {
			err := u.fail(ctx, p, source)
			if errors.Is(err, domain.ErrAlreadyProcessed) {
				return nil
			}
			return err
		}
		_, err := u.createAtGateway(ctx, p, "")
		if errors.Is(err, domain.ErrGatewayRejected) {
			return nil
		}
		return err
	}

	gp, err := u.gateway.GetPayment(ctx, *p.GatewayPaymentID)
	if err != nil {
		return err
	}
	_, err = u.applyGatewayState(ctx, p, gp, source)
	if errors.Is(err, domain.ErrAlreadyProcessed) {
		return nil
	}
	return err
}

// applyGatewayState moves p according to the gateway's view. Non-final gateway
// states are left alone.
func (u *paymentUC) applyGatewayState(ctx context.Context, p *model.Payment, gp *adapter.GatewayPayment, source string) (WebhookResult, error) {
	switch gp.Status {
	case adapter.GatewayStatusSucceeded:
		if gp.Amount != p.Amount || !strings.EqualFold(gp.Currency, p.Currency) {
			metrics.IncSettlement(source, "mismatch")
			logging.With(ctx, u.log).Error().
				Str("payment_id", p.ID).
				Int64("expected", p.Amount).Str("expected_currency", p.Currency).
				Int64("got", gp.Amount).Str("got_currency", gp.Currency).
				Msg("gateway amount does not match the payment; not credited")
			return WebhookAmountMismatch, nil
		}
		method, err := model.ParsePaymentMethod(gp.Method)
		if err != nil {
			method = model.PaymentMethodUnknown
		}
		if err := u.settle(ctx, p, method, source); err != nil {
			return "", err
		}
		return WebhookApplied, nil
	case adapter.GatewayStatusCanceled:
		if err := u.fail(ctx, p, source); err != nil {
			return "", err
		}
		return WebhookApplied, nil
	default:
		return WebhookIgnored, nil
	}
}

// settle marks the payment succeeded and credits the ledger in one
// transaction. The pending-guarded transition is what makes the credit
// happen at most once; the unique payment reference on the history table
// backs it up.
func (u *paymentUC) settle(ctx context.Context, p *model.Payment, method model.PaymentMethod, source string) error {
	now := u.now()
	var row *model.Transaction
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		ok, err := u.payments.TransitionFromPending(ctx, tx, p.ID, model.PaymentStatusSucceeded, method, &now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAlreadyProcessed
		}
		row, err = u.ledger.creditTx(ctx, tx, ledgerEntry{
			UserID:      p.UserID,
			Amount:      p.Amount,
			Type:        model.TransactionDeposit,
			PaymentID:   &p.ID,
			Description: "top-up " + p.ID,
		})
		if errors.Is(err, domain.ErrAlreadyExists) {
			return domain.ErrAlreadyProcessed
		}
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyProcessed) {
			metrics.IncSettlement(source, "already_processed")
		} else {
			metrics.IncSettlement(source, "error")
		}
		return err
	}

	p.Status = model.PaymentStatusSucceeded
	p.Method = method
	p.PaidAt = &now
	observeLedgerCommit(row)
	metrics.IncSettlement(source, "applied")
	metrics.IncPayment(string(model.PaymentStatusSucceeded))
	metrics.AddPaymentRevenue(p.Currency, p.Amount)
	logging.With(ctx, u.log).Info().Str("payment_id", p.ID).Str("user_id", p.UserID).Int64("amount", p.Amount).
		Int64("balance_after", row.BalanceAfter).Str("source", source).Msg("payment settled")
	return nil
}

func (u *paymentUC) fail(ctx context.Context, p *model.Payment, source string) error {
	ok, err := u.payments.TransitionFromPending(ctx, repository.NoTX, p.ID, model.PaymentStatusFailed, p.Method, nil)
	if err != nil {
		metrics.IncSettlement(source, "error")
		return err
	}
	if !ok {
		metrics.IncSettlement(source, "already_processed")
		return domain.ErrAlreadyProcessed
	}
	p.Status = model.PaymentStatusFailed
	metrics.IncSettlement(source, "failed")
	metrics.IncPayment(string(model.PaymentStatusFailed))
	logging.With(ctx, u.log).Info().Str("payment_id", p.ID).Str("source", source).Msg("payment failed")
	return nil
}

// locate finds the local payment for a gateway object: by gateway id, then by
// the payment_id we put into the metadata at creation time.
func (u *paymentUC) locate(ctx context.Context, gp adapter.GatewayPayment) (*model.Payment, error) {
	p, err := u.payments.FindByGatewayID(ctx, repository.NoTX, gp.ID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	id := gp.Metadata["payment_id"]
	if id == "" {
		return nil, domain.ErrPaymentNotFound
	}
	p, err = u.payments.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	if p.GatewayPaymentID != nil && *p.GatewayPaymentID != gp.ID {
		return nil, domain.ErrPaymentNotFound
	}
	if p.GatewayPaymentID == nil {
		// Creation crashed before the gateway id was stored.
		if err := u.payments.SetGatewayData(ctx, repository.NoTX, p.ID, gp.ID, gp.ConfirmationURL); err != nil {
			return nil, err
		}
		p.GatewayPaymentID = &gp.ID
	}
	return p, nil
}

func (u *paymentUC) checkRate(ctx context.Context, userID string) error {
	if u.limiter == nil || u.policy.RateLimit <= 0 {
		return nil
	}
	ok, err := u.limiter.Allow(ctx, "rate_limit:topup:"+userID, u.policy.RateLimit, u.policy.RateWindow)
	if err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Msg("rate limiter unavailable, allowing request")
		return nil
	}
	if !ok {
		return domain.ErrRateLimited
	}
	return nil
}

// lock takes the creation lock. A held lock is reported to the caller; a
// broken Redis is not, because the unique index still guards duplicates.
func (u *paymentUC) lock(ctx context.Context, key string) (func(), error) {
	if u.locker == nil {
		return func() {}, nil
	}
	token, err := u.locker.TryLock(ctx, key, u.policy.LockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockNotAcquired) {
			return nil, err
		}
		logging.With(ctx, u.log).Warn().Err(err).Str("key", key).Msg("lock unavailable, continuing without it")
		return func() {}, nil
	}
	return func() {
		if err := u.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			logging.With(ctx, u.log).Warn().Err(err).Str("key", key).Msg("unlock failed")
		}
	}, nil
}

func statusForEvent(e adapter.PaymentEvent) adapter.GatewayStatus {
	switch e {
	case adapter.EventPaymentSucceeded:
		return adapter.GatewayStatusSucceeded
	case adapter.EventPaymentCanceled:
		return adapter.GatewayStatusCanceled
	case adapter.EventPaymentWaitingForCapture:
		return adapter.GatewayStatusWaitingForCapture
	}
	return adapter.GatewayStatusPending
}
