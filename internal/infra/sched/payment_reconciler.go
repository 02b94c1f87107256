package sched

import (
	"context"
	"errors"
	"sync"
	"time"

	"comics-commerce/internal/domain/model"
	"comics-commerce/internal/domain/ports/repository"
	"comics-commerce/internal/infra/worker"
	"comics-commerce/internal/usecase"

	"github.com/rs/zerolog"
)

const reconcileBatch = 200

// PaymentReconciler periodically picks up payments that stayed pending longer
// than staleAfter and asks the gateway for their state. It covers lost
// webhooks and creations that died between the local insert and the gateway call.
type PaymentReconciler struct {
	uc         usecase.PaymentUseCase
	payments   repository.PaymentRepository
	pool       *worker.Pool
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending payment must be to retry
	log        *zerolog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewPaymentReconciler(uc usecase.PaymentUseCase, payments repository.PaymentRepository, pool *worker.Pool, interval, staleAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	l := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{
		uc:         uc,
		payments:   payments,
		pool:       pool,
		interval:   interval,
		staleAfter: staleAfter,
		log:        &l,
		inflight:   map[string]struct{}{},
	}
}

func (w *PaymentReconciler) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Dur("stale_after", w.staleAfter).Msg("Starting payment reconciler")
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping payment reconciler")
			return ctx.Err()
		case <-t.C:
			w.tick(ctx)
		}
	}
}

// tick returns how many payments were handed to the pool.
func (w *PaymentReconciler) tick(ctx context.Context) int {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.payments.ListPendingOlderThan(ctx, repository.NoTX, cutoff, reconcileBatch)
	if err != nil {
		w.log.Error().Err(err).Msg("list pending payments")
		return 0
	}
	submitted := 0
	for _, p := range pending {
		if !w.claim(p.ID) {
			continue
		}
		p := p
		err := w.pool.Submit(func(ctx context.Context) error {
			defer w.release(p.ID)
			return w.reconcile(ctx, p)
		})
		if err != nil {
			w.release(p.ID)
			if errors.Is(err, worker.ErrQueueFull) {
				w.log.Warn().Int("left", len(pending)-submitted).Msg("worker queue full, rest deferred to next scan")
				break
			}
			w.log.Error().Err(err).Str("payment_id", p.ID).Msg("submit reconcile")
			continue
		}
		submitted++
	}
	return submitted
}

func (w *PaymentReconciler) reconcile(ctx context.Context, p *model.Payment) error {
	// Rotate the payment behind the ones not tried yet, whatever the outcome.
	defer func() {
		if err := w.payments.TouchPending(ctx, repository.NoTX, p.ID); err != nil {
			w.log.Warn().Err(err).Str("payment_id", p.ID).Msg("touch pending payment")
		}
	}()
	if err := w.uc.Reconcile(ctx, p); err != nil {
		w.log.Warn().Err(err).Str("payment_id", p.ID).Msg("reconcile failed")
		return err
	}
	w.log.Debug().Str("payment_id", p.ID).Msg("payment reconciled")
	return nil
}

func (w *PaymentReconciler) claim(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.inflight[id]; busy {
		return false
	}
	w.inflight[id] = struct{}{}
	return true
}

func (w *PaymentReconciler) release(id string) {
	w.mu.Lock()
	delete(w.inflight, id)
	w.mu.Unlock()
}
