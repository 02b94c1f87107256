// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"comics-commerce/internal/domain"
	"comics-commerce/internal/domain/model"
	"comics-commerce/internal/domain/ports/repository"
	"comics-commerce/internal/infra/logging"
	"comics-commerce/internal/infra/metrics"
)

var _ SubscriptionUseCase = (*subscriptionUC)(nil)

type SubscriptionUseCase interface {
	Plans(ctx context.Context) ([]*model.SubscriptionPlan, error)
	// Subscribe pays for one period of the plan from the balance.
	Subscribe(ctx context.Context, userID, planID string) (*model.UserSubscription, error)
	Current(ctx context.Context, userID string) (*model.UserSubscription, error)
	// FinishExpired expires finished periods and clears the user flag; returns how many.
	FinishExpired(ctx context.Context) (int, error)
}

type subscriptionUC struct {
	plans  repository.SubscriptionPlanRepository
	subs   repository.SubscriptionRepository
	users  repository.UserRepository
	ledger *ledgerUC
	tm     repository.TransactionManager
	now    func() time.Time
	log    *zerolog.Logger
}

func NewSubscriptionUseCase(
	plans repository.SubscriptionPlanRepository,
	subs repository.SubscriptionRepository,
	users repository.UserRepository,
	ledger *ledgerUC,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *subscriptionUC {
	l := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{plans: plans, subs: subs, users: users, ledger: ledger, tm: tm, now: time.Now, log: &l}
}

func (uc *subscriptionUC) Plans(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	return uc.plans.ListActive(ctx, repository.NoTX)
}

// Subscribe rules:
//   - plan must exist and be active
//   - only one active subscription per user
//   - balance is debited by the plan price in the same transaction that creates
//     the subscription, writes the SUBSCRIPTION row and sets the user flags
func (uc *subscriptionUC) Subscribe(ctx context.Context, userID, planID string) (*model.UserSubscription, error) {
	log := logging.With(ctx, uc.log)

	plan, err := uc.plans.FindByID(ctx, repository.NoTX, planID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, err
	}
	if !plan.Active {
		return nil, domain.ErrPlanNotFound
	}

	var sub *model.UserSubscription
	var row *model.Transaction
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		// The row lock serialises concurrent subscribe calls for this user.
		user, err := uc.users.LockByID(ctx, tx, userID)
		if err != nil {
			return err
		}
		now := uc.now()

		// A period that ended before the expiry worker caught up still holds
		// the one-active-row slot.
		if _, err := uc.subs.ExpireLapsedByUser(ctx, tx, userID, now); err != nil {
			return err
		}
		active, err := uc.subs.FindActiveByUser(ctx, tx, userID, now)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if active != nil {
			return domain.ErrAlreadySubscribed
		}
		if user.Balance < plan.Price {
			return &domain.InsufficientFundsError{Required: plan.Price, Current: user.Balance}
		}

		s, err := model.NewUserSubscription(uuid.NewString(), userID, plan, now)
		if err != nil {
			return err
		}
		if err := uc.subs.Save(ctx, tx, s); err != nil {
			return fmt.Errorf("save subscription: %w", err)
		}
		row, err = uc.ledger.debitTx(ctx, tx, ledgerEntry{
			UserID:         userID,
			Amount:         plan.Price,
			Type:           model.TransactionSubscription,
			SubscriptionID: &s.ID,
			Description:    "subscription " + plan.Name,
		})
		if err != nil {
			return err
		}
		if err := uc.users.SetSubscription(ctx, tx, userID, true, &s.StartAt, &s.EndAt); err != nil {
			return fmt.Errorf("set subscription flag: %w", err)
		}
		sub = s
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			metrics.IncLedgerOp(string(model.TransactionSubscription), "insufficient")
		}
		return nil, err
	}

	observeLedgerCommit(row)
	metrics.IncSubscriptionCreated(plan.ID)
	log.Info().Str("subscription_id", sub.ID).Str("plan_id", plan.ID).Time("end_at", sub.EndAt).Msg("subscription created")
	return sub, nil
}

func (uc *subscriptionUC) Current(ctx context.Context, userID string) (*model.UserSubscription, error) {
	return uc.subs.FindActiveByUser(ctx, repository.NoTX, userID, uc.now())
}

func (uc *subscriptionUC) FinishExpired(ctx context.Context) (int, error) {
	expired, err := uc.subs.ListExpired(ctx, repository.NoTX, uc.now(), 500)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range expired {
		err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			ok, err := uc.subs.MarkExpired(ctx, tx, s.ID)
			if err != nil || !ok {
				return err
			}
			n++
			if _, err := uc.subs.FindActiveByUser(ctx, tx, s.UserID, uc.now()); err == nil {
				return nil
			} else if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			return uc.users.SetSubscription(ctx, tx, s.UserID, false, nil, nil)
		})
		if err != nil {
			uc.log.Error().Err(err).Str("subscription_id", s.ID).Msg("failed to expire subscription")
			return n, err
		}
	}
	return n, nil
}
