//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"comics-commerce/internal/domain"
	"comics-commerce/internal/domain/model"
)

func TestLedgerUseCase_Debit(t *testing.T) {
	ctx := context.Background()

	t.Run("should debit and append one history row", func(t *testing.T) {
		env := newTestEnv(t)
		env.db.addUser("u1", 1000)

		bal, err := env.ledger.Debit(ctx, "u1", 300, model.TransactionWithdrawal, "manual")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if bal != 700 {
			t.Errorf("expected balance 700, got %d", bal)
		}
		rows := env.db.rows("u1")
		if len(rows) != 1 || rows[0].Amount != 300 || rows[0].BalanceAfter != 700 || rows[0].Type != model.TransactionWithdrawal {
			t.Errorf("unexpected history: %+v", rows)
		}
		env.conserved(t, "u1", 1000)
	})

	t.Run("should report the shortfall and change nothing", func(t *testing.T) {
		env := newTestEnv(t)
		env.db.addUser("u1", 1000)

		_, err := env.ledger.Debit(ctx, "u1", 1200, model.TransactionPurchase, "too much")
		var insufficient *domain.InsufficientFundsError
		if !errors.As(err, &insufficient) {
			t.Fatalf("expected InsufficientFundsError, got %v", err)
		}
		if !errors.Is(err, domain.ErrInsufficientFunds) {
			t.Error("expected errors.Is to match ErrInsufficientFunds")
		}
		if insufficient.Required != 1200 || insufficient.Current != 1000 || insufficient.Shortfall() != 200 {
			t.Errorf("unexpected details: %+v", insufficient)
		}
		if env.db.balance("u1") != 1000 {
			t.Errorf("balance changed to %d", env.db.balance("u1"))
		}
		if len(env.db.rows("u1")) != 0 {
			t.Error("expected no history rows")
		}
	})

	t.Run("should reject a credit type", func(t *testing.T) {
		env := newTestEnv(t)
		env.db.addUser("u1", 1000)
		if _, err := env.ledger.Debit(ctx, "u1", 10, model.TransactionDeposit, ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("should reject non-positive amounts", func(t *testing.T) {
		env := newTestEnv(t)
		env.db.addUser("u1", 1000)
		if _, err := env.ledger.Debit(ctx, "u1", 0, model.TransactionPurchase, ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("should roll back the balance when the history write fails", func(t *testing.T) {
		env := newTestEnv(t)
		env.db.addUser("u1", 1000)
		env.db.failOn["history.Append"] = errors.New("disk full")

		if _, err := env.ledger.Debit(ctx, "u1", 300, model.TransactionPurchase, ""); err == nil {
			t.Fatal("expected an error")
		}
		if env.db.balance("u1") != 1000 {
			t.Errorf("expected balance to stay 1000, got %d", env.db.balance("u1"))
		}
		if env.tm.Rollbacks() != 1 {
			t.Errorf("expected one rollback, got %d", env.tm.Rollbacks())
		}
	})

	t.Run("should never go negative under concurrent debits", func(t *testing.T) {
		env := newTestEnv(t)
		env.db.addUser("u1", 1000)

		var ok, insufficient int32
		var wg sync.WaitGroup
		for i := 0; i < 25; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := env.ledger.Debit(ctx, "u1", 100, model.TransactionPurchase, "")
				switch {
				case err == nil:
					atomic.AddInt32(&ok, 1)
				case errors.Is(err, domain.ErrInsufficientFunds):
					atomic.AddInt32(&insufficient, 1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		if ok != 10 || insufficient != 15 {
			t.Errorf("expected 10 successes and 15 rejections, got %d/%d", ok, insufficient)
		}
		if env.db.balance("u1") != 0 {
			t.Errorf("expected balance 0, got %d", env.db.balance("u1"))
		}
		env.conserved(t, "u1", 1000)
	})
}

func TestLedgerUseCase_Credit(t *testing.T) {
	ctx := context.Background()

	t.Run("should credit a deposit", func(t *testing.T) {
		env := newTestEnv(t)
		env.db.addUser("u1", 50)
		bal, err := env.ledger.Credit(ctx, "u1", 500, model.TransactionDeposit, "bonus")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if bal != 550 {
			t.Errorf("expected 550, got %d", bal)
		}
		env.conserved(t, "u1", 50)
	})

	t.Run("should reject a debit type", func(t *testing.T) {
		env := newTestEnv(t)
		env.db.addUser("u1", 50)
		if _, err := env.ledger.Credit(ctx, "u1", 500, model.TransactionPurchase, ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("should fail for an unknown user", func(t *testing.T) {
		env := newTestEnv(t)
		if _, err := env.ledger.Credit(ctx, "ghost", 500, model.TransactionDeposit, ""); !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestLedgerUseCase_Overview(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.db.addUser("u1", 0)
	for i := 0; i < 5; i++ {
		if _, err := env.ledger.Credit(ctx, "u1", int64(100*(i+1)), model.TransactionDeposit, ""); err != nil {
			t.Fatalf("credit: %v", err)
		}
	}

	t.Run("should page history newest first", func(t *testing.T) {
		ov, err := env.ledger.Overview(ctx, "u1", 2, 0)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if ov.Balance != 1500 || ov.Total != 5 || ov.Currency != "RUB" {
			t.Errorf("unexpected overview: %+v", ov)
		}
		if len(ov.History) != 2 || ov.History[0].Amount != 500 {
			t.Errorf("expected newest first page of 2, got %+v", ov.History)
		}
	})

	t.Run("should clamp bad paging input", func(t *testing.T) {
		ov, err := env.ledger.Overview(ctx, "u1", -1, -5)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if len(ov.History) != 5 {
			t.Errorf("expected all 5 rows with the default page, got %d", len(ov.History))
		}
	})
}
