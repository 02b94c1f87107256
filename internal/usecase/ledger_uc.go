// File: internal/usecase/ledger_uc.go
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
	"comics-commerce/internal/infra/metrics"
)

// Compile-time check
var _ LedgerUseCase = (*ledgerUC)(nil)

type LedgerUseCase interface {
	// Debit subtracts amount from the user's balance and records one history row.
	Debit(ctx context.Context, userID string, amount int64, kind model.TransactionType, description string) (int64, error)
	// Credit adds amount to the user's balance and records one history row.
	Credit(ctx context.Context, userID string, amount int64, kind model.TransactionType, description string) (int64, error)
	// Overview returns the current balance with a page of history.
	Overview(ctx context.Context, userID string, limit, offset int) (*BalanceOverview, error)
}

type BalanceOverview struct {
	Balance  int64
	Currency string
	History  []*model.Transaction
	Total    int
}

// ledgerEntry describes one balance mutation together with its history row.
type ledgerEntry struct {
	UserID         string
	Amount         int64
	Type           model.TransactionType
	PaymentID      *string
	OrderID        *string
	SubscriptionID *string
	Description    string
}

type ledgerUC struct {
	users    repository.UserRepository
	history  repository.TransactionRepository
	tm       repository.TransactionManager
	currency string
	log      *zerolog.Logger
}

func NewLedgerUseCase(users repository.UserRepository, history repository.TransactionRepository, tm repository.TransactionManager, currency string, logger *zerolog.Logger) *ledgerUC {
	l := logger.With().Str("component", "LedgerUC").Logger()
	return &ledgerUC{users: users, history: history, tm: tm, currency: currency, log: &l}
}

func (l *ledgerUC) Debit(ctx context.Context, userID string, amount int64, kind model.TransactionType, description string) (int64, error) {
	if !kind.IsDebit() {
		return 0, fmt.Errorf("%s is not a debit: %w", kind, domain.ErrInvalidArgument)
	}
	var row *model.Transaction
	err := l.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		row, err = l.debitTx(ctx, tx, ledgerEntry{UserID: userID, Amount: amount, Type: kind, Description: description})
		return err
	})
	if err != nil {
		observeLedgerFailure(kind, err)
		return 0, err
	}
	observeLedgerCommit(row)
	return row.BalanceAfter, nil
}

func (l *ledgerUC) Credit(ctx context.Context, userID string, amount int64, kind model.TransactionType, description string) (int64, error) {
	if kind.IsDebit() {
		return 0, fmt.Errorf("%s is not a credit: %w", kind, domain.ErrInvalidArgument)
	}
	var row *model.Transaction
	err := l.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		row, err = l.creditTx(ctx, tx, ledgerEntry{UserID: userID, Amount: amount, Type: kind, Description: description})
		return err
	})
	if err != nil {
		observeLedgerFailure(kind, err)
		return 0, err
	}
	observeLedgerCommit(row)
	return row.BalanceAfter, nil
}

func (l *ledgerUC) Overview(ctx context.Context, userID string, limit, offset int) (*BalanceOverview, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	u, err := l.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	rows, err := l.history.ListByUser(ctx, repository.NoTX, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := l.history.CountByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	return &BalanceOverview{Balance: u.Balance, Currency: l.currency, History: rows, Total: total}, nil
}

// debitTx performs the guarded decrement and appends the history row on tx.
// The caller owns the transaction; any error must roll it back.
func (l *ledgerUC) debitTx(ctx context.Context, tx repository.Tx, e ledgerEntry) (*model.Transaction, error) {
	if e.UserID == "" || e.Amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	newBalance, ok, err := l.users.DebitBalance(ctx, tx, e.UserID, e.Amount)
	if err != nil {
		return nil, fmt.Errorf("debit balance: %w", err)
	}
	if !ok {
		u, err := l.users.FindByID(ctx, tx, e.UserID)
		if err != nil {
			return nil, err
		}
		return nil, &domain.InsufficientFundsError{Required: e.Amount, Current: u.Balance}
	}
	return l.appendTx(ctx, tx, e, newBalance)
}

// creditTx performs the increment and appends the history row on tx.
func (l *ledgerUC) creditTx(ctx context.Context, tx repository.Tx, e ledgerEntry) (*model.Transaction, error) {
	if e.UserID == "" || e.Amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	newBalance, err := l.users.CreditBalance(ctx, tx, e.UserID, e.Amount)
	if err != nil {
		return nil, fmt.Errorf("credit balance: %w", err)
	}
	return l.appendTx(ctx, tx, e, newBalance)
}

func (l *ledgerUC) appendTx(ctx context.Context, tx repository.Tx, e ledgerEntry, balanceAfter int64) (*model.Transaction, error) {
	row := &model.Transaction{
		ID:             uuid.NewString(),
		UserID:         e.UserID,
		Type:           e.Type,
		Amount:         e.Amount,
		Status:         model.TransactionCompleted,
		BalanceAfter:   balanceAfter,
		PaymentID:      e.PaymentID,
		OrderID:        e.OrderID,
		SubscriptionID: e.SubscriptionID,
		Description:    e.Description,
		CreatedAt:      time.Now(),
	}
	if err := l.history.Append(ctx, tx, row); err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}
	return row, nil
}

func observeLedgerCommit(row *model.Transaction) {
	if row == nil {
		return
	}
	metrics.IncLedgerOp(string(row.Type), "ok")
	metrics.AddLedgerAmount(string(row.Type), row.Amount)
}

func observeLedgerFailure(kind model.TransactionType, err error) {
	if errors.Is(err, domain.ErrInsufficientFunds) {
		metrics.IncLedgerOp(string(kind), "insufficient")
		return
	}
	metrics.IncLedgerOp(string(kind), "error")
}
