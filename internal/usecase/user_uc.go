package usecase

import (
	"context"
	"errors"
	"strings"

	"comics-commerce/internal/domain"
	"comics-commerce/internal/domain/model"
	"comics-commerce/internal/domain/ports/repository"
	"comics-commerce/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase provisions wallet owners for authenticated callers. Identity
// itself is issued elsewhere; this only makes sure a users row exists.
type UserUseCase interface {
	// EnsureUser returns the user, creating it with a zero balance on first sight.
	EnsureUser(ctx context.Context, id, email string) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
}

type userUC struct {
	users repository.UserRepository
	tm    repository.TransactionManager
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, tm repository.TransactionManager, logger *zerolog.Logger) *userUC {
	return &userUC{
		users: users,
		tm:    tm,
		log:   logger,
	}
}

func (u *userUC) EnsureUser(ctx context.Context, id, email string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.EnsureUser")()

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrUnauthenticated
	}

	// Fast path without a transaction: the row almost always exists.
	if usr, err := u.users.FindByID(ctx, repository.NoTX, id); err == nil {
		return usr, nil
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	if email == "" {
		email = id + "@users.invalid"
	}
	var user *model.User
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		usr, err := u.users.FindByID(ctx, tx, id)
		if err == nil {
			user = usr
			return nil
		}
		if !errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		nu, err := model.NewUser(id, email)
		if err != nil {
			return err
		}
		// Save is an upsert that never touches the balance, so a concurrent
		// first request cannot reset it.
		if err := u.users.Save(ctx, tx, nu); err != nil {
			return err
		}
		user = nu
		return nil
	})
	if err != nil {
		u.log.Error().Err(err).Str("user_id", id).Msg("Failed to provision user")
		return nil, err
	}
	logging.With(ctx, u.log).Info().Str("user_id", id).Msg("user provisioned")
	return user, nil
}

func (u *userUC) Get(ctx context.Context, id string) (*model.User, error) {
	return u.users.FindByID(ctx, repository.NoTX, id)
}
