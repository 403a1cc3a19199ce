package usecase

import (
	"context"
	"errors"

	"credits-engine/internal/domain"
	"credits-engine/internal/domain/model"
	"credits-engine/internal/domain/ports/repository"
	"credits-engine/internal/infra/logging"
	"credits-engine/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase covers the account operations outside order reconciliation.
type UserUseCase interface {
	PreRegister(ctx context.Context, c model.Customer) (*model.User, error)
	// Activate resets the user's plan and balance from planID and assigns an
	// activation code the first time only.
	Activate(ctx context.Context, userID, planID string) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
}

type userUC struct {
	users repository.UserRepository
	plans repository.PlanRepository
	tm    repository.TransactionManager
	clock clockwork.Clock
	log   *zerolog.Logger

	codes *activationCodes
}

func NewUserUseCase(users repository.UserRepository, plans repository.PlanRepository, tm repository.TransactionManager, clock clockwork.Clock, logger *zerolog.Logger) *userUC {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	l := logger.With().Str("component", "UserUC").Logger()
	return &userUC{users: users, plans: plans, tm: tm, clock: clock, log: &l, codes: newActivationCodes(nil)}
}

func (u *userUC) PreRegister(ctx context.Context, c model.Customer) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.PreRegister")()

	user, err := model.NewPendingUser(c, u.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := u.users.Create(ctx, repository.NoTX, user); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.NewValidationError("email", "already registered")
		}
		return nil, err
	}
	metrics.IncUserCreated("pre_register")
	u.log.Info().Str("user_id", user.ID).Msg("user pre-registered")
	return user, nil
}

// maxCodeAttempts bounds retries on an activation code collision.
const maxCodeAttempts = 3

func (u *userUC) Activate(ctx context.Context, userID, planID string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.Activate")()

	if planID == "" {
		return nil, domain.NewValidationError("planId", "required")
	}
	var out *model.User
	var err error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		out, err = u.activateOnce(ctx, userID, planID)
		if !errors.Is(err, domain.ErrAlreadyExists) {
			break
		}
		u.log.Warn().Str("user_id", userID).Int("attempt", attempt+1).Msg("activation code collision, retrying")
	}
	if err != nil {
		return nil, err
	}
	metrics.AddCreditsGranted("activation", out.CreditsRemaining)
	u.log.Info().Str("user_id", out.ID).Msg("user activated")
	return out, nil
}

func (u *userUC) activateOnce(ctx context.Context, userID, planID string) (*model.User, error) {
	var out *model.User
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := u.users.FindByID(ctx, tx, userID); err != nil {
			return err
		}
		plan, err := resolvePlan(ctx, u.plans, tx, planID)
		if err != nil {
			return err
		}
		code, err := u.codes.Next()
		if err != nil {
			return domain.NewPersistenceError("generate activation code", err)
		}
		out, err = u.users.Activate(ctx, tx, userID, plan.ID, plan.CreditGrant, code)
		return err
	})
	return out, err
}

func (u *userUC) Get(ctx context.Context, id string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.Get")()
	return u.users.FindByID(ctx, repository.NoTX, id)
}

func (u *userUC) List(ctx context.Context) ([]*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.List")()
	return u.users.List(ctx, repository.NoTX)
}
