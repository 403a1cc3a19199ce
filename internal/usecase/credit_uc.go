package usecase

import (
	"context"
	"errors"
	"strings"

	"credits-engine/internal/domain"
	"credits-engine/internal/domain/model"
	"credits-engine/internal/domain/ports/repository"
	"credits-engine/internal/infra/logging"
	"credits-engine/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ CreditUseCase = (*creditUC)(nil)

// CreditUseCase debits credits when content is generated.
type CreditUseCase interface {
	// UseTemplate charges the configured per-generation cost for templateID.
	UseTemplate(ctx context.Context, userID, templateID string) (*model.User, error)
	// Consume atomically debits cost; the balance never goes below zero.
	Consume(ctx context.Context, userID string, cost int64) (*model.User, error)
}

type creditUC struct {
	users     repository.UserRepository
	templates repository.TemplateRepository
	cost      int64
	log       *zerolog.Logger
}

func NewCreditUseCase(users repository.UserRepository, templates repository.TemplateRepository, costPerGeneration int64, logger *zerolog.Logger) *creditUC {
	if costPerGeneration <= 0 {
		costPerGeneration = 1
	}
	l := logger.With().Str("component", "CreditUC").Logger()
	return &creditUC{users: users, templates: templates, cost: costPerGeneration, log: &l}
}

func (uc *creditUC) UseTemplate(ctx context.Context, userID, templateID string) (*model.User, error) {
	defer logging.TraceDuration(uc.log, "CreditUC.UseTemplate")()

	userID, templateID = strings.TrimSpace(userID), strings.TrimSpace(templateID)
	if userID == "" {
		return nil, domain.NewValidationError("userId", "required")
	}
	if templateID == "" {
		return nil, domain.NewValidationError("templateId", "required")
	}
	if _, err := uc.users.FindByID(ctx, repository.NoTX, userID); err != nil {
		return nil, err
	}
	if _, err := uc.templates.FindByID(ctx, repository.NoTX, templateID); err != nil {
		return nil, err
	}
	return uc.Consume(ctx, userID, uc.cost)
}

func (uc *creditUC) Consume(ctx context.Context, userID string, cost int64) (*model.User, error) {
	defer logging.TraceDuration(uc.log, "CreditUC.Consume")()

	if err := model.CheckCost(cost); err != nil {
		return nil, err
	}
	u, err := uc.users.ConsumeCredits(ctx, repository.NoTX, userID, cost)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			metrics.IncConsumptionRejected("insufficient")
			uc.log.Info().Str("user_id", userID).Int64("cost", cost).Msg("consumption rejected: insufficient credits")
		} else if !errors.Is(err, domain.ErrNotFound) {
			metrics.IncConsumptionRejected("error")
			uc.log.Error().Err(err).Str("user_id", userID).Msg("consumption failed")
		}
		return nil, err
	}
	metrics.AddCreditsConsumed(cost)
	uc.log.Debug().Str("user_id", userID).Int64("balance", u.CreditsRemaining).Msg("credits consumed")
	return u, nil
}
