package usecase

import (
	"context"
	"strings"

	"credits-engine/internal/domain"
	"credits-engine/internal/domain/model"
	"credits-engine/internal/domain/ports/repository"
	"credits-engine/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

// PlanUseCase is the read side of the plan catalog.
type PlanUseCase interface {
	// Resolve finds a plan by id or by case-insensitive name.
	Resolve(ctx context.Context, nameOrID string) (*model.Plan, error)
	List(ctx context.Context) ([]*model.Plan, error)
}

type planUC struct {
	plans repository.PlanRepository
	log   *zerolog.Logger
}

func NewPlanUseCase(plans repository.PlanRepository, logger *zerolog.Logger) *planUC {
	l := logger.With().Str("component", "PlanUC").Logger()
	return &planUC{plans: plans, log: &l}
}

func (uc *planUC) Resolve(ctx context.Context, nameOrID string) (*model.Plan, error) {
	defer logging.TraceDuration(uc.log, "PlanUC.Resolve")()
	return resolvePlan(ctx, uc.plans, repository.NoTX, nameOrID)
}

func (uc *planUC) List(ctx context.Context) ([]*model.Plan, error) {
	defer logging.TraceDuration(uc.log, "PlanUC.List")()
	return uc.plans.ListAll(ctx, repository.NoTX)
}

// resolvePlan always reads through to the repository so price changes made
// after an order was placed are honoured.
func resolvePlan(ctx context.Context, plans repository.PlanRepository, tx repository.Tx, nameOrID string) (*model.Plan, error) {
	key := strings.TrimSpace(nameOrID)
	if key == "" {
		return nil, domain.NewNotFound(domain.EntityPlan, nameOrID)
	}
	return plans.FindByNameOrID(ctx, tx, key)
}
