package repository

import (
	"context"

	"credits-engine/internal/domain/model"
)

// PlanRepository is the read port for the plan catalog. Save exists for
// seeding; the core never mutates plans.
type PlanRepository interface {
	Save(ctx context.Context, tx Tx, plan *model.Plan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plan, error)
	// FindByNameOrID matches the id exactly or the name case-insensitively.
	FindByNameOrID(ctx context.Context, tx Tx, nameOrID string) (*model.Plan, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Plan, error)
}
