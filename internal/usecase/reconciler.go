package usecase

import (
	"context"
	"errors"
	"time"

	"credits-engine/internal/domain"
	"credits-engine/internal/domain/model"
	"credits-engine/internal/domain/ports/repository"
	"credits-engine/internal/infra/metrics"
)

// reconciler applies the economic effect of a freshly validated order. It
// must run inside the same transaction as the pending -> validated CAS.
type reconciler struct {
	plans    repository.PlanRepository
	orders   repository.OrderRepository
	users    repository.UserRepository
	currency string
}

// reconciliation is what a successful apply produced.
type reconciliation struct {
	order   *model.Order
	user    *model.User
	created bool
}

// apply resolves the plan, freezes the order terms, merges credits into the
// user identified by the order's canonical email and links the order to it.
func (r *reconciler) apply(ctx context.Context, tx repository.Tx, o *model.Order, now time.Time) (*reconciliation, error) {
	plan, err := resolvePlan(ctx, r.plans, tx, o.PlanName)
	if err != nil {
		return nil, err
	}
	o.Freeze(plan, r.currency, now)

	u, created, err := r.mergeUser(ctx, tx, o, plan, now)
	if err != nil {
		return nil, err
	}

	uid := u.ID
	o.UserID = &uid
	if err := r.orders.Finalize(ctx, tx, o); err != nil {
		return nil, err
	}
	return &reconciliation{order: o, user: u, created: created}, nil
}

func (r *reconciler) mergeUser(ctx context.Context, tx repository.Tx, o *model.Order, plan *model.Plan, now time.Time) (*model.User, bool, error) {
	credits := *o.Credits
	email := model.CanonicalEmail(o.Email)

	existing, err := r.users.FindByEmail(ctx, tx, email)
	switch {
	case err == nil:
		u, err := r.users.ApplyOrderCredit(ctx, tx, existing.ID, credits, plan.ID, o.ID)
		if !errors.Is(err, domain.ErrNotFound) {
			return u, false, err
		}
		// Removed after the lookup (pending-user cleanup); fund a fresh identity.
	case !errors.Is(err, domain.ErrNotFound):
		return nil, false, err
	}

	fresh := model.NewUserFromOrder(o, plan.ID, credits, now)
	err = r.users.Create(ctx, tx, fresh)
	if err == nil {
		metrics.IncUserCreated("order")
		return fresh, true, nil
	}
	if !errors.Is(err, domain.ErrAlreadyExists) {
		return nil, false, err
	}

	// Another validation created this identity after our lookup.
	existing, err = r.users.FindByEmail(ctx, tx, email)
	if err != nil {
		return nil, false, err
	}
	u, err := r.users.ApplyOrderCredit(ctx, tx, existing.ID, credits, plan.ID, o.ID)
	return u, false, err
}
