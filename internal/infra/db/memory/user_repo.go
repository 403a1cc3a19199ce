package memory

import (
	"context"
	"sort"
	"time"

	"credits-engine/internal/domain"
	"credits-engine/internal/domain/model"
	"credits-engine/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

type UserRepo struct{ s *Store }

func (r *UserRepo) Create(ctx context.Context, tx repository.Tx, u *model.User) error {
	t, err := checkTx(tx)
	if err != nil {
		return err
	}
	if u.CreditsRemaining < 0 {
		return domain.ErrInsufficientCredits
	}
	email := model.CanonicalEmail(u.Email)
	r.s.usersMu.Lock()
	defer r.s.usersMu.Unlock()
	if _, taken := r.s.emails[email]; taken {
		return domain.ErrAlreadyExists
	}
	if _, taken := r.s.users[u.ID]; taken {
		return domain.ErrAlreadyExists
	}
	cp := u.Clone()
	cp.Email = email
	if cp.OrderIDs == nil {
		cp.OrderIDs = []string{}
	}
	r.s.users[cp.ID] = cp
	r.s.emails[email] = cp.ID
	record(t, func() {
		r.s.usersMu.Lock()
		delete(r.s.users, cp.ID)
		delete(r.s.emails, email)
		r.s.usersMu.Unlock()
	})
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	if _, err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.usersMu.RLock()
	defer r.s.usersMu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.NewNotFound(domain.EntityUser, id)
	}
	return u.Clone(), nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	if _, err := checkTx(tx); err != nil {
		return nil, err
	}
	key := model.CanonicalEmail(email)
	r.s.usersMu.RLock()
	defer r.s.usersMu.RUnlock()
	id, ok := r.s.emails[key]
	if !ok {
		return nil, domain.NewNotFound(domain.EntityUser, key)
	}
	return r.s.users[id].Clone(), nil
}

func (r *UserRepo) List(ctx context.Context, tx repository.Tx) ([]*model.User, error) {
	if _, err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.usersMu.RLock()
	out := make([]*model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, u.Clone())
	}
	r.s.usersMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *UserRepo) ApplyOrderCredit(ctx context.Context, tx repository.Tx, userID string, credits int64, planID, orderID string) (*model.User, error) {
	t, err := checkTx(tx)
	if err != nil {
		return nil, err
	}
	if credits < 0 {
		return nil, domain.NewValidationError("credits", "must not be negative")
	}
	r.s.usersMu.Lock()
	defer r.s.usersMu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return nil, domain.NewNotFound(domain.EntityUser, userID)
	}
	prevPlan, prevStatus := u.ActivePlanID, u.Status
	pid := planID
	u.CreditsRemaining += credits
	u.ActivePlanID = &pid
	u.Status = model.UserActive
	u.OrderIDs = append(u.OrderIDs, orderID)
	record(t, func() {
		r.s.usersMu.Lock()
		defer r.s.usersMu.Unlock()
		cur, ok := r.s.users[userID]
		if !ok {
			return
		}
		// Credits consumed since the grant cannot be taken back below zero.
		cur.CreditsRemaining -= credits
		if cur.CreditsRemaining < 0 {
			cur.CreditsRemaining = 0
		}
		cur.ActivePlanID, cur.Status = prevPlan, prevStatus
		for i := len(cur.OrderIDs) - 1; i >= 0; i-- {
			if cur.OrderIDs[i] == orderID {
				cur.OrderIDs = append(cur.OrderIDs[:i], cur.OrderIDs[i+1:]...)
				break
			}
		}
	})
	return u.Clone(), nil
}

func (r *UserRepo) ConsumeCredits(ctx context.Context, tx repository.Tx, userID string, cost int64) (*model.User, error) {
	t, err := checkTx(tx)
	if err != nil {
		return nil, err
	}
	if err := model.CheckCost(cost); err != nil {
		return nil, err
	}
	r.s.usersMu.Lock()
	defer r.s.usersMu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return nil, domain.NewNotFound(domain.EntityUser, userID)
	}
	if u.CreditsRemaining < cost {
		return nil, domain.ErrInsufficientCredits
	}
	u.CreditsRemaining -= cost
	record(t, func() {
		r.s.usersMu.Lock()
		if cur, ok := r.s.users[userID]; ok {
			cur.CreditsRemaining += cost
		}
		r.s.usersMu.Unlock()
	})
	return u.Clone(), nil
}

func (r *UserRepo) Activate(ctx context.Context, tx repository.Tx, userID, planID string, credits int64, code string) (*model.User, error) {
	t, err := checkTx(tx)
	if err != nil {
		return nil, err
	}
	if credits < 0 {
		return nil, domain.NewValidationError("credits", "must not be negative")
	}
	r.s.usersMu.Lock()
	defer r.s.usersMu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return nil, domain.NewNotFound(domain.EntityUser, userID)
	}
	if u.ActivationCode == nil {
		for _, other := range r.s.users {
			if other.ActivationCode != nil && *other.ActivationCode == code {
				return nil, domain.ErrAlreadyExists
			}
		}
	}
	prev := u.Clone()
	pid := planID
	u.Status = model.UserActive
	u.ActivePlanID = &pid
	u.CreditsRemaining = credits
	if u.ActivationCode == nil {
		c := code
		u.ActivationCode = &c
	}
	record(t, func() {
		r.s.usersMu.Lock()
		if cur, ok := r.s.users[userID]; ok {
			cur.Status, cur.ActivePlanID = prev.Status, prev.ActivePlanID
			cur.CreditsRemaining, cur.ActivationCode = prev.CreditsRemaining, prev.ActivationCode
		}
		r.s.usersMu.Unlock()
	})
	return u.Clone(), nil
}

func (r *UserRepo) DeleteStalePending(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	t, err := checkTx(tx)
	if err != nil {
		return 0, err
	}
	r.s.usersMu.Lock()
	defer r.s.usersMu.Unlock()
	var removed []*model.User
	for id, u := range r.s.users {
		if u.Status == model.UserPending && len(u.OrderIDs) == 0 && u.CreditsRemaining == 0 && !u.CreatedAt.After(cutoff) {
			removed = append(removed, u)
			delete(r.s.users, id)
			delete(r.s.emails, u.Email)
		}
	}
	record(t, func() {
		r.s.usersMu.Lock()
		for _, u := range removed {
			r.s.users[u.ID] = u
			r.s.emails[u.Email] = u.ID
		}
		r.s.usersMu.Unlock()
	})
	return int64(len(removed)), nil
}
