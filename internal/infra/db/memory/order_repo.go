package memory

import (
	"context"
	"sort"
	"time"

	"credits-engine/internal/domain"
	"credits-engine/internal/domain/model"
	"credits-engine/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

type OrderRepo struct{ s *Store }

func (r *OrderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	t, err := checkTx(tx)
	if err != nil {
		return err
	}
	r.s.ordersMu.Lock()
	defer r.s.ordersMu.Unlock()
	if _, ok := r.s.orders[o.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.s.orders[o.ID] = o.Clone()
	record(t, func() {
		r.s.ordersMu.Lock()
		delete(r.s.orders, o.ID)
		r.s.ordersMu.Unlock()
	})
	return nil
}

func (r *OrderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	if _, err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.ordersMu.RLock()
	defer r.s.ordersMu.RUnlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, domain.NewNotFound(domain.EntityOrder, id)
	}
	return o.Clone(), nil
}

func (r *OrderRepo) List(ctx context.Context, tx repository.Tx) ([]*model.Order, error) {
	return r.filter(tx, func(*model.Order) bool { return true })
}

func (r *OrderRepo) ListByUserID(ctx context.Context, tx repository.Tx, userID string) ([]*model.Order, error) {
	return r.filter(tx, func(o *model.Order) bool { return o.UserID != nil && *o.UserID == userID })
}

func (r *OrderRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	out, err := r.filter(tx, func(o *model.Order) bool {
		return o.Status == model.OrderPending && !o.CreatedAt.After(cutoff)
	})
	if err != nil {
		return nil, err
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// filter returns clones ordered by creation time, oldest first.
func (r *OrderRepo) filter(tx repository.Tx, keep func(*model.Order) bool) ([]*model.Order, error) {
	if _, err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.ordersMu.RLock()
	out := make([]*model.Order, 0, len(r.s.orders))
	for _, o := range r.s.orders {
		if keep(o) {
			out = append(out, o.Clone())
		}
	}
	r.s.ordersMu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *OrderRepo) TransitionFromPending(ctx context.Context, tx repository.Tx, id string, to model.OrderStatus) (*model.Order, error) {
	t, err := checkTx(tx)
	if err != nil {
		return nil, err
	}
	if !model.OrderPending.CanTransition(to) {
		return nil, domain.NewValidationError("status", "unsupported transition")
	}
	r.s.ordersMu.Lock()
	defer r.s.ordersMu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, domain.NewNotFound(domain.EntityOrder, id)
	}
	if o.Status != model.OrderPending {
		return nil, domain.ErrAlreadyFinalized
	}
	o.Status = to
	record(t, func() { r.revertStatus(id, to) })
	return o.Clone(), nil
}

func (r *OrderRepo) CancelIfExpired(ctx context.Context, tx repository.Tx, id string, cutoff time.Time) (bool, error) {
	t, err := checkTx(tx)
	if err != nil {
		return false, err
	}
	r.s.ordersMu.Lock()
	defer r.s.ordersMu.Unlock()
	o, ok := r.s.orders[id]
	if !ok || o.Status != model.OrderPending || o.CreatedAt.After(cutoff) {
		return false, nil
	}
	o.Status = model.OrderCancelled
	record(t, func() { r.revertStatus(id, model.OrderCancelled) })
	return true, nil
}

func (r *OrderRepo) revertStatus(id string, from model.OrderStatus) {
	r.s.ordersMu.Lock()
	defer r.s.ordersMu.Unlock()
	if o, ok := r.s.orders[id]; ok && o.Status == from {
		o.Status = model.OrderPending
	}
}

func (r *OrderRepo) Finalize(ctx context.Context, tx repository.Tx, o *model.Order) error {
	t, err := checkTx(tx)
	if err != nil {
		return err
	}
	r.s.ordersMu.Lock()
	defer r.s.ordersMu.Unlock()
	cur, ok := r.s.orders[o.ID]
	if !ok {
		return domain.NewNotFound(domain.EntityOrder, o.ID)
	}
	if cur.Status != model.OrderValidated || cur.ValidatedAt != nil {
		return domain.ErrAlreadyFinalized
	}
	prev := cur.Clone()
	next := o.Clone()
	cur.Credits, cur.Amount, cur.Currency = next.Credits, next.Amount, next.Currency
	cur.ValidatedAt, cur.UserID = next.ValidatedAt, next.UserID
	record(t, func() {
		r.s.ordersMu.Lock()
		defer r.s.ordersMu.Unlock()
		if c, ok := r.s.orders[prev.ID]; ok {
			c.Credits, c.Amount, c.Currency = prev.Credits, prev.Amount, prev.Currency
			c.ValidatedAt, c.UserID = prev.ValidatedAt, prev.UserID
		}
	})
	return nil
}
