package repository

import (
	"context"
	"time"

	"credits-engine/internal/domain/model"
)

// -----------------------------
// Orders
// -----------------------------

type OrderRepository interface {
	Save(ctx context.Context, tx Tx, o *model.Order) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Order, error)
	List(ctx context.Context, tx Tx) ([]*model.Order, error)
	ListByUserID(ctx context.Context, tx Tx, userID string) ([]*model.Order, error)
	ListPendingOlderThan(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.Order, error)

	// TransitionFromPending moves the order from pending to `to` in one atomic
	// compare-and-swap and returns the updated row. It fails with
	// domain.ErrAlreadyFinalized when the order is no longer pending and with a
	// NotFound(order) error when it does not exist.
	TransitionFromPending(ctx context.Context, tx Tx, id string, to model.OrderStatus) (*model.Order, error)

	// CancelIfExpired cancels the order only if it is still pending and was
	// created at or before cutoff. It reports whether the row changed.
	CancelIfExpired(ctx context.Context, tx Tx, id string, cutoff time.Time) (bool, error)

	// Finalize writes the frozen terms and user reference of a validated order.
	Finalize(ctx context.Context, tx Tx, o *model.Order) error
}
