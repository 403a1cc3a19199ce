package adapter

import (
	"context"

	"credits-engine/internal/domain/model"
)

// OrderNotifier informs administrators about order lifecycle events.
// Implementations must not block the caller for long; delivery is best-effort.
type OrderNotifier interface {
	OrderCreated(ctx context.Context, o *model.Order) error
	OrderValidated(ctx context.Context, o *model.Order, u *model.User) error
}
