package repository

import (
	"context"
	"time"

	"credits-engine/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

// UserRepository owns the credit balance. Every balance change goes through an
// atomic increment, decrement or assignment; there is no generic Save.
type UserRepository interface {
	// Create inserts u unless its email is taken, in which case it returns
	// domain.ErrAlreadyExists without side effects.
	Create(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.User, error)
	List(ctx context.Context, tx Tx) ([]*model.User, error)

	// ApplyOrderCredit adds credits, sets the active plan, appends orderID and
	// marks the user active, all in one statement.
	ApplyOrderCredit(ctx context.Context, tx Tx, userID string, credits int64, planID, orderID string) (*model.User, error)

	// ConsumeCredits decrements the balance by cost only if it stays >= 0.
	// It fails with domain.ErrInsufficientCredits and leaves the balance unchanged otherwise.
	ConsumeCredits(ctx context.Context, tx Tx, userID string, cost int64) (*model.User, error)

	// Activate sets status active, the plan and the balance, and assigns code
	// only when the user has no activation code yet.
	Activate(ctx context.Context, tx Tx, userID, planID string, credits int64, code string) (*model.User, error)

	// DeleteStalePending removes pending users without orders or credits
	// created at or before cutoff.
	DeleteStalePending(ctx context.Context, tx Tx, cutoff time.Time) (int64, error)
}
