package usecase

import (
	"context"
	"errors"
	"time"

	"credits-engine/internal/domain"
	"credits-engine/internal/domain/model"
	"credits-engine/internal/domain/ports/adapter"
	"credits-engine/internal/domain/ports/repository"
	"credits-engine/internal/infra/logging"
	"credits-engine/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ OrderUseCase = (*orderUC)(nil)

// CreateOrderCommand is the validated input of order entry.
type CreateOrderCommand struct {
	Customer model.Customer
	PlanName string
}

// OrderUseCase drives the order state machine and the credit reconciliation.
type OrderUseCase interface {
	Create(ctx context.Context, cmd CreateOrderCommand) (*model.Order, error)

	// Validate moves a pending order to validated and credits the matching
	// user in one transaction. Concurrent calls for the same order credit at
	// most once; losers get domain.ErrAlreadyFinalized.
	Validate(ctx context.Context, orderID string) (*model.Order, *model.User, error)

	// CancelExpired cancels the order if it is still pending and older than
	// the configured TTL. It reports whether this call cancelled it; an order
	// that is already terminal or too young is not an error.
	CancelExpired(ctx context.Context, orderID string) (bool, error)

	List(ctx context.Context) ([]*model.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Order, error)
}

// OrderSettings carries the tunables of the order flow.
type OrderSettings struct {
	PendingTTL       time.Duration
	Currency         string
	RequireKnownPlan bool
}

type orderUC struct {
	orders   repository.OrderRepository
	users    repository.UserRepository
	plans    repository.PlanRepository
	tm       repository.TransactionManager
	notifier adapter.OrderNotifier
	clock    clockwork.Clock
	cfg      OrderSettings
	rec      *reconciler
	log      *zerolog.Logger
}

func NewOrderUseCase(
	orders repository.OrderRepository,
	users repository.UserRepository,
	plans repository.PlanRepository,
	tm repository.TransactionManager,
	notifier adapter.OrderNotifier,
	clock clockwork.Clock,
	cfg OrderSettings,
	logger *zerolog.Logger,
) *orderUC {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 48 * time.Hour
	}
	l := logger.With().Str("component", "OrderUC").Logger()
	return &orderUC{
		orders:   orders,
		users:    users,
		plans:    plans,
		tm:       tm,
		notifier: notifier,
		clock:    clock,
		cfg:      cfg,
		rec:      &reconciler{plans: plans, orders: orders, users: users, currency: cfg.Currency},
		log:      &l,
	}
}

func (uc *orderUC) Create(ctx context.Context, cmd CreateOrderCommand) (*model.Order, error) {
	defer logging.TraceDuration(uc.log, "OrderUC.Create")()

	o, err := model.NewOrder(cmd.Customer, cmd.PlanName, uc.clock.Now())
	if err != nil {
		return nil, err
	}
	if uc.cfg.RequireKnownPlan {
		if _, err := resolvePlan(ctx, uc.plans, repository.NoTX, o.PlanName); err != nil {
			return nil, err
		}
	}
	if err := uc.orders.Save(ctx, repository.NoTX, o); err != nil {
		uc.log.Error().Err(err).Str("order_id", o.ID).Msg("failed to persist order")
		return nil, err
	}
	metrics.IncOrder(string(model.OrderPending))
	uc.log.Info().Str("order_id", o.ID).Str("plan", o.PlanName).Msg("order created")

	if uc.notifier != nil {
		if err := uc.notifier.OrderCreated(ctx, o); err != nil {
			uc.log.Warn().Err(err).Str("order_id", o.ID).Msg("order created notification failed")
		}
	}
	return o, nil
}

func (uc *orderUC) Validate(ctx context.Context, orderID string) (*model.Order, *model.User, error) {
	defer logging.TraceDuration(uc.log, "OrderUC.Validate")()
	log := logging.With(logging.WithOrderID(ctx, orderID), uc.log)

	var res *reconciliation
	err := uc.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		o, err := uc.orders.TransitionFromPending(ctx, tx, orderID, model.OrderValidated)
		if err != nil {
			return err
		}
		res, err = uc.rec.apply(ctx, tx, o, uc.clock.Now())
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyFinalized):
			log.Info().Msg("validate rejected: order already finalized")
		case errors.Is(err, domain.ErrNotFound):
			log.Info().Err(err).Msg("validate rejected")
		default:
			log.Error().Err(err).Msg("validation rolled back")
		}
		return nil, nil, err
	}

	metrics.IncOrder(string(model.OrderValidated))
	metrics.AddCreditsGranted("order", *res.order.Credits)
	log.Info().
		Str("user_id", res.user.ID).
		Bool("user_created", res.created).
		Int64("credits", *res.order.Credits).
		Int64("balance", res.user.CreditsRemaining).
		Msg("order validated")

	if uc.notifier != nil {
		if err := uc.notifier.OrderValidated(ctx, res.order, res.user); err != nil {
			log.Warn().Err(err).Msg("order validated notification failed")
		}
	}
	return res.order, res.user, nil
}

func (uc *orderUC) CancelExpired(ctx context.Context, orderID string) (bool, error) {
	defer logging.TraceDuration(uc.log, "OrderUC.CancelExpired")()

	cutoff := uc.clock.Now().Add(-uc.cfg.PendingTTL)
	ok, err := uc.orders.CancelIfExpired(ctx, repository.NoTX, orderID, cutoff)
	if err != nil {
		return false, err
	}
	if !ok {
		uc.log.Debug().Str("order_id", orderID).Msg("order no longer pending or not yet expired, skipped")
		return false, nil
	}
	metrics.IncOrder(string(model.OrderCancelled))
	uc.log.Info().Str("order_id", orderID).Msg("expired order cancelled")
	return true, nil
}

func (uc *orderUC) List(ctx context.Context) ([]*model.Order, error) {
	defer logging.TraceDuration(uc.log, "OrderUC.List")()
	return uc.orders.List(ctx, repository.NoTX)
}

func (uc *orderUC) ListByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	defer logging.TraceDuration(uc.log, "OrderUC.ListByUser")()
	return uc.orders.ListByUserID(ctx, repository.NoTX, userID)
}
