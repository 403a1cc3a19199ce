package sched

import (
	"context"
	"errors"
	"time"

	"credits-engine/internal/domain/ports/repository"
	"credits-engine/internal/infra/metrics"
	red "credits-engine/internal/infra/redis"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const OrderExpiryJob = "order-expiry"

// OrderCanceller is the single transition the sweeper drives.
type OrderCanceller interface {
	CancelExpired(ctx context.Context, orderID string) (bool, error)
}

// SweepOptions is shared by the sweeper jobs.
type SweepOptions struct {
	TTL     time.Duration
	Batch   int
	Locker  red.Locker // optional
	LockTTL time.Duration
	Clock   clockwork.Clock
}

func (o *SweepOptions) defaults() {
	if o.Batch <= 0 {
		o.Batch = 200
	}
	if o.LockTTL <= 0 {
		o.LockTTL = 10 * time.Minute
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
}

// OrderExpirySweeper cancels pending orders older than the TTL. Each order
// goes through its own conditional transition, so a concurrent validation or
// a second sweeper instance can only make it skip work.
type OrderExpirySweeper struct {
	orders    repository.OrderRepository
	canceller OrderCanceller
	opts      SweepOptions
	log       *zerolog.Logger
}

func NewOrderExpirySweeper(orders repository.OrderRepository, canceller OrderCanceller, opts SweepOptions, logger *zerolog.Logger) *OrderExpirySweeper {
	if opts.TTL <= 0 {
		opts.TTL = 48 * time.Hour
	}
	opts.defaults()
	l := logger.With().Str("component", "OrderExpirySweeper").Logger()
	return &OrderExpirySweeper{orders: orders, canceller: canceller, opts: opts, log: &l}
}

func (s *OrderExpirySweeper) Name() string { return OrderExpiryJob }

// RunOnce performs one sweep. Per-order failures are logged and skipped; only
// a failure to list candidates is returned.
func (s *OrderExpirySweeper) RunOnce(ctx context.Context) error {
	release, ok := acquire(ctx, s.opts, OrderExpiryJob, s.log)
	if !ok {
		metrics.IncSweepRun(OrderExpiryJob, "skipped")
		return nil
	}
	defer release()

	cutoff := s.opts.Clock.Now().Add(-s.opts.TTL)
	seen := make(map[string]struct{})
	cancelled, failed := 0, 0
	for {
		page, err := s.orders.ListPendingOlderThan(ctx, repository.NoTX, cutoff, s.opts.Batch)
		if err != nil {
			metrics.IncSweepRun(OrderExpiryJob, "failed")
			metrics.AddSweepAffected(OrderExpiryJob, cancelled)
			return err
		}
		fresh := 0
		for _, o := range page {
			if _, dup := seen[o.ID]; dup {
				continue
			}
			seen[o.ID] = struct{}{}
			fresh++

			ok, err := s.canceller.CancelExpired(ctx, o.ID)
			if err != nil {
				failed++
				metrics.IncSweepItemError(OrderExpiryJob)
				s.log.Error().Err(err).Str("order_id", o.ID).Msg("failed to cancel expired order")
				continue
			}
			if ok {
				cancelled++
			}
		}
		// A short page is the last one; a page of only retried failures means no progress.
		if len(page) < s.opts.Batch || fresh == 0 || ctx.Err() != nil {
			break
		}
	}

	metrics.IncSweepRun(OrderExpiryJob, "ok")
	metrics.AddSweepAffected(OrderExpiryJob, cancelled)
	if cancelled > 0 || failed > 0 {
		s.log.Info().Int("cancelled", cancelled).Int("failed", failed).Time("cutoff", cutoff).Msg("order expiry sweep finished")
	}
	return nil
}

// acquire takes the job's leadership lock when a locker is configured. A held
// lock means another instance is sweeping; a Redis failure sweeps anyway.
func acquire(ctx context.Context, opts SweepOptions, job string, log *zerolog.Logger) (func(), bool) {
	if opts.Locker == nil {
		return func() {}, true
	}
	key := red.SweepLockKey(job)
	token, err := opts.Locker.TryLock(ctx, key, opts.LockTTL)
	switch {
	case errors.Is(err, red.ErrLockHeld):
		log.Debug().Str("lock", key).Msg("sweep lock held elsewhere, skipping cycle")
		return nil, false
	case err != nil:
		log.Warn().Err(err).Str("lock", key).Msg("sweep lock unavailable, sweeping without it")
		return func() {}, true
	}
	return func() {
		if err := opts.Locker.Unlock(context.Background(), key, token); err != nil {
			log.Warn().Err(err).Str("lock", key).Msg("failed to release sweep lock")
		}
	}, true
}
