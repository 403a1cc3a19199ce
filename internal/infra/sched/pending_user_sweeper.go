package sched

import (
	"context"
	"time"

	"credits-engine/internal/domain/ports/repository"
	"credits-engine/internal/infra/metrics"

	"github.com/rs/zerolog"
)

const PendingUserJob = "pending-user-cleanup"

// PendingUserSweeper deletes pre-registered users that never received an
// order or credits within the TTL. It is independent from order expiry.
type PendingUserSweeper struct {
	users repository.UserRepository
	opts  SweepOptions
	log   *zerolog.Logger
}

func NewPendingUserSweeper(users repository.UserRepository, opts SweepOptions, logger *zerolog.Logger) *PendingUserSweeper {
	if opts.TTL <= 0 {
		opts.TTL = 7 * 24 * time.Hour
	}
	opts.defaults()
	l := logger.With().Str("component", "PendingUserSweeper").Logger()
	return &PendingUserSweeper{users: users, opts: opts, log: &l}
}

func (s *PendingUserSweeper) Name() string { return PendingUserJob }

func (s *PendingUserSweeper) RunOnce(ctx context.Context) error {
	release, ok := acquire(ctx, s.opts, PendingUserJob, s.log)
	if !ok {
		metrics.IncSweepRun(PendingUserJob, "skipped")
		return nil
	}
	defer release()

	cutoff := s.opts.Clock.Now().Add(-s.opts.TTL)
	n, err := s.users.DeleteStalePending(ctx, repository.NoTX, cutoff)
	if err != nil {
		metrics.IncSweepRun(PendingUserJob, "failed")
		return err
	}
	metrics.IncSweepRun(PendingUserJob, "ok")
	metrics.AddSweepAffected(PendingUserJob, int(n))
	if n > 0 {
		s.log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("stale pending users removed")
	}
	return nil
}
