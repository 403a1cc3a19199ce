package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Job is one periodic unit of work. RunOnce must be safe to call again after
// a failure; the scheduler simply retries on the next tick.
type Job interface {
	Name() string
	RunOnce(ctx context.Context) error
}

// Options tune a Scheduler. Zero values fall back to defaults.
type Options struct {
	Interval   time.Duration // default 1h
	Timeout    time.Duration // per-run deadline, default 5m
	RunOnStart bool
	Clock      clockwork.Clock
}

// Scheduler periodically runs a Job. Failures and panics are logged and never
// stop the loop.
type Scheduler struct {
	job        Job
	interval   time.Duration
	timeout    time.Duration
	runOnStart bool
	clock      clockwork.Clock
	log        *zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(job Job, opts Options, logger *zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	l := logger.With().Str("component", "Scheduler").Str("job", job.Name()).Logger()
	return &Scheduler{
		job:        job,
		interval:   opts.Interval,
		timeout:    opts.Timeout,
		runOnStart: opts.RunOnStart,
		clock:      opts.Clock,
		log:        &l,
	}
}

// Start begins the scheduler loop in a background goroutine.
// Calling Start on a running scheduler has no effect.
func (s *Scheduler) Start(parentCtx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parentCtx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	ticker := s.clock.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	s.log.Info().Dur("interval", s.interval).Msg("scheduler started")
	if s.runOnStart {
		s.runSafely(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopping")
			return
		case <-ticker.Chan():
			s.runSafely(ctx)
		}
	}
}

func (s *Scheduler) runSafely(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()
	start := s.clock.Now()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return s.job.RunOnce(ctx)
	}()
	if err != nil {
		s.log.Error().Err(err).Msg("scheduled run failed; will retry on next tick")
		return
	}
	s.log.Debug().Dur("took", s.clock.Since(start)).Msg("scheduled run finished")
}

// Stop cancels the loop and waits for an in-flight run to return. It is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info().Msg("scheduler stopped")
}
