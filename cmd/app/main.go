// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"credits-engine/internal/config"
	"credits-engine/internal/domain/ports/adapter"
	"credits-engine/internal/domain/ports/repository"
	tele "credits-engine/internal/infra/adapters/telegram"
	"credits-engine/internal/infra/db/memory"
	pg "credits-engine/internal/infra/db/postgres"
	"credits-engine/internal/infra/db/seed"
	"credits-engine/internal/infra/logging"
	"credits-engine/internal/infra/metrics"
	red "credits-engine/internal/infra/redis"
	"credits-engine/internal/infra/sched"
	"credits-engine/internal/infra/scheduler"
	"credits-engine/internal/infra/web"
	"credits-engine/internal/infra/worker"
	"credits-engine/internal/usecase"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Set with -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

type stores struct {
	plans     repository.PlanRepository
	templates repository.TemplateRepository
	orders    repository.OrderRepository
	users     repository.UserRepository
	tm        repository.TransactionManager
	close     func()
}

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, in-memory store allowed)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("engine stopped")
	}
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	logger.Info().Str("version", version).Str("store", cfg.Store.Driver).Bool("dev", cfg.Runtime.Dev).Msg("starting credits engine")

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	// ---- Redis (optional) ----
	var (
		locker  red.Locker
		limiter web.Limiter
	)
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rc.Close()
		locker = red.NewLocker(rc)
		limiter = red.NewRateLimiter(rc)
		st.templates = pg.NewTemplateRepoCacheDecorator(st.templates, rc, cfg.Redis.TTL)
		logger.Info().Str("addr", cfg.Redis.URL).Msg("redis enabled: template cache, sweep lock, rate limit")
	} else {
		logger.Warn().Msg("redis not configured: no template cache, sweep lock or rate limit")
	}

	// ---- Notifications ----
	pool := worker.NewPool(cfg.Telegram.Workers, logger)
	pool.Start(ctx)
	defer pool.Stop()

	var notifier adapter.OrderNotifier = tele.NewNoopNotifier(logger)
	if cfg.Telegram.Token != "" {
		bn, err := tele.NewBotNotifier(&cfg.Telegram, pool, cfg.Runtime.Dev, logger)
		if err != nil {
			logger.Error().Err(err).Msg("telegram notifier unavailable, using noop")
		} else {
			notifier = bn
		}
	}

	// ---- Use cases ----
	clock := clockwork.NewRealClock()
	orderUC := usecase.NewOrderUseCase(st.orders, st.users, st.plans, st.tm, notifier, clock, usecase.OrderSettings{
		PendingTTL:       cfg.Orders.PendingTTL,
		Currency:         cfg.Orders.Currency,
		RequireKnownPlan: cfg.Orders.RequireKnownPlan,
	}, logger)
	creditUC := usecase.NewCreditUseCase(st.users, st.templates, cfg.Credits.CostPerGeneration, logger)
	userUC := usecase.NewUserUseCase(st.users, st.plans, st.tm, clock, logger)
	planUC := usecase.NewPlanUseCase(st.plans, logger)

	// ---- Sweepers ----
	sweepOpts := sched.SweepOptions{
		TTL:     cfg.Orders.PendingTTL,
		Batch:   cfg.Scheduler.SweepBatch,
		Locker:  locker,
		LockTTL: cfg.Scheduler.LockTTL,
		Clock:   clock,
	}
	runOpts := scheduler.Options{
		Interval:   cfg.Scheduler.SweepInterval,
		Timeout:    cfg.Scheduler.RunTimeout,
		RunOnStart: *cfg.Scheduler.RunOnStart,
		Clock:      clock,
	}
	jobs := []*scheduler.Scheduler{
		scheduler.NewScheduler(sched.NewOrderExpirySweeper(st.orders, orderUC, sweepOpts, logger), runOpts, logger),
	}
	if cfg.Scheduler.PendingUserTTL > 0 {
		userOpts := sweepOpts
		userOpts.TTL = cfg.Scheduler.PendingUserTTL
		jobs = append(jobs, scheduler.NewScheduler(sched.NewPendingUserSweeper(st.users, userOpts, logger), runOpts, logger))
	}
	for _, j := range jobs {
		j.Start(ctx)
	}
	defer func() {
		for _, j := range jobs {
			j.Stop()
		}
	}()

	// ---- HTTP ----
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		logger.Warn().Msg("auth.jwt_secret not set; using an insecure dev secret")
		secret = "dev-insecure-secret"
	}
	srv := web.NewServer(orderUC, creditUC, userUC, planUC, web.NewAuthManager(secret, 24*time.Hour), limiter, web.Options{
		RequestTimeout:  cfg.HTTP.RequestTimeout,
		OrdersPerMinute: cfg.RateLimit.OrdersPerMinute,
	}, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// ---- Graceful shutdown ----
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	return nil
}

func openStores(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*stores, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		s := memory.NewStore()
		st := &stores{plans: s.Plans(), templates: s.Templates(), orders: s.Orders(), users: s.Users(), tm: s.TxManager(), close: func() {}}
		if _, err := seed.Catalog(ctx, st.plans, st.templates, cfg.Orders.Currency, logger); err != nil {
			return nil, fmt.Errorf("seed memory store: %w", err)
		}
		logger.Warn().Msg("using in-memory store; data is lost on exit")
		return st, nil
	default:
		pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		go pg.ReportPoolStats(ctx, pool, 15*time.Second)
		return &stores{
			plans:     pg.NewPostgresPlanRepo(pool),
			templates: pg.NewPostgresTemplateRepo(pool),
			orders:    pg.NewPostgresOrderRepo(pool),
			users:     pg.NewPostgresUserRepo(pool),
			tm:        pg.NewTxManager(pool),
			close:     pool.Close,
		}, nil
	}
}
