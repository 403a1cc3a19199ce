package web

import (
	"context"
	"net/http"
	"time"

	"credits-engine/internal/infra/metrics"
	"credits-engine/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Limiter is a per-key request budget; see redis.RateLimiter.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type Options struct {
	RequestTimeout  time.Duration
	OrdersPerMinute int
}

type Server struct {
	orders  usecase.OrderUseCase
	credits usecase.CreditUseCase
	users   usecase.UserUseCase
	plans   usecase.PlanUseCase
	auth    *AuthManager
	limiter Limiter // optional
	opts    Options
	log     *zerolog.Logger
}

func NewServer(
	orders usecase.OrderUseCase,
	credits usecase.CreditUseCase,
	users usecase.UserUseCase,
	plans usecase.PlanUseCase,
	auth *AuthManager,
	limiter Limiter,
	opts Options,
	logger *zerolog.Logger,
) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	l := logger.With().Str("component", "HTTPServer").Logger()
	return &Server{
		orders:  orders,
		credits: credits,
		users:   users,
		plans:   plans,
		auth:    auth,
		limiter: limiter,
		opts:    opts,
		log:     &l,
	}
}

// Router builds the full HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(TraceID)
	r.Use(RequestLog(s.log))
	r.Use(Recover(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(Timeout(s.opts.RequestTimeout))

		r.Post("/orders", s.createOrder)
		r.Post("/generations/use-template", s.useTemplate)
		r.Post("/users/pre-register", s.preRegister)
		r.Get("/plans", s.listPlans)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireAdmin)
			r.Put("/orders/{id}/validate", s.validateOrder)
			r.Get("/orders", s.listOrders)
			r.Get("/orders/user/{userId}", s.listUserOrders)
			r.Put("/users/{id}/activate", s.activateUser)
			r.Get("/users", s.listUsers)
			r.Get("/users/{id}", s.getUser)
		})
	})
	return r
}
