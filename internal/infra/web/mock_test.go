//go:build !integration

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"credits-engine/internal/domain/model"
	"credits-engine/internal/infra/db/memory"
	"credits-engine/internal/usecase"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const testSecret = "test-admin-jwt-secret-please-change"

// newTestLogger creates a silent logger for tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// MockLimiter counts calls per key against a fixed budget.
type MockLimiter struct {
	mu     sync.Mutex
	Budget int
	Err    error
	calls  map[string]int
}

func (m *MockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[key]++
	return m.calls[key] <= m.Budget, nil
}

// MockOrderUC lets a test force use-case failures.
type MockOrderUC struct {
	usecase.OrderUseCase
	ListFunc func(ctx context.Context) ([]*model.Order, error)
}

func (m *MockOrderUC) List(ctx context.Context) ([]*model.Order, error) { return m.ListFunc(ctx) }

type testEnv struct {
	store   *memory.Store
	clock   *clockwork.FakeClock
	auth    *AuthManager
	handler http.Handler
	admin   string
}

type envOption func(*envConfig)

type envConfig struct {
	limiter Limiter
	orders  usecase.OrderUseCase
}

func withLimiter(l Limiter) envOption             { return func(c *envConfig) { c.limiter = l } }
func withOrders(o usecase.OrderUseCase) envOption { return func(c *envConfig) { c.orders = o } }

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	var cfg envConfig
	for _, o := range opts {
		o(&cfg)
	}

	ctx := context.Background()
	log := newTestLogger()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC))
	s := memory.NewStore()
	if err := s.Plans().Save(ctx, nil, &model.Plan{ID: "plan-starter", Name: "Starter", Price: 10, CreditGrant: 50, Currency: "FCFA"}); err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	if err := s.Templates().Save(ctx, nil, &model.Template{ID: "tpl-1", Theme: "birthday", Category: "cards"}); err != nil {
		t.Fatalf("seed template: %v", err)
	}

	orders := cfg.orders
	if orders == nil {
		orders = usecase.NewOrderUseCase(s.Orders(), s.Users(), s.Plans(), s.TxManager(), nil, clock,
			usecase.OrderSettings{PendingTTL: 48 * time.Hour, Currency: "FCFA"}, log)
	}
	auth := NewAuthManager(testSecret, time.Hour)
	srv := NewServer(
		orders,
		usecase.NewCreditUseCase(s.Users(), s.Templates(), 1, log),
		usecase.NewUserUseCase(s.Users(), s.Plans(), s.TxManager(), clock, log),
		usecase.NewPlanUseCase(s.Plans(), log),
		auth,
		cfg.limiter,
		Options{OrdersPerMinute: 1},
		log,
	)
	token, err := auth.Mint("ops", RoleAdmin)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return &testEnv{store: s, clock: clock, auth: auth, handler: srv.Router(), admin: token}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func orderBody(email, plan string) map[string]string {
	return map[string]string{
		"firstName":   "Ama",
		"lastName":    "Mensah",
		"email":       email,
		"phoneNumber": "+233200000000",
		"country":     "GH",
		"planName":    plan,
	}
}

var errDown = errors.New("connection refused")

func newRecorder() *httptest.ResponseRecorder { return httptest.NewRecorder() }
