//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"credits-engine/internal/domain"
	"credits-engine/internal/domain/model"
	"credits-engine/internal/domain/ports/adapter"
	"credits-engine/internal/domain/ports/repository"
	"credits-engine/internal/infra/db/memory"
	"credits-engine/internal/usecase"
)

// -----------------------------
// Utilities
// -----------------------------

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

var testEpoch = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func customer(email string) model.Customer {
	return model.Customer{
		FirstName:   "Fatou",
		LastName:    "Diallo",
		Email:       email,
		PhoneNumber: "+221770000000",
		Country:     "SN",
	}
}

// fixture wires the use cases against the in-memory store.
type fixture struct {
	store    *memory.Store
	clock    *clockwork.FakeClock
	notifier *MockNotifier
	orders   repository.OrderRepository
	users    repository.UserRepository
	plans    repository.PlanRepository
	tm       repository.TransactionManager
	starter  *model.Plan
}

func newFixture() *fixture {
	s := memory.NewStore()
	f := &fixture{
		store:    s,
		clock:    clockwork.NewFakeClockAt(testEpoch),
		notifier: &MockNotifier{},
		orders:   s.Orders(),
		users:    s.Users(),
		plans:    s.Plans(),
		tm:       s.TxManager(),
	}
	f.starter = &model.Plan{ID: "plan-starter", Name: "Starter", Price: 10, CreditGrant: 50, Currency: "FCFA"}
	_ = s.Plans().Save(context.Background(), nil, f.starter)
	return f
}

func (f *fixture) orderUC() usecase.OrderUseCase {
	return usecase.NewOrderUseCase(f.orders, f.users, f.plans, f.tm, f.notifier, f.clock,
		usecase.OrderSettings{PendingTTL: 48 * time.Hour, Currency: "FCFA"}, newTestLogger())
}

// =============================
// Adapters
// =============================

// MockNotifier records notifications.
type MockNotifier struct {
	mu        sync.Mutex
	Created   []string
	Validated []string

	OrderCreatedFunc   func(ctx context.Context, o *model.Order) error
	OrderValidatedFunc func(ctx context.Context, o *model.Order, u *model.User) error
}

var _ adapter.OrderNotifier = (*MockNotifier)(nil)

func (m *MockNotifier) OrderCreated(ctx context.Context, o *model.Order) error {
	m.mu.Lock()
	m.Created = append(m.Created, o.ID)
	m.mu.Unlock()
	if m.OrderCreatedFunc != nil {
		return m.OrderCreatedFunc(ctx, o)
	}
	return nil
}

func (m *MockNotifier) OrderValidated(ctx context.Context, o *model.Order, u *model.User) error {
	m.mu.Lock()
	m.Validated = append(m.Validated, o.ID)
	m.mu.Unlock()
	if m.OrderValidatedFunc != nil {
		return m.OrderValidatedFunc(ctx, o, u)
	}
	return nil
}

// =============================
// Repositories
// =============================

// MockOrderRepo delegates to an inner repository unless a Func field is set.
type MockOrderRepo struct {
	repository.OrderRepository

	FinalizeFunc        func(ctx context.Context, tx repository.Tx, o *model.Order) error
	CancelIfExpiredFunc func(ctx context.Context, tx repository.Tx, id string, cutoff time.Time) (bool, error)
}

func (m *MockOrderRepo) Finalize(ctx context.Context, tx repository.Tx, o *model.Order) error {
	if m.FinalizeFunc != nil {
		return m.FinalizeFunc(ctx, tx, o)
	}
	return m.OrderRepository.Finalize(ctx, tx, o)
}

func (m *MockOrderRepo) CancelIfExpired(ctx context.Context, tx repository.Tx, id string, cutoff time.Time) (bool, error) {
	if m.CancelIfExpiredFunc != nil {
		return m.CancelIfExpiredFunc(ctx, tx, id, cutoff)
	}
	return m.OrderRepository.CancelIfExpired(ctx, tx, id, cutoff)
}

// MockUserRepo delegates to an inner repository unless a Func field is set.
type MockUserRepo struct {
	repository.UserRepository

	FindByEmailFunc func(ctx context.Context, tx repository.Tx, email string) (*model.User, error)
	ActivateFunc    func(ctx context.Context, tx repository.Tx, userID, planID string, credits int64, code string) (*model.User, error)
}

func (m *MockUserRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, tx, email)
	}
	return m.UserRepository.FindByEmail(ctx, tx, email)
}

func (m *MockUserRepo) Activate(ctx context.Context, tx repository.Tx, userID, planID string, credits int64, code string) (*model.User, error) {
	if m.ActivateFunc != nil {
		return m.ActivateFunc(ctx, tx, userID, planID, credits, code)
	}
	return m.UserRepository.Activate(ctx, tx, userID, planID, credits, code)
}

// MockTemplateRepo is a map-backed TemplateRepository.
type MockTemplateRepo struct {
	mu    sync.Mutex
	items map[string]*model.Template

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Template, error)
}

func NewMockTemplateRepo(ts ...*model.Template) *MockTemplateRepo {
	m := &MockTemplateRepo{items: map[string]*model.Template{}}
	for _, t := range ts {
		m.items[t.ID] = t
	}
	return m
}

var _ repository.TemplateRepository = (*MockTemplateRepo)(nil)

func (m *MockTemplateRepo) Save(ctx context.Context, tx repository.Tx, t *model.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[t.ID] = t
	return nil
}

func (m *MockTemplateRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Template, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok {
		return nil, notFoundTemplate(id)
	}
	return t, nil
}

// MockTxManager counts transactions and delegates to an inner manager.
type MockTxManager struct {
	inner      repository.TransactionManager
	mu         sync.Mutex
	Calls      int
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn through the inner manager, or with NoTX when there is none.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	if m.inner != nil {
		return m.inner.WithTx(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

func notFoundTemplate(id string) error { return domain.NewNotFound(domain.EntityTemplate, id) }
