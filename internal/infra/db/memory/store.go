// Package memory is an in-process backend with the same atomicity contract as
// the Postgres repositories. It backs dev mode and unit tests.
package memory

import (
	"context"
	"sync"

	"credits-engine/internal/domain"
	"credits-engine/internal/domain/model"
	"credits-engine/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
)

// Store holds all collections. Each collection has its own lock, held only
// for the duration of a single read or conditional write.
type Store struct {
	catalogMu sync.RWMutex
	plans     map[string]*model.Plan
	templates map[string]*model.Template

	ordersMu sync.RWMutex
	orders   map[string]*model.Order

	usersMu sync.RWMutex
	users   map[string]*model.User
	emails  map[string]string // canonical email -> user id
}

func NewStore() *Store {
	return &Store{
		plans:     map[string]*model.Plan{},
		templates: map[string]*model.Template{},
		orders:    map[string]*model.Order{},
		users:     map[string]*model.User{},
		emails:    map[string]string{},
	}
}

func (s *Store) Plans() *PlanRepo         { return &PlanRepo{s: s} }
func (s *Store) Templates() *TemplateRepo { return &TemplateRepo{s: s} }
func (s *Store) Orders() *OrderRepo       { return &OrderRepo{s: s} }
func (s *Store) Users() *UserRepo         { return &UserRepo{s: s} }
func (s *Store) TxManager() *TxManager    { return &TxManager{} }

// ---- transactions ----

var _ repository.TransactionManager = (*TxManager)(nil)

// Tx collects undo actions for the writes made through it.
type Tx struct {
	mu   sync.Mutex
	undo []func()
}

func (t *Tx) onRollback(f func()) {
	t.mu.Lock()
	t.undo = append(t.undo, f)
	t.mu.Unlock()
}

func (t *Tx) rollback() {
	t.mu.Lock()
	undo := t.undo
	t.undo = nil
	t.mu.Unlock()
	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
}

// TxManager implements repository.TransactionManager. Writes are applied
// immediately and compensated in reverse order when fn fails or panics.
type TxManager struct{}

func (m *TxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &Tx{}
	done := false
	defer func() {
		if !done {
			tx.rollback()
		}
	}()
	if err := fn(ctx, tx); err != nil {
		return err
	}
	done = true
	return nil
}

// checkTx validates the execution context and returns the tx when there is one.
func checkTx(tx repository.Tx) (*Tx, error) {
	switch v := tx.(type) {
	case nil:
		return nil, nil
	case *Tx:
		return v, nil
	default:
		return nil, domain.ErrInvalidExecContext
	}
}

func record(tx *Tx, f func()) {
	if tx != nil {
		tx.onRollback(f)
	}
}
