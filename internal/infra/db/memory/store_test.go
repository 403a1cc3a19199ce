//go:build !integration

package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"credits-engine/internal/domain"
	"credits-engine/internal/domain/model"
	"credits-engine/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
)

func seedOrder(t *testing.T, s *Store, createdAt time.Time) *model.Order {
	t.Helper()
	o, err := model.NewOrder(model.Customer{
		FirstName: "A", LastName: "B", Email: "a@x.com", PhoneNumber: "1", Country: "CM",
	}, "Starter", createdAt)
	if err != nil {
		t.Fatalf("NewOrder: %v", err)
	}
	if err := s.Orders().Save(context.Background(), repository.NoTX, o); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return o
}

func seedUser(t *testing.T, s *Store, email string, credits int64) *model.User {
	t.Helper()
	u := &model.User{ID: email + "-id", Email: email, Status: model.UserActive, CreditsRemaining: credits, CreatedAt: time.Now()}
	if err := s.Users().Create(context.Background(), repository.NoTX, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return u
}

func TestOrderRepo_TransitionFromPending(t *testing.T) {
	ctx := context.Background()

	t.Run("only one of many concurrent transitions wins", func(t *testing.T) {
		s := NewStore()
		o := seedOrder(t, s, time.Now())

		var wins, finalized int32
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			to := model.OrderValidated
			if i%2 == 1 {
				to = model.OrderCancelled
			}
			go func(to model.OrderStatus) {
				defer wg.Done()
				_, err := s.Orders().TransitionFromPending(ctx, nil, o.ID, to)
				switch {
				case err == nil:
					atomic.AddInt32(&wins, 1)
				case errors.Is(err, domain.ErrAlreadyFinalized):
					atomic.AddInt32(&finalized, 1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(to)
		}
		wg.Wait()

		if wins != 1 || finalized != 49 {
			t.Fatalf("expected 1 win and 49 finalized, got %d and %d", wins, finalized)
		}
	})

	t.Run("unknown order is not found", func(t *testing.T) {
		s := NewStore()
		_, err := s.Orders().TransitionFromPending(ctx, nil, "nope", model.OrderValidated)
		if domain.NotFoundEntity(err) != domain.EntityOrder {
			t.Fatalf("expected order not found, got %v", err)
		}
	})

	t.Run("rejects non-terminal target", func(t *testing.T) {
		s := NewStore()
		o := seedOrder(t, s, time.Now())
		if _, err := s.Orders().TransitionFromPending(ctx, nil, o.ID, model.OrderPending); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestOrderRepo_CancelIfExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore()
	old := seedOrder(t, s, now.Add(-49*time.Hour))
	young := seedOrder(t, s, now.Add(-1*time.Hour))
	cutoff := now.Add(-48 * time.Hour)

	pending, err := s.Orders().ListPendingOlderThan(ctx, nil, cutoff, 10)
	if err != nil {
		t.Fatalf("ListPendingOlderThan: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != old.ID {
		t.Fatalf("expected only the old order, got %d orders", len(pending))
	}

	if ok, _ := s.Orders().CancelIfExpired(ctx, nil, young.ID, cutoff); ok {
		t.Error("young order must not be cancelled")
	}
	if ok, _ := s.Orders().CancelIfExpired(ctx, nil, old.ID, cutoff); !ok {
		t.Error("old order must be cancelled")
	}
	if ok, _ := s.Orders().CancelIfExpired(ctx, nil, old.ID, cutoff); ok {
		t.Error("second cancellation must be a no-op")
	}
	got, _ := s.Orders().FindByID(ctx, nil, old.ID)
	if got.Status != model.OrderCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
}

func TestUserRepo_ConsumeCredits_NeverNegative(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	u := seedUser(t, s, "c@x.com", 10)

	var ok, insufficient int32
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Users().ConsumeCredits(ctx, nil, u.ID, 1)
			if err == nil {
				atomic.AddInt32(&ok, 1)
			} else if errors.Is(err, domain.ErrInsufficientCredits) {
				atomic.AddInt32(&insufficient, 1)
			}
		}()
	}
	wg.Wait()

	if ok != 10 || insufficient != 30 {
		t.Fatalf("expected 10 successes and 30 rejections, got %d and %d", ok, insufficient)
	}
	got, _ := s.Users().FindByID(ctx, nil, u.ID)
	if got.CreditsRemaining != 0 {
		t.Fatalf("expected balance 0, got %d", got.CreditsRemaining)
	}
}

func TestUserRepo_CreateRejectsDuplicateCanonicalEmail(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedUser(t, s, "dup@x.com", 0)

	err := s.Users().Create(ctx, nil, &model.User{ID: "other", Email: "  DUP@x.com ", CreatedAt: time.Now()})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	got, err := s.Users().FindByEmail(ctx, nil, "Dup@X.com")
	if err != nil || got.ID != "dup@x.com-id" {
		t.Fatalf("expected lookup by canonical email to succeed, got %v %v", got, err)
	}
}

func TestTxManager_RollsBackEveryWrite(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	o := seedOrder(t, s, time.Now())
	u := seedUser(t, s, "r@x.com", 5)
	boom := errors.New("boom")

	err := s.TxManager().WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := s.Orders().TransitionFromPending(ctx, tx, o.ID, model.OrderValidated); err != nil {
			return err
		}
		if _, err := s.Users().ApplyOrderCredit(ctx, tx, u.ID, 50, "plan", o.ID); err != nil {
			return err
		}
		fresh := &model.User{ID: "fresh", Email: "fresh@x.com", CreatedAt: time.Now()}
		if err := s.Users().Create(ctx, tx, fresh); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	gotOrder, _ := s.Orders().FindByID(ctx, nil, o.ID)
	if gotOrder.Status != model.OrderPending {
		t.Errorf("expected order back to pending, got %s", gotOrder.Status)
	}
	gotUser, _ := s.Users().FindByID(ctx, nil, u.ID)
	if gotUser.CreditsRemaining != 5 || len(gotUser.OrderIDs) != 0 || gotUser.ActivePlanID != nil {
		t.Errorf("expected user restored, got %+v", gotUser)
	}
	if _, err := s.Users().FindByEmail(ctx, nil, "fresh@x.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected created user removed, got %v", err)
	}
}

func TestRepos_RejectForeignExecContext(t *testing.T) {
	s := NewStore()
	if _, err := s.Orders().FindByID(context.Background(), struct{}{}, "x"); !errors.Is(err, domain.ErrInvalidExecContext) {
		t.Fatalf("expected ErrInvalidExecContext, got %v", err)
	}
}

func TestPlanRepo_FindByNameOrID(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := &model.Plan{ID: "p-1", Name: "Starter", Price: 10, CreditGrant: 50}
	if err := s.Plans().Save(ctx, nil, p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	for _, key := range []string{"p-1", "starter", "STARTER"} {
		got, err := s.Plans().FindByNameOrID(ctx, nil, key)
		if err != nil || got.ID != "p-1" {
			t.Errorf("lookup %q: got %v, %v", key, got, err)
		}
	}
	if _, err := s.Plans().FindByNameOrID(ctx, nil, "Gold"); domain.NotFoundEntity(err) != domain.EntityPlan {
		t.Errorf("expected plan not found, got %v", err)
	}
	if err := s.Plans().Save(ctx, nil, &model.Plan{ID: "p-2", Name: "starter"}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("expected duplicate name rejection, got %v", err)
	}
}

func TestTxManager_RollbackOfSpentGrantClampsAtZero(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	s := NewStore()
	o := seedOrder(t, s, time.Now())
	u := seedUser(t, s, "spent@x.com", 5)
	boom := errors.New("boom")

	// --- Act ---
	err := s.TxManager().WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := s.Users().ApplyOrderCredit(ctx, tx, u.ID, 50, "plan", o.ID); err != nil {
			return err
		}
		// writes are visible before commit, so a debit outside the tx can spend the grant
		if _, err := s.Users().ConsumeCredits(ctx, repository.NoTX, u.ID, 52); err != nil {
			return err
		}
		return boom
	})

	// --- Assert ---
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	got, _ := s.Users().FindByID(ctx, nil, u.ID)
	if got.CreditsRemaining != 0 {
		t.Fatalf("expected balance clamped to 0, got %d", got.CreditsRemaining)
	}
	if len(got.OrderIDs) != 0 || got.ActivePlanID != nil {
		t.Errorf("expected the grant link removed, got %+v", got)
	}
}
