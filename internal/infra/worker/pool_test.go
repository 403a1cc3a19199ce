//go:build !integration

package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestPool_RunsSubmittedTasks(t *testing.T) {
	// --- Arrange ---
	p := NewPool(3, nopLogger())
	p.Start(context.Background())

	var ran int32
	var wg sync.WaitGroup

	// --- Act ---
	for i := 0; i < 10; i++ {
		wg.Add(1)
		err := p.Submit(func(ctx context.Context) error {
			defer wg.Done()
			atomic.AddInt32(&ran, 1)
			if i%2 == 0 {
				return errors.New("task error")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}
	wg.Wait()
	p.Stop()

	// --- Assert ---
	if ran != 10 {
		t.Fatalf("expected 10 tasks to run, got %d", ran)
	}
}

func TestPool_SurvivesPanics(t *testing.T) {
	p := NewPool(1, nopLogger())
	p.Start(context.Background())
	defer p.Stop()

	done := make(chan struct{})
	_ = p.Submit(func(ctx context.Context) error { panic("boom") })
	_ = p.Submit(func(ctx context.Context) error { close(done); return nil })
	<-done
}

func TestPool_SubmitRejections(t *testing.T) {
	p := NewPool(1, nopLogger())

	if err := p.Submit(nil); err == nil {
		t.Error("expected nil task to be rejected")
	}

	// not started: the queue fills up
	for i := 0; i < 4; i++ {
		if err := p.Submit(func(ctx context.Context) error { return nil }); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}
	if err := p.Submit(func(ctx context.Context) error { return nil }); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	p.Stop()
	p.Stop()
	if err := p.Submit(func(ctx context.Context) error { return nil }); !errors.Is(err, ErrPoolStopped) {
		t.Fatalf("expected ErrPoolStopped, got %v", err)
	}
}

func TestPool_StopDrainsQueue(t *testing.T) {
	p := NewPool(1, nopLogger())
	var ran int32
	for i := 0; i < 3; i++ {
		_ = p.Submit(func(ctx context.Context) error { atomic.AddInt32(&ran, 1); return nil })
	}
	p.Start(context.Background())
	p.Stop()
	if ran != 3 {
		t.Fatalf("expected queued tasks to run before stop returns, got %d", ran)
	}
}
