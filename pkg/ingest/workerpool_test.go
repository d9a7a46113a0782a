package ingest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolRunsAllJobs(t *testing.T) {
	pool := NewWorkerPool(4, 8)
	pool.Start(context.Background())

	var ran atomic.Int64
	for i := 0; i < 100; i++ {
		err := pool.Submit(func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	pool.Close()

	if got := ran.Load(); got != 100 {
		t.Fatalf("ran %d jobs, want 100", got)
	}
}

func TestWorkerPoolSubmitAfterClose(t *testing.T) {
	pool := NewWorkerPool(1, 1)
	pool.Start(context.Background())
	pool.Close()

	err := pool.Submit(func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("Submit after Close = %v, want ErrPoolClosed", err)
	}
}

func TestWorkerPoolCollectsErrors(t *testing.T) {
	pool := NewWorkerPool(2, 8)
	pool.Start(context.Background())

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		if err := pool.Submit(func(ctx context.Context) error { return boom }); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	if err := pool.Submit(func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	pool.Close()

	var got int
	for err := range pool.Errors() {
		if !errors.Is(err, boom) {
			t.Fatalf("unexpected error: %v", err)
		}
		got++
	}
	if got != 3 {
		t.Fatalf("collected %d errors, want 3", got)
	}
}

func TestWorkerPoolSubmitCtxCanceled(t *testing.T) {
	pool := NewWorkerPool(1, 1)
	// Not started: the queue fills and SubmitCtx must bail on ctx instead
	// of blocking forever.
	if err := pool.Submit(func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pool.SubmitCtx(ctx, func(ctx context.Context) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("SubmitCtx = %v, want context.Canceled", err)
	}
}

func TestWorkerPoolSubmitRecoversFromCloseRace(t *testing.T) {
	pool := NewWorkerPool(1, 1)
	// Fill the queue so the next Submit blocks.
	if err := pool.Submit(func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	result := make(chan error, 1)
	go func() {
		result <- pool.Submit(func(ctx context.Context) error { return nil })
	}()

	time.Sleep(50 * time.Millisecond)
	pool.Start(context.Background())
	pool.Close()

	select {
	case err := <-result:
		if err != nil && !errors.Is(err, ErrPoolClosed) {
			t.Fatalf("blocked Submit = %v, want nil or ErrPoolClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Submit still blocked after Close")
	}
}
