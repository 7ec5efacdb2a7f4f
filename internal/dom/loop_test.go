package dom

import (
	"context"
	"errors"
	"testing"
	"time"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()

	loop := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = loop.Run(ctx) }()
	t.Cleanup(func() {
		loop.Close()
		<-loop.Stopped()
		cancel()
	})
	return loop
}

// TestLoop tests task ordering and lifecycle.
func TestLoop(t *testing.T) {
	t.Parallel()

	t.Run("runs tasks in order with microtasks in between", func(t *testing.T) {
		t.Parallel()

		loop := startLoop(t)
		var order []string

		loop.Post(func() {
			order = append(order, "task1")
			loop.QueueMicrotask(func() {
				order = append(order, "micro1")
				loop.QueueMicrotask(func() { order = append(order, "micro2") })
			})
		})
		loop.Post(func() { order = append(order, "task2") })

		var got []string
		if err := loop.Do(context.Background(), func() { got = append(got, order...) }); err != nil {
			t.Fatalf("Do failed: %v", err)
		}

		want := []string{"task1", "micro1", "micro2", "task2"}
		if len(got) != len(want) {
			t.Fatalf("order = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("order[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("Close drains queued tasks", func(t *testing.T) {
		t.Parallel()

		loop := NewLoop()
		ran := 0
		for range 3 {
			loop.Post(func() { ran++ })
		}
		loop.Close()

		if loop.Post(func() { ran++ }) {
			t.Error("Post after Close should report false")
		}
		if err := loop.Run(context.Background()); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if ran != 3 {
			t.Errorf("expected 3 tasks to run, got %d", ran)
		}
	})

	t.Run("Do on closed loop", func(t *testing.T) {
		t.Parallel()

		loop := NewLoop()
		loop.Close()

		err := loop.Do(context.Background(), func() {})
		if !errors.Is(err, ErrLoopClosed) {
			t.Errorf("expected ErrLoopClosed, got %v", err)
		}
	})

	t.Run("Run stops on context cancellation", func(t *testing.T) {
		t.Parallel()

		loop := NewLoop()
		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- loop.Run(ctx) }()
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Run did not return after cancel")
		}
	})
}
