package sched

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func runLoop(t *testing.T) (*Loop, context.CancelFunc) {
	t.Helper()
	l := NewLoop(64)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	return l, func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run returned %v", err)
		}
	}
}

func TestPostRunsInOrder(t *testing.T) {
	l, stop := runLoop(t)
	defer stop()

	var got []int
	for i := range 10 {
		l.Post(func() { got = append(got, i) })
	}
	l.Do(func() {})

	for i, v := range got {
		if v != i {
			t.Fatalf("expected task %d at position %d, got %d", i, i, v)
		}
	}
	if len(got) != 10 {
		t.Fatalf("expected 10 tasks, got %d", len(got))
	}
}

func TestAfterFiresOnce(t *testing.T) {
	l, stop := runLoop(t)
	defer stop()

	fired := make(chan struct{}, 2)
	l.After(10*time.Millisecond, func() { fired <- struct{}{} })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
	select {
	case <-fired:
		t.Fatal("timer fired twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStoppedTimerDoesNotFire(t *testing.T) {
	l, stop := runLoop(t)
	defer stop()

	var n atomic.Int32
	timer := l.After(20*time.Millisecond, func() { n.Add(1) })
	timer.Stop()
	time.Sleep(60 * time.Millisecond)
	l.Do(func() {})
	if n.Load() != 0 {
		t.Fatal("stopped timer fired")
	}
}

func TestEveryRepeatsUntilStopped(t *testing.T) {
	l, stop := runLoop(t)
	defer stop()

	var n atomic.Int32
	timer := l.Every(5*time.Millisecond, func() { n.Add(1) })
	deadline := time.Now().Add(2 * time.Second)
	for n.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	timer.Stop()
	if n.Load() < 3 {
		t.Fatalf("expected at least 3 runs, got %d", n.Load())
	}

	l.Do(func() {})
	after := n.Load()
	time.Sleep(30 * time.Millisecond)
	l.Do(func() {})
	if n.Load() != after {
		t.Fatalf("expected no runs after stop, got %d more", n.Load()-after)
	}
}

func TestEveryZeroIntervalStillTicks(t *testing.T) {
	l, stop := runLoop(t)
	defer stop()

	var n atomic.Int32
	timer := l.Every(0, func() { n.Add(1) })
	defer timer.Stop()
	deadline := time.Now().Add(2 * time.Second)
	for n.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if n.Load() < 3 {
		t.Fatalf("expected a zero period to keep ticking, got %d runs", n.Load())
	}
}

func TestDebouncerCollapsesBurst(t *testing.T) {
	l, stop := runLoop(t)
	defer stop()

	d := NewDebouncer(l, 30*time.Millisecond)
	var calls atomic.Int32
	var last atomic.Int32
	for i := range 5 {
		d.Trigger(func() {
			calls.Add(1)
			last.Store(int32(i))
		})
		time.Sleep(5 * time.Millisecond)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)

	if calls.Load() != 1 {
		t.Fatalf("expected 1 call, got %d", calls.Load())
	}
	if last.Load() != 4 {
		t.Fatalf("expected the last trigger to win, got %d", last.Load())
	}
}

func TestRunStopsTimersAndRejectsPosts(t *testing.T) {
	l, stop := runLoop(t)
	l.Every(time.Millisecond, func() {})
	l.After(time.Hour, func() {})
	stop()

	if l.Post(func() {}) {
		t.Fatal("expected Post to fail after Run returned")
	}
	if err := l.Run(context.Background()); err != ErrStopped {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}
