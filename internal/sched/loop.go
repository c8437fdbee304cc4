// Package sched is a cooperative single-threaded task scheduler. Every task
// runs on the goroutine that called Run, one at a time, so task bodies can
// share state without locks.
package sched

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned by Run when the loop was already run once.
var ErrStopped = errors.New("loop already stopped")

// Loop executes posted tasks in order.
type Loop struct {
	tasks chan func()

	mu      sync.Mutex
	timers  map[*Timer]struct{}
	stopped bool
	done    chan struct{}
}

// NewLoop returns a loop whose queue holds up to backlog pending tasks
// before Post blocks.
func NewLoop(backlog int) *Loop {
	return &Loop{
		tasks:  make(chan func(), max(backlog, 1)),
		timers: make(map[*Timer]struct{}),
		done:   make(chan struct{}),
	}
}

// Post queues fn. It returns false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do posts fn and waits for it to finish. It returns false if the loop
// stopped first. Do must not be called from a task.
func (l *Loop) Do(fn func()) bool {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-l.done:
		return false
	}
}

// Run executes tasks until ctx is cancelled. Pending timers are stopped on
// return.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrStopped
	}
	l.mu.Unlock()

	defer l.shutdown()
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.tasks:
			fn()
		}
	}
}

func (l *Loop) shutdown() {
	l.mu.Lock()
	l.stopped = true
	timers := l.timers
	l.timers = make(map[*Timer]struct{})
	l.mu.Unlock()

	close(l.done)
	for t := range timers {
		t.stop()
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Timer is a scheduled one-shot or repeating task.
type Timer struct {
	loop   *Loop
	mu     sync.Mutex
	timer  *time.Timer
	ticker *time.Ticker
	quit   chan struct{}
	once   sync.Once
}

// After runs fn on the loop once d has elapsed.
func (l *Loop) After(d time.Duration, fn func()) *Timer {
	t := &Timer{loop: l, quit: make(chan struct{})}
	if !l.track(t) {
		return t
	}
	t.mu.Lock()
	t.timer = time.AfterFunc(d, func() {
		l.untrack(t)
		select {
		case <-t.quit:
			return
		default:
		}
		l.Post(func() {
			select {
			case <-t.quit:
			default:
				fn()
			}
		})
	})
	t.mu.Unlock()
	return t
}

// MinPeriod is the shortest period Every will tick at.
const MinPeriod = time.Millisecond

// Every runs fn on the loop every d until stopped. Periods shorter than
// MinPeriod, including zero, tick at MinPeriod. Ticks that arrive while a
// previous run is still queued are dropped.
func (l *Loop) Every(d time.Duration, fn func()) *Timer {
	t := &Timer{loop: l, quit: make(chan struct{})}
	if !l.track(t) {
		return t
	}
	d = max(d, MinPeriod)
	t.ticker = time.NewTicker(d)
	go func() {
		pending := make(chan struct{}, 1)
		for {
			select {
			case <-t.quit:
				return
			case <-l.done:
				return
			case <-t.ticker.C:
				select {
				case pending <- struct{}{}:
				default:
					continue
				}
				ok := l.Post(func() {
					<-pending
					select {
					case <-t.quit:
					default:
						fn()
					}
				})
				if !ok {
					return
				}
			}
		}
	}()
	return t
}

// Stop cancels the timer. A task already queued on the loop is skipped.
func (t *Timer) Stop() {
	t.loop.untrack(t)
	t.stop()
}

func (t *Timer) stop() {
	t.once.Do(func() {
		close(t.quit)
		t.mu.Lock()
		if t.timer != nil {
			t.timer.Stop()
		}
		t.mu.Unlock()
		if t.ticker != nil {
			t.ticker.Stop()
		}
	})
}

func (l *Loop) track(t *Timer) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		t.stop()
		return false
	}
	l.timers[t] = struct{}{}
	return true
}

func (l *Loop) untrack(t *Timer) {
	l.mu.Lock()
	delete(l.timers, t)
	l.mu.Unlock()
}
