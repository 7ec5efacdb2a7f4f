package dom

import (
	"context"
	"sync"
)

// Loop runs tasks one at a time on a single goroutine.
// Post may be called from any goroutine; QueueMicrotask only from a task.
type Loop struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool

	// micro is touched only by the goroutine executing Run.
	micro []func()

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewLoop creates a Loop. Call Run to start processing tasks.
func NewLoop() *Loop {
	return &Loop{
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Post enqueues fn to run on the loop. It reports false when the loop has
// been closed and fn will never run.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// QueueMicrotask schedules fn to run after the current task finishes and
// before the next task starts. It must be called from a task.
func (l *Loop) QueueMicrotask(fn func()) {
	l.micro = append(l.micro, fn)
}

// Do posts fn and waits until it has run.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrLoopClosed
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		// Run may have executed fn just before it returned.
		select {
		case <-finished:
			return nil
		default:
			return ErrLoopClosed
		}
	}
}

// Run processes tasks until ctx is cancelled or Close is called. Tasks that
// were posted before Close still run; Run returns once the queue is empty.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.stopped) })
	defer l.Close()

	for {
		if fn, ok := l.next(); ok {
			fn()
			l.drainMicrotasks()
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			if l.pending() {
				continue
			}
			return nil
		case <-l.wake:
		}
	}
}

// Close stops the loop from accepting new tasks.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.closed {
		l.closed = true
		close(l.done)
	}
}

// Stopped is closed when Run has returned.
func (l *Loop) Stopped() <-chan struct{} {
	return l.stopped
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.tasks) == 0 {
		return nil, false
	}
	fn := l.tasks[0]
	l.tasks[0] = nil
	l.tasks = l.tasks[1:]
	return fn, true
}

func (l *Loop) pending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks) > 0
}

// drainMicrotasks runs microtasks, including ones queued while draining.
func (l *Loop) drainMicrotasks() {
	for len(l.micro) > 0 {
		fn := l.micro[0]
		l.micro[0] = nil
		l.micro = l.micro[1:]
		fn()
	}
}
