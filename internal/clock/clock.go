// Package clock provides the single event loop the session runs on and the
// timer abstraction used for debounce, toggle locks and animation frames.
//
// Everything that mutates session state runs on one goroutine. Background
// work (HTTP fetches) and timer expiries hand their continuation to an
// Executor, which queues it onto that goroutine.
package clock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Executor schedules f to run on the event loop.
type Executor func(f func())

// Timer is a cancellable pending callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer (false if it already fired or was stopped).
	Stop() bool
}

// Scheduler runs callbacks after a delay, on the event loop.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is a wall-clock Scheduler whose callbacks go through an Executor.
type Real struct {
	exec Executor
}

func NewReal(exec Executor) *Real {
	return &Real{exec: exec}
}

func (r *Real) Now() time.Time { return time.Now() }

func (r *Real) AfterFunc(d time.Duration, f func()) Timer {
	rt := &realTimer{}
	rt.t = time.AfterFunc(d, func() {
		r.exec(func() {
			// Stop may have been called on the loop after the timer fired
			// but before this closure was dequeued.
			if rt.stopped.CompareAndSwap(false, true) {
				f()
			}
		})
	})
	return rt
}

type realTimer struct {
	t       *time.Timer
	stopped atomic.Bool
}

func (rt *realTimer) Stop() bool {
	rt.t.Stop()
	return rt.stopped.CompareAndSwap(false, true)
}

// Loop is an unbounded FIFO of closures drained by a single goroutine.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	notify chan struct{}
}

func NewLoop() *Loop {
	return &Loop{notify: make(chan struct{}, 1)}
}

// Post enqueues f. Safe from any goroutine, including the loop itself.
func (l *Loop) Post(f func()) {
	l.mu.Lock()
	l.queue = append(l.queue, f)
	l.mu.Unlock()
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// Run drains the queue until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.notify:
		}
	}
}

// Drain runs everything currently queued (and anything those closures
// enqueue) and returns how many closures ran.
func (l *Loop) Drain() int {
	n := 0
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return n
		}
		f := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()
		f()
		n++
	}
}

// Step waits up to timeout for at least one closure and drains the queue.
// It reports whether anything ran.
func (l *Loop) Step(timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if l.Drain() > 0 {
			return true
		}
		select {
		case <-l.notify:
		case <-deadline.C:
			return false
		}
	}
}
