package render

import (
	"time"

	"gold-rate/internal/clock"
)

// GateState is the toggle lock state.
type GateState int

const (
	Idle GateState = iota
	Locked
)

func (s GateState) String() string {
	if s == Locked {
		return "locked"
	}
	return "idle"
}

// Gate serializes unit and grade toggles. A dispatched toggle locks the
// gate for the lock duration. Requests made while locked, or within the
// debounce window of the previous dispatch, are held; only the latest held
// request is applied, once, when the gate opens again.
type Gate struct {
	sched    clock.Scheduler
	lock     time.Duration
	debounce time.Duration

	state   GateState
	lastAt  time.Time
	hasLast bool
	pending func()
	timer   clock.Timer
	waiting clock.Timer
}

func NewGate(sched clock.Scheduler, lock, debounce time.Duration) *Gate {
	return &Gate{sched: sched, lock: lock, debounce: debounce}
}

// State returns Idle or Locked.
func (g *Gate) State() GateState { return g.state }

// Enabled reports whether a toggle would be applied immediately.
func (g *Gate) Enabled() bool { return g.state == Idle && g.pending == nil }

// Pending reports whether a held request is waiting for the gate to open.
func (g *Gate) Pending() bool { return g.pending != nil }

// Request applies f now or holds it. It reports whether f ran immediately.
func (g *Gate) Request(f func()) bool {
	if g.state == Locked {
		g.pending = f
		return false
	}
	if g.hasLast {
		if wait := g.debounce - g.sched.Now().Sub(g.lastAt); wait > 0 {
			g.pending = f
			if g.waiting == nil {
				g.waiting = g.sched.AfterFunc(wait, g.flush)
			}
			return false
		}
	}
	g.dispatch(f)
	return true
}

// Close drops any held request and stops the gate's timers.
func (g *Gate) Close() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	if g.waiting != nil {
		g.waiting.Stop()
		g.waiting = nil
	}
	g.pending = nil
	g.state = Idle
}

func (g *Gate) dispatch(f func()) {
	g.lastAt = g.sched.Now()
	g.hasLast = true
	if g.lock > 0 {
		g.state = Locked
		g.timer = g.sched.AfterFunc(g.lock, g.unlock)
	}
	f()
}

func (g *Gate) unlock() {
	g.timer = nil
	g.state = Idle
	g.flush()
}

func (g *Gate) flush() {
	g.waiting = nil
	if g.state == Locked || g.pending == nil {
		return
	}
	if wait := g.debounce - g.sched.Now().Sub(g.lastAt); wait > 0 {
		g.waiting = g.sched.AfterFunc(wait, g.flush)
		return
	}
	f := g.pending
	g.pending = nil
	g.dispatch(f)
}
