package render

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"gold-rate/internal/clock"
)

// FieldID names one animated number.
type FieldID string

// Animator runs at most one transition per field. Starting a transition on a
// field cancels the one already running there.
type Animator struct {
	sched    clock.Scheduler
	duration time.Duration
	frame    time.Duration
	onFrame  func(FieldID, decimal.Decimal)

	fields map[FieldID]*field
}

type field struct {
	last   decimal.Decimal // target of the latest Set
	shown  decimal.Decimal // value most recently emitted
	active *transition
}

type transition struct {
	from, to decimal.Decimal
	start    time.Time
	timer    clock.Timer
}

// NewAnimator emits every intermediate and final value through onFrame.
func NewAnimator(sched clock.Scheduler, duration, frame time.Duration, onFrame func(FieldID, decimal.Decimal)) *Animator {
	if frame <= 0 {
		frame = 16 * time.Millisecond
	}
	return &Animator{
		sched:    sched,
		duration: duration,
		frame:    frame,
		onFrame:  onFrame,
		fields:   make(map[FieldID]*field),
	}
}

// EaseOutCubic maps linear progress p in [0,1] to eased progress.
func EaseOutCubic(p float64) float64 {
	p = math.Max(0, math.Min(1, p))
	return 1 - math.Pow(1-p, 3)
}

// Set moves id to target. With animate false, on the first value of a field,
// or when there is nothing to move, the value is applied at once.
func (a *Animator) Set(id FieldID, target decimal.Decimal, animate bool) {
	f, seen := a.fields[id]
	if !seen {
		f = &field{}
		a.fields[id] = f
	}
	a.cancel(f)
	f.last = target

	if !animate || !seen || a.duration <= 0 || f.shown.Equal(target) {
		a.emit(id, f, target)
		return
	}
	tr := &transition{from: f.shown, to: target, start: a.sched.Now()}
	f.active = tr
	tr.timer = a.sched.AfterFunc(a.frame, func() { a.step(id, f, tr) })
}

// Clear cancels any transition on id and forgets it, so the next Set is
// applied instantly.
func (a *Animator) Clear(id FieldID) {
	if f, ok := a.fields[id]; ok {
		a.cancel(f)
		delete(a.fields, id)
	}
}

// Last returns the latest target set on id.
func (a *Animator) Last(id FieldID) (decimal.Decimal, bool) {
	f, ok := a.fields[id]
	if !ok {
		return decimal.Zero, false
	}
	return f.last, true
}

// Active counts running transitions.
func (a *Animator) Active() int {
	n := 0
	for _, f := range a.fields {
		if f.active != nil {
			n++
		}
	}
	return n
}

// Stop cancels every running transition, jumping each field to its target.
func (a *Animator) Stop() {
	for id, f := range a.fields {
		if f.active != nil {
			a.cancel(f)
			a.emit(id, f, f.last)
		}
	}
}

func (a *Animator) step(id FieldID, f *field, tr *transition) {
	if f.active != tr {
		return
	}
	p := float64(a.sched.Now().Sub(tr.start)) / float64(a.duration)
	if p >= 1 {
		f.active = nil
		a.emit(id, f, tr.to)
		return
	}
	eased := decimal.NewFromFloat(EaseOutCubic(p))
	v := tr.from.Add(tr.to.Sub(tr.from).Mul(eased)).Round(2)
	a.emit(id, f, v)
	tr.timer = a.sched.AfterFunc(a.frame, func() { a.step(id, f, tr) })
}

func (a *Animator) cancel(f *field) {
	if f.active != nil {
		f.active.timer.Stop()
		f.active = nil
	}
}

func (a *Animator) emit(id FieldID, f *field, v decimal.Decimal) {
	f.shown = v
	if a.onFrame != nil {
		a.onFrame(id, v)
	}
}
