package coord

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gold-rate/internal/apperr"
	"gold-rate/internal/clock"
	"gold-rate/internal/config"
	"gold-rate/internal/rates"
)

// gatedFetcher blocks each call until the test releases it by city/query.
type gatedFetcher struct {
	mu      sync.Mutex
	release map[string]chan struct{}
	errs    map[string]error
	calls   atomic.Int32
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{release: map[string]chan struct{}{}, errs: map[string]error{}}
}

func (f *gatedFetcher) gate(key string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.release[key]
	if !ok {
		ch = make(chan struct{})
		f.release[key] = ch
	}
	return ch
}

func (f *gatedFetcher) open(key string) { close(f.gate(key)) }

func (f *gatedFetcher) wait(ctx context.Context, key string) error {
	f.calls.Add(1)
	select {
	case <-f.gate(key):
	case <-ctx.Done():
		return apperr.ErrCancelled
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[key]
}

func (f *gatedFetcher) FullPrice(ctx context.Context, city string) (*rates.PricePayload, error) {
	if err := f.wait(ctx, city); err != nil {
		return nil, err
	}
	return &rates.PricePayload{Location: city, Prices: map[rates.Grade]float64{rates.G24: 10000}}, nil
}

func (f *gatedFetcher) Cities(ctx context.Context, q string) ([]string, error) {
	if err := f.wait(ctx, q); err != nil {
		return nil, err
	}
	return []string{q + "-1", q + "-2"}, nil
}

type recorder struct {
	started   []string
	resolved  []string
	failed    []error
	suggested [][]string
	closed    int
}

func (r *recorder) PriceStarted(l string)                         { r.started = append(r.started, l) }
func (r *recorder) PriceResolved(l string, _ *rates.PricePayload) { r.resolved = append(r.resolved, l) }
func (r *recorder) PriceFailed(_ string, err error)               { r.failed = append(r.failed, err) }
func (r *recorder) SuggestionsReady(_ string, n []string)         { r.suggested = append(r.suggested, n) }
func (r *recorder) SuggestionsClosed()                            { r.closed++ }

type onlineFlag struct{ v atomic.Bool }

func (o *onlineFlag) Online() bool { return o.v.Load() }

type harness struct {
	loop *clock.Loop
	fake *clock.Fake
	f    *gatedFetcher
	rec  *recorder
	net  *onlineFlag
	c    *Coordinator
}

func newHarness() *harness {
	h := &harness{
		loop: clock.NewLoop(),
		fake: clock.NewFake(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)),
		f:    newGatedFetcher(),
		rec:  &recorder{},
		net:  &onlineFlag{},
	}
	h.net.v.Store(true)
	h.c = New(config.Default(), h.f, h.net, h.loop.Post, h.fake, h.rec)
	return h
}

// settle runs the loop until cond holds or a second passes.
func (h *harness) settle(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		h.loop.Step(20 * time.Millisecond)
	}
}

func TestRefresh_OnlyLatestIsRendered(t *testing.T) {
	h := newHarness()
	h.c.Refresh("Pune")
	h.c.Refresh("Mumbai")

	h.f.open("Mumbai")
	h.settle(t, func() bool { return len(h.rec.resolved) == 1 })
	h.f.open("Pune")
	h.settle(t, func() bool { return h.c.Dropped() == 1 })

	if len(h.rec.resolved) != 1 || h.rec.resolved[0] != "Mumbai" {
		t.Fatalf("resolved = %v, want [Mumbai]", h.rec.resolved)
	}
	if len(h.rec.failed) != 0 {
		t.Errorf("failed = %v", h.rec.failed)
	}
	if h.c.State(Price) != Resolved {
		t.Errorf("State = %s, want resolved", h.c.State(Price))
	}
}

func TestRefresh_ReverseOrderStillLatestWins(t *testing.T) {
	h := newHarness()
	h.c.Refresh("Pune")
	h.c.Refresh("Mumbai")
	h.f.open("Pune")
	h.settle(t, func() bool { return h.c.Dropped() == 1 })
	if len(h.rec.resolved) != 0 {
		t.Fatalf("superseded Pune reached handler: %v", h.rec.resolved)
	}
	h.f.open("Mumbai")
	h.settle(t, func() bool { return len(h.rec.resolved) == 1 })
	if h.rec.resolved[0] != "Mumbai" {
		t.Errorf("resolved = %v", h.rec.resolved)
	}
}

func TestRefresh_FailureMapsToHandler(t *testing.T) {
	h := newHarness()
	h.f.errs["Atlantis"] = apperr.ErrNotFound
	h.c.Refresh("Atlantis")
	h.f.open("Atlantis")
	h.settle(t, func() bool { return len(h.rec.failed) == 1 })
	if !errors.Is(h.rec.failed[0], apperr.ErrNotFound) {
		t.Errorf("err = %v, want not found", h.rec.failed[0])
	}
	if h.c.State(Price) != Failed {
		t.Errorf("State = %s, want failed", h.c.State(Price))
	}
}

func TestRefresh_OfflineSkipsNetwork(t *testing.T) {
	h := newHarness()
	h.net.v.Store(false)
	h.c.Refresh("Mumbai")
	h.settle(t, func() bool { return len(h.rec.failed) == 1 })
	if !errors.Is(h.rec.failed[0], apperr.ErrOffline) {
		t.Errorf("err = %v, want offline", h.rec.failed[0])
	}
	if n := h.f.calls.Load(); n != 0 {
		t.Errorf("fetcher called %d times while offline", n)
	}
	if len(h.rec.started) != 1 {
		t.Errorf("started = %v, want one start before the offline failure", h.rec.started)
	}
}

func TestRefresh_ServiceErrorWhileOfflineBecomesOffline(t *testing.T) {
	h := newHarness()
	h.f.errs["Mumbai"] = apperr.ErrService
	h.c.Refresh("Mumbai")
	h.net.v.Store(false)
	h.f.open("Mumbai")
	h.settle(t, func() bool { return len(h.rec.failed) == 1 })
	if !errors.Is(h.rec.failed[0], apperr.ErrOffline) {
		t.Errorf("err = %v, want offline", h.rec.failed[0])
	}
}

func TestInput_DebouncesAndGuardsStaleness(t *testing.T) {
	h := newHarness()
	h.c.Input("m")
	if h.rec.closed != 1 {
		t.Fatalf("short query did not close suggestions")
	}

	h.c.Input("mu")
	h.fake.Advance(100 * time.Millisecond)
	h.c.Input("mum")
	h.fake.Advance(200 * time.Millisecond)
	if h.c.State(Suggest) != Idle {
		t.Fatalf("request issued inside debounce window: %s", h.c.State(Suggest))
	}
	h.fake.Advance(100 * time.Millisecond)
	if h.c.State(Suggest) != Pending {
		t.Fatalf("State = %s after debounce, want pending", h.c.State(Suggest))
	}

	// Input changes after the request left: the answer is stale.
	h.c.Input("mumb")
	h.f.open("mum")
	h.settle(t, func() bool { return h.c.Dropped() == 1 })
	if len(h.rec.suggested) != 0 {
		t.Errorf("stale suggestions applied: %v", h.rec.suggested)
	}

	h.fake.Advance(300 * time.Millisecond)
	h.f.open("mumb")
	h.settle(t, func() bool { return len(h.rec.suggested) == 1 })
	if got := h.rec.suggested[0]; len(got) != 2 || got[0] != "mumb-1" {
		t.Errorf("suggested = %v", got)
	}
	if n := h.f.calls.Load(); n != 2 {
		t.Errorf("Cities called %d times, want 2", n)
	}
}

func TestNavigate_CancelsSuggestion(t *testing.T) {
	h := newHarness()
	h.c.Input("pune")
	h.fake.Advance(300 * time.Millisecond)
	if h.c.State(Suggest) != Pending {
		t.Fatalf("State = %s, want pending", h.c.State(Suggest))
	}
	h.c.Navigate()
	if h.c.State(Suggest) != Cancelled {
		t.Errorf("State = %s after Navigate, want cancelled", h.c.State(Suggest))
	}

	h.c.Input("kochi")
	h.c.Navigate()
	h.fake.Advance(time.Second)
	if h.fake.Pending() != 0 {
		t.Errorf("debounce timer survived Navigate")
	}
	h.c.Close()
}
