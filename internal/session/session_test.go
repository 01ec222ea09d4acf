package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gold-rate/internal/apperr"
	"gold-rate/internal/cache"
	"gold-rate/internal/clock"
	"gold-rate/internal/config"
	"gold-rate/internal/rates"
	"gold-rate/internal/share"
)

func payloadFor(city string, prev, curr float64) *rates.PricePayload {
	return &rates.PricePayload{
		Location: city,
		Prices:   map[rates.Grade]float64{rates.G24: curr, rates.G22: curr * 0.92},
		History: []rates.HistoryPoint{
			{Date: "2026-10-16", Amounts: map[rates.Grade]float64{rates.G24: prev}},
			{Date: "2026-10-17", Amounts: map[rates.Grade]float64{rates.G24: curr}},
		},
		LastUpdated: time.Date(2026, 10, 17, 4, 0, 0, 0, time.UTC),
	}
}

// stubFetcher answers from a table. Cities listed in hold block until
// released.
type stubFetcher struct {
	mu       sync.Mutex
	payloads map[string]*rates.PricePayload
	errs     map[string]error
	hold     map[string]chan struct{}
	calls    atomic.Int32
}

func newStub() *stubFetcher {
	return &stubFetcher{
		payloads: map[string]*rates.PricePayload{},
		errs:     map[string]error{},
		hold:     map[string]chan struct{}{},
	}
}

func (f *stubFetcher) FullPrice(ctx context.Context, city string) (*rates.PricePayload, error) {
	f.calls.Add(1)
	f.mu.Lock()
	ch := f.hold[city]
	f.mu.Unlock()
	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, apperr.ErrCancelled
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[city]; err != nil {
		return nil, err
	}
	if p := f.payloads[city]; p != nil {
		return p, nil
	}
	return nil, apperr.ErrNotFound
}

func (f *stubFetcher) Cities(_ context.Context, q string) ([]string, error) {
	return []string{"Mumbai", "Mysore"}, nil
}

type netFlag struct{ v atomic.Bool }

func (n *netFlag) Online() bool { return n.v.Load() }

type clip struct{ got string }

func (c *clip) Available() bool            { return true }
func (c *clip) WriteAll(text string) error { c.got = text; return nil }

type fixture struct {
	s     *Session
	loop  *clock.Loop
	fake  *clock.Fake
	f     *stubFetcher
	store cache.Store
	net   *netFlag
	clip  *clip
}

func newFixture(t *testing.T, animate bool) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Animate = animate
	fx := &fixture{
		loop:  clock.NewLoop(),
		fake:  clock.NewFake(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)),
		f:     newStub(),
		store: cache.NewMemoryStore(),
		net:   &netFlag{},
		clip:  &clip{},
	}
	fx.net.v.Store(true)
	fx.s = New(Deps{
		Config:    cfg,
		Fetcher:   fx.f,
		Net:       fx.net,
		Store:     fx.store,
		Exec:      fx.loop.Post,
		Sched:     fx.fake,
		Clipboard: fx.clip,
	})
	t.Cleanup(func() {
		fx.s.Close()
		fx.store.Close()
	})
	return fx
}

// settle drains the loop until no price request is outstanding.
func (fx *fixture) settle(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for fx.s.loading || fx.loop.Drain() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("session did not settle")
		}
		fx.loop.Step(20 * time.Millisecond)
	}
}

func TestStart_FromPathRendersAndCaches(t *testing.T) {
	fx := newFixture(t, false)
	fx.f.payloads["Mumbai"] = payloadFor("Mumbai", 9900, 10000)

	fx.s.Start("/mumbai-gold-rate")
	fx.settle(t)

	v := fx.s.View()
	c, _ := v.Card(rates.G24)
	if c.Amount != "10,000" || c.Delta != "+100 (+1.01%)" {
		t.Errorf("card = %q %q", c.Amount, c.Delta)
	}
	if v.Status != "" || v.Loading {
		t.Errorf("status=%q loading=%v", v.Status, v.Loading)
	}
	if got, _ := fx.store.Get(context.Background(), "mumbai"); got == nil {
		t.Error("payload not written to cache")
	}
	if last, _ := fx.store.Meta(context.Background(), cache.MetaLastLocation); last != "Mumbai" {
		t.Errorf("last location = %q", last)
	}
	if h := fx.s.History(); len(h) != 1 || h[0] != "/mumbai-gold-rate" {
		t.Errorf("History = %v", h)
	}
}

func TestStart_FallsBackToLastThenDefault(t *testing.T) {
	fx := newFixture(t, false)
	fx.f.payloads["India"] = payloadFor("India", 9800, 9900)
	fx.s.Start("/")
	fx.settle(t)
	if got := fx.s.Selection().Location; got != "India" {
		t.Errorf("default start = %q, want India", got)
	}

	fx2 := newFixture(t, false)
	fx2.store.SetMeta(context.Background(), cache.MetaLastLocation, "Pune")
	fx2.f.payloads["Pune"] = payloadFor("Pune", 9800, 9900)
	fx2.s.Start("/about")
	fx2.settle(t)
	if got := fx2.s.Selection().Location; got != "Pune" {
		t.Errorf("last-location start = %q, want Pune", got)
	}
}

func TestRefresh_SupersededFetchNeverRenders(t *testing.T) {
	fx := newFixture(t, false)
	fx.f.payloads["Pune"] = payloadFor("Pune", 9000, 9100)
	fx.f.payloads["Mumbai"] = payloadFor("Mumbai", 9900, 10000)
	fx.f.hold["Pune"] = make(chan struct{})

	fx.s.Refresh("pune")
	fx.s.Refresh("mumbai")
	fx.settle(t)
	close(fx.f.hold["Pune"])
	fx.loop.Step(50 * time.Millisecond)

	if got := fx.s.Selection().Location; got != "Mumbai" {
		t.Fatalf("rendered %q, want Mumbai", got)
	}
	if h := fx.s.History(); len(h) != 1 {
		t.Errorf("History = %v, want only Mumbai", h)
	}
	if p, _ := fx.store.Get(context.Background(), "Pune"); p != nil {
		t.Error("superseded Pune payload was cached")
	}
}

func TestRefresh_EmptyInputSetsStatus(t *testing.T) {
	fx := newFixture(t, false)
	fx.s.Refresh("   ")
	if v := fx.s.View(); v.Status != StatusEmptyCity {
		t.Errorf("Status = %q", v.Status)
	}
	if fx.f.calls.Load() != 0 {
		t.Error("empty input hit the network")
	}
}

func TestOffline_ShowsCachedPayload(t *testing.T) {
	fx := newFixture(t, false)
	fx.store.Put(context.Background(), payloadFor("Kochi", 9700, 9800))
	fx.net.v.Store(false)

	fx.s.Refresh("kochi")
	fx.settle(t)

	v := fx.s.View()
	if v.Status != StatusOfflineCached {
		t.Errorf("Status = %q, want %q", v.Status, StatusOfflineCached)
	}
	if c, _ := v.Card(rates.G24); c.Amount != "9,800" {
		t.Errorf("cached card = %q", c.Amount)
	}
	if !fx.s.FromCache() {
		t.Error("FromCache = false")
	}

	fx.s.Refresh("Surat")
	fx.settle(t)
	if v := fx.s.View(); v.Status != StatusOfflineEmpty || v.Location != "Kochi" {
		t.Errorf("no-cache offline: status=%q location=%q", v.Status, v.Location)
	}
}

func TestFailure_KeepsPreviousRender(t *testing.T) {
	fx := newFixture(t, false)
	fx.f.payloads["Mumbai"] = payloadFor("Mumbai", 9900, 10000)
	fx.s.Refresh("Mumbai")
	fx.settle(t)

	fx.s.Refresh("Atlantis")
	fx.settle(t)
	v := fx.s.View()
	if v.Status != "City not supported yet" {
		t.Errorf("Status = %q", v.Status)
	}
	if v.Location != "Mumbai" {
		t.Errorf("Location = %q, want previous render kept", v.Location)
	}

	fx.f.errs["Mumbai"] = apperr.ErrTimeout
	fx.s.Refresh("Mumbai")
	fx.settle(t)
	if v := fx.s.View(); v.Status != "Server timeout. Try again." {
		t.Errorf("Status = %q", v.Status)
	}
}

func TestToggles_RapidUnitChangesEndInLast(t *testing.T) {
	fx := newFixture(t, true)
	fx.f.payloads["Mumbai"] = payloadFor("Mumbai", 9900, 10000)
	fx.s.Refresh("Mumbai")
	fx.settle(t)

	for _, u := range []rates.Unit{8, 10, 100, 8} {
		fx.s.SetUnit(u)
		fx.fake.Advance(40 * time.Millisecond)
	}
	if fx.s.ToggleEnabled() {
		t.Fatal("toggle enabled inside lock window")
	}
	fx.fake.Advance(3 * time.Second)

	if got := fx.s.Selection().Unit; got != 8 {
		t.Fatalf("unit = %d, want 8", got)
	}
	c, _ := fx.s.View().Card(rates.G24)
	if c.Amount != "80,000" || c.ShownAmount != "80,000" {
		t.Errorf("card = %q shown %q, want 80,000", c.Amount, c.ShownAmount)
	}
	if !fx.s.Settled() {
		t.Error("session not settled after toggles")
	}
}

func TestToggle_GradeUsesHeldPayload(t *testing.T) {
	fx := newFixture(t, false)
	fx.f.payloads["Mumbai"] = payloadFor("Mumbai", 9900, 10000)
	fx.s.Refresh("Mumbai")
	fx.settle(t)
	before := fx.f.calls.Load()

	fx.s.CycleGrade()
	if got := fx.s.Selection().Grade; got != rates.G22 {
		t.Errorf("grade = %s, want 22K", got)
	}
	if fx.f.calls.Load() != before {
		t.Error("grade toggle hit the network")
	}
	if v := fx.s.View(); v.Insight.Text == "" {
		t.Error("insight not re-derived")
	}
}

func TestSuggestions_SelectRefreshes(t *testing.T) {
	fx := newFixture(t, false)
	fx.f.payloads["Mysore"] = payloadFor("Mysore", 9500, 9400)
	fx.s.Input("my")
	fx.fake.Advance(300 * time.Millisecond)
	deadline := time.Now().Add(time.Second)
	for len(fx.s.View().Suggestions) == 0 && time.Now().Before(deadline) {
		fx.loop.Step(20 * time.Millisecond)
	}
	if got := fx.s.View().Suggestions; len(got) != 2 {
		t.Fatalf("Suggestions = %v", got)
	}
	fx.s.SelectSuggestion(1)
	fx.settle(t)
	v := fx.s.View()
	if v.Location != "Mysore" || len(v.Suggestions) != 0 {
		t.Errorf("after select: location=%q suggestions=%v", v.Location, v.Suggestions)
	}
	if c, _ := v.Card(rates.G24); c.Trend.String() != "down" {
		t.Errorf("trend = %s, want down", c.Trend)
	}
}

func TestShare_FallsBackToClipboard(t *testing.T) {
	fx := newFixture(t, false)
	if _, err := fx.s.Share(context.Background()); err == nil {
		t.Error("Share with no payload should fail")
	}
	fx.f.payloads["Mumbai"] = payloadFor("Mumbai", 9900, 10000)
	fx.s.Refresh("Mumbai")
	fx.settle(t)

	ch, err := fx.s.Share(context.Background())
	if err != nil || ch != share.Clipboard {
		t.Fatalf("Share = %s, %v", ch, err)
	}
	if fx.clip.got == "" {
		t.Error("clipboard empty")
	}
}

func TestServiceError_FallsBackToCachedPayload(t *testing.T) {
	fx := newFixture(t, false)
	fx.store.Put(context.Background(), payloadFor("Kochi", 9700, 9800))
	fx.f.errs["Kochi"] = apperr.ErrService

	fx.s.Refresh("kochi")
	fx.settle(t)

	v := fx.s.View()
	if v.Status != "Service temporarily unavailable" {
		t.Errorf("Status = %q", v.Status)
	}
	if c, _ := v.Card(rates.G24); c.Amount != "9,800" || v.Location != "Kochi" {
		t.Errorf("card = %q at %q, want cached 9,800 at Kochi", c.Amount, v.Location)
	}
	if !fx.s.FromCache() {
		t.Error("FromCache = false")
	}
	if h := fx.s.History(); len(h) != 0 {
		t.Errorf("History = %v, cached render pushed a route", h)
	}
}

func TestRefresh_CachedRenderReplacedByNetwork(t *testing.T) {
	fx := newFixture(t, false)
	fx.store.Put(context.Background(), payloadFor("Mumbai", 9700, 9800))
	fx.f.payloads["Mumbai"] = payloadFor("Mumbai", 9900, 10000)
	fx.f.hold["Mumbai"] = make(chan struct{})

	fx.s.Refresh("Mumbai")
	v := fx.s.View()
	if !fx.s.FromCache() || !v.Loading {
		t.Fatalf("pending: FromCache=%v Loading=%v, want cached render while loading", fx.s.FromCache(), v.Loading)
	}
	if c, _ := v.Card(rates.G24); c.Amount != "9,800" {
		t.Errorf("pending card = %q, want cached 9,800", c.Amount)
	}

	close(fx.f.hold["Mumbai"])
	fx.settle(t)
	v = fx.s.View()
	if fx.s.FromCache() {
		t.Error("FromCache = true after the network answered")
	}
	if c, _ := v.Card(rates.G24); c.Amount != "10,000" || c.Delta != "+100 (+1.01%)" {
		t.Errorf("card = %q %q, want network 10,000 +100 (+1.01%%)", c.Amount, c.Delta)
	}
	if v.Status != "" {
		t.Errorf("Status = %q", v.Status)
	}
}
