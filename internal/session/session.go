// Package session owns the current selection, the last payload and the
// view derived from them. A Session is driven from one event loop: the UI
// calls its methods there, and coordinator results and timers come back
// through the same loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"gold-rate/internal/apperr"
	"gold-rate/internal/cache"
	"gold-rate/internal/chart"
	"gold-rate/internal/clock"
	"gold-rate/internal/config"
	"gold-rate/internal/coord"
	"gold-rate/internal/logger"
	"gold-rate/internal/rates"
	"gold-rate/internal/render"
	"gold-rate/internal/route"
	"gold-rate/internal/share"
)

// Status lines set by the session itself. Everything else comes from
// apperr.Message.
const (
	StatusEmptyCity     = "Please enter a city"
	StatusOfflineCached = "Offline — showing saved prices"
	StatusOfflineEmpty  = "Offline — no saved data"
)

const storeTimeout = 2 * time.Second

// Deps are the collaborators a Session is built from.
type Deps struct {
	Config    *config.Config
	Fetcher   coord.Fetcher
	Net       coord.Connectivity // nil means always online
	Store     cache.Store
	Exec      clock.Executor
	Sched     clock.Scheduler
	Sharer    share.Sharer
	Clipboard share.Writer
	Chart     *chart.Adapter
}

// Session is the single owner of all mutable client state.
type Session struct {
	cfg   *config.Config
	store cache.Store
	coord *coord.Coordinator
	pipe  *render.Pipeline
	gate  *render.Gate

	sharer    share.Sharer
	clipboard share.Writer

	sel       rates.Selection // what is rendered
	want      rates.Selection // latest requested unit and grade
	payload   *rates.PricePayload
	fromCache bool
	pending   string // location of the in-flight price request

	history     route.History
	loading     bool
	status      string
	suggestions []string

	onChange func()
}

// New wires a session. Nothing is fetched until Start or Refresh.
func New(d Deps) *Session {
	cfg := d.Config
	sel := rates.DefaultSelection()
	if u := rates.Unit(cfg.DefaultUnit); u.Valid() {
		sel.Unit = u
	}
	if g, ok := rates.ParseGrade(cfg.DefaultGrade); ok {
		sel.Grade = g
	}
	s := &Session{
		cfg:       cfg,
		store:     d.Store,
		sharer:    d.Sharer,
		clipboard: d.Clipboard,
		sel:       sel,
		want:      sel,
	}
	s.pipe = render.NewPipeline(d.Sched, cfg, d.Chart)
	s.pipe.OnChange(s.changed)
	s.gate = render.NewGate(d.Sched, cfg.LockDuration(), cfg.ToggleDebounce)
	s.coord = coord.New(cfg, d.Fetcher, d.Net, d.Exec, d.Sched, s)
	s.pipe.Render(nil, sel, false)
	return s
}

// OnChange registers a callback run after every state change, including
// animation frames.
func (s *Session) OnChange(f func()) { s.onChange = f }

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// Start resolves the initial location: the city named by path, else the
// last used location, else the configured default.
func (s *Session) Start(path string) {
	city, ok := route.CityFromPath(path)
	if !ok {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		last, err := s.store.Meta(ctx, cache.MetaLastLocation)
		cancel()
		if err != nil {
			logger.Warn("session", fmt.Sprintf("read last location: %v", err))
		}
		city = last
	}
	if city == "" {
		city = s.cfg.DefaultCity
	}
	logger.Info("session", "starting with "+city)
	s.Refresh(city)
}

// Refresh normalizes input and fetches its prices. A cached payload is shown
// meanwhile when nothing for that location is on screen yet.
func (s *Session) Refresh(input string) {
	city := rates.NormalizeCity(input)
	if city == "" {
		s.status = StatusEmptyCity
		s.changed()
		return
	}
	if s.loading && rates.Key(s.pending) == rates.Key(city) {
		return
	}
	s.pending = city
	s.suggestions = nil
	s.coord.Navigate()

	if !s.showing(city) {
		if cached := s.cached(city); cached != nil {
			s.show(cached, true, false)
		}
	}
	s.coord.Refresh(city)
	s.changed()
}

// Input forwards a search box edit.
func (s *Session) Input(text string) { s.coord.Input(text) }

// Blur is called when the search box loses focus.
func (s *Session) Blur() {
	s.coord.Navigate()
	s.suggestions = nil
	s.changed()
}

// SelectSuggestion fetches the i-th suggestion.
func (s *Session) SelectSuggestion(i int) {
	if i < 0 || i >= len(s.suggestions) {
		return
	}
	s.Refresh(s.suggestions[i])
}

// SetUnit requests a unit change. It goes through the toggle gate.
func (s *Session) SetUnit(u rates.Unit) {
	if !u.Valid() {
		return
	}
	s.want.Unit = u
	s.gate.Request(s.applyToggle)
	s.changed()
}

// SetGrade requests a grade change. It goes through the toggle gate.
func (s *Session) SetGrade(g rates.Grade) {
	if !g.Valid() {
		return
	}
	s.want.Grade = g
	s.gate.Request(s.applyToggle)
	s.changed()
}

// CycleUnit moves to the unit after the latest requested one.
func (s *Session) CycleUnit() { s.SetUnit(s.want.Unit.Next()) }

// CycleGrade moves to the grade after the latest requested one.
func (s *Session) CycleGrade() { s.SetGrade(s.want.Grade.Next()) }

func (s *Session) applyToggle() {
	if s.sel.Unit == s.want.Unit && s.sel.Grade == s.want.Grade {
		return
	}
	s.sel.Unit = s.want.Unit
	s.sel.Grade = s.want.Grade
	s.pipe.Render(s.payload, s.sel, s.cfg.Animate)
	s.changed()
}

// View returns the current view.
func (s *Session) View() render.View {
	v := s.pipe.View()
	v.Loading = s.loading
	v.Status = s.status
	v.Suggestions = append([]string(nil), s.suggestions...)
	return v
}

// Selection returns what is rendered now.
func (s *Session) Selection() rates.Selection { return s.sel }

// Payload returns the rendered payload, or nil.
func (s *Session) Payload() *rates.PricePayload { return s.payload }

// FromCache reports whether the rendered payload came from the cache.
func (s *Session) FromCache() bool { return s.fromCache }

// ToggleEnabled reports whether a unit or grade change would apply at once.
func (s *Session) ToggleEnabled() bool { return s.gate.Enabled() }

// History lists the route paths pushed so far.
func (s *Session) History() []string { return s.history.Entries() }

// Sparkline draws the chart series for a terminal.
func (s *Session) Sparkline(width int) string { return s.pipe.Chart().Sparkline(width) }

// WriteChart encodes the current chart.
func (s *Session) WriteChart(w io.Writer, f chart.Format) error {
	return s.pipe.Chart().Render(w, f)
}

// Share publishes the current price through the best available channel.
func (s *Session) Share(ctx context.Context) (share.Channel, error) {
	if s.payload == nil {
		return share.None, errors.New("share: nothing to share yet")
	}
	text := share.Text(s.payload, s.sel, s.cfg.SiteBase)
	ch, err := share.Share(ctx, s.sharer, s.clipboard, text)
	if err != nil {
		logger.Warn("share", err.Error())
		return ch, err
	}
	logger.Success("share", "shared via "+ch.String())
	return ch, nil
}

// Settled reports whether no request, animation or held toggle remains.
func (s *Session) Settled() bool {
	return !s.loading &&
		s.coord.State(coord.Suggest) != coord.Pending &&
		!s.pipe.Animating() &&
		s.gate.Enabled()
}

// Close cancels in-flight work and stops all timers.
func (s *Session) Close() {
	s.coord.Close()
	s.gate.Close()
	s.pipe.Finish()
	s.loading = false
}

// PriceStarted implements coord.Handler.
func (s *Session) PriceStarted(string) {
	s.loading = true
	s.changed()
}

// PriceResolved implements coord.Handler. The cache is written before the
// payload is rendered.
func (s *Session) PriceResolved(location string, p *rates.PricePayload) {
	s.loading = false
	if p.Location == "" {
		p.Location = location
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	if err := s.store.Put(ctx, p); err != nil {
		logger.Warn("cache", fmt.Sprintf("store %s: %v", p.Location, err))
	}
	if err := s.store.SetMeta(ctx, cache.MetaLastLocation, p.Location); err != nil {
		logger.Warn("cache", fmt.Sprintf("store last location: %v", err))
	}
	cancel()

	s.show(p, false, s.cfg.Animate && s.showing(p.Location))
	s.history.Push(route.Path(p.Location))
	s.status = ""
	s.changed()
}

// PriceFailed implements coord.Handler.
func (s *Session) PriceFailed(location string, err error) {
	s.loading = false
	if apperr.Silent(err) {
		return
	}
	var cached *rates.PricePayload
	if !s.showing(location) || s.fromCache {
		cached = s.cached(location)
	}

	switch {
	case errors.Is(err, apperr.ErrOffline):
		if cached != nil {
			s.show(cached, true, false)
		}
		if cached != nil || s.showing(location) {
			s.status = StatusOfflineCached
		} else {
			s.status = StatusOfflineEmpty
		}
	default:
		if cached != nil && !s.showing(location) {
			s.show(cached, true, false)
		}
		s.status = apperr.Message(err)
	}
	logger.Warn("session", fmt.Sprintf("%s: %s", location, s.status))
	s.changed()
}

// SuggestionsReady implements coord.Handler.
func (s *Session) SuggestionsReady(_ string, names []string) {
	s.suggestions = names
	s.changed()
}

// SuggestionsClosed implements coord.Handler.
func (s *Session) SuggestionsClosed() {
	s.suggestions = nil
	s.changed()
}

func (s *Session) showing(location string) bool {
	return s.payload != nil && rates.Key(s.payload.Location) == rates.Key(location)
}

func (s *Session) cached(location string) *rates.PricePayload {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	p, err := s.store.Get(ctx, location)
	if err != nil {
		logger.Warn("cache", fmt.Sprintf("read %s: %v", location, err))
		return nil
	}
	return p
}

func (s *Session) show(p *rates.PricePayload, fromCache, animate bool) {
	s.payload = p
	s.fromCache = fromCache
	s.sel.Location = p.Location
	s.pipe.Render(p, s.sel, animate)
}
