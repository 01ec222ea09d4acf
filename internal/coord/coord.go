// Package coord runs the price and suggestion request state machines.
//
// At most one request per category is in flight. Starting a new one cancels
// the previous, and a superseded result is dropped when it reaches the event
// loop, so only the latest request can ever reach the Handler. All methods
// must be called on the event loop; results come back through the Executor.
package coord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gold-rate/internal/apperr"
	"gold-rate/internal/clock"
	"gold-rate/internal/config"
	"gold-rate/internal/logger"
	"gold-rate/internal/rates"
)

// Category identifies an independent request slot.
type Category int

const (
	Price Category = iota
	Suggest
)

func (c Category) String() string {
	if c == Suggest {
		return "suggest"
	}
	return "price"
}

// State of a request slot.
type State int

const (
	Idle State = iota
	Pending
	Resolved
	Cancelled
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	}
	return "idle"
}

// Fetcher is the remote price service.
type Fetcher interface {
	FullPrice(ctx context.Context, city string) (*rates.PricePayload, error)
	Cities(ctx context.Context, q string) ([]string, error)
}

// Connectivity reports whether the network is believed reachable.
type Connectivity interface {
	Online() bool
}

// Handler receives results on the event loop.
type Handler interface {
	PriceStarted(location string)
	PriceResolved(location string, p *rates.PricePayload)
	PriceFailed(location string, err error)
	SuggestionsReady(query string, names []string)
	SuggestionsClosed()
}

type slot struct {
	token  uint64
	state  State
	query  string
	cancel context.CancelFunc
}

// Coordinator owns both request slots and the suggestion debounce timer.
type Coordinator struct {
	fetch  Fetcher
	net    Connectivity
	exec   clock.Executor
	sched  clock.Scheduler
	h      Handler
	cfg    *config.Config
	slots  [2]slot
	input  string
	timer  clock.Timer
	closed bool

	dropped int
}

// New builds a coordinator. net may be nil, in which case the network is
// assumed reachable.
func New(cfg *config.Config, f Fetcher, net Connectivity, exec clock.Executor, sched clock.Scheduler, h Handler) *Coordinator {
	return &Coordinator{fetch: f, net: net, exec: exec, sched: sched, h: h, cfg: cfg}
}

// State returns the state of category c.
func (c *Coordinator) State(cat Category) State { return c.slots[cat].state }

// Dropped counts results discarded because a newer request superseded them.
func (c *Coordinator) Dropped() int { return c.dropped }

func (c *Coordinator) online() bool { return c.net == nil || c.net.Online() }

// Refresh fetches the full price for location, cancelling any pending price
// request first.
func (c *Coordinator) Refresh(location string) {
	if c.closed {
		return
	}
	s := c.begin(Price, location)
	token := s.token
	c.h.PriceStarted(location)

	if !c.online() {
		s.state = Failed
		c.exec(func() {
			if c.slots[Price].token == token {
				c.h.PriceFailed(location, fmt.Errorf("refresh %s: %w", location, apperr.ErrOffline))
			}
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
	s.cancel = cancel
	logger.Debug("coord", fmt.Sprintf("price request #%d for %s", token, location))

	go func() {
		p, err := c.fetch.FullPrice(ctx, location)
		c.exec(func() { c.finishPrice(token, location, p, err) })
	}()
}

func (c *Coordinator) finishPrice(token uint64, location string, p *rates.PricePayload, err error) {
	s := &c.slots[Price]
	if token != s.token || s.state != Pending {
		c.dropped++
		return
	}
	s.cancel()
	s.cancel = nil

	switch {
	case err == nil:
		s.state = Resolved
		c.h.PriceResolved(location, p)
	case errors.Is(err, apperr.ErrCancelled):
		// Cancelled from outside the coordinator. The handler still has to
		// leave its loading state; apperr.Silent keeps the status unchanged.
		s.state = Cancelled
		c.h.PriceFailed(location, err)
	default:
		s.state = Failed
		if !c.online() && !errors.Is(err, apperr.ErrOffline) && !errors.Is(err, apperr.ErrNotFound) {
			err = fmt.Errorf("%v: %w", err, apperr.ErrOffline)
		}
		logger.Warn("coord", fmt.Sprintf("price %s: %v", location, err))
		c.h.PriceFailed(location, err)
	}
}

// Input records the search box value and (re)starts the suggestion
// debounce. Queries shorter than the minimum close the suggestions.
func (c *Coordinator) Input(text string) {
	if c.closed {
		return
	}
	c.input = text
	c.stopTimer()

	q := strings.TrimSpace(text)
	if len([]rune(q)) < c.cfg.MinQueryLength {
		c.cancel(Suggest)
		c.h.SuggestionsClosed()
		return
	}
	c.timer = c.sched.AfterFunc(c.cfg.DebounceInterval, func() {
		c.timer = nil
		c.suggest(q)
	})
}

func (c *Coordinator) suggest(q string) {
	s := c.begin(Suggest, q)
	token := s.token
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
	s.cancel = cancel

	go func() {
		names, err := c.fetch.Cities(ctx, q)
		c.exec(func() { c.finishSuggest(token, q, names, err) })
	}()
}

func (c *Coordinator) finishSuggest(token uint64, q string, names []string, err error) {
	s := &c.slots[Suggest]
	if token != s.token || s.state != Pending {
		c.dropped++
		return
	}
	s.cancel()
	s.cancel = nil
	if err != nil {
		s.state = Failed
		logger.Debug("coord", fmt.Sprintf("suggest %q: %v", q, err))
		return
	}
	s.state = Resolved
	if strings.TrimSpace(c.input) != q {
		// The box changed while the request was in flight.
		c.dropped++
		return
	}
	c.h.SuggestionsReady(q, names)
}

// Navigate is called when focus leaves the search input.
func (c *Coordinator) Navigate() {
	c.stopTimer()
	c.cancel(Suggest)
}

// Close cancels everything. Results still in flight are dropped.
func (c *Coordinator) Close() {
	c.stopTimer()
	c.cancel(Price)
	c.cancel(Suggest)
	c.closed = true
}

// begin supersedes whatever is pending in cat and opens a new token.
func (c *Coordinator) begin(cat Category, query string) *slot {
	c.cancel(cat)
	s := &c.slots[cat]
	s.token++
	s.state = Pending
	s.query = query
	return s
}

func (c *Coordinator) cancel(cat Category) {
	s := &c.slots[cat]
	if s.state != Pending {
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = Cancelled
	logger.Debug("coord", fmt.Sprintf("%s request #%d cancelled", cat, s.token))
}

func (c *Coordinator) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
