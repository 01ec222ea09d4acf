package goldapi

import (
	"context"
	"net"
	"net/url"
	"sync/atomic"
	"time"

	"gold-rate/internal/logger"
)

// Probe tracks connectivity to the service host in the background so the
// session can ask Online() without blocking its loop.
type Probe struct {
	addr   string
	online atomic.Bool
	dial   func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewProbe targets the host of base. It starts out optimistic.
func NewProbe(base string) *Probe {
	addr := base
	if u, err := url.Parse(base); err == nil && u.Host != "" {
		addr = u.Host
		if u.Port() == "" {
			if u.Scheme == "http" {
				addr = net.JoinHostPort(u.Hostname(), "80")
			} else {
				addr = net.JoinHostPort(u.Hostname(), "443")
			}
		}
	}
	p := &Probe{addr: addr, dial: (&net.Dialer{}).DialContext}
	p.online.Store(true)
	return p
}

// Online is the last observed connectivity state.
func (p *Probe) Online() bool { return p.online.Load() }

// Check dials the host once and records the result.
func (p *Probe) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	conn, err := p.dial(ctx, "tcp", p.addr)
	ok := err == nil
	if ok {
		conn.Close()
	}
	if was := p.online.Swap(ok); was != ok {
		if ok {
			logger.Success("NET", "Back online")
		} else {
			logger.Warn("NET", "Offline: "+err.Error())
		}
	}
	return ok
}

// Run checks every interval until ctx is done.
func (p *Probe) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	p.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.Check(ctx)
		}
	}
}
