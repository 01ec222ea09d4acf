// Package share publishes the current price as text, through a native share
// command when one is installed and the system clipboard otherwise.
package share

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/atotto/clipboard"

	"gold-rate/internal/rates"
	"gold-rate/internal/route"
	"gold-rate/internal/units"
)

// Channel is how a share was delivered.
type Channel int

const (
	None Channel = iota
	Native
	Clipboard
)

func (c Channel) String() string {
	switch c {
	case Native:
		return "native"
	case Clipboard:
		return "clipboard"
	}
	return "none"
}

// ErrUnavailable is returned when neither channel can be used.
var ErrUnavailable = errors.New("share: no share channel available")

// Text builds the share message for the selected grade and unit.
func Text(p *rates.PricePayload, sel rates.Selection, site string) string {
	location := sel.Location
	if p != nil && p.Location != "" {
		location = p.Location
	}
	amount := units.Placeholder
	if base, ok := p.Price(sel.Grade); ok {
		amount = units.Display(base, sel.Unit)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s gold in %s: ₹%s per %s", sel.Grade, location, amount, sel.Unit.Label())
	if prev, curr, ok := p.LastTwo(sel.Grade); ok {
		a, okA := units.Scale(prev, sel.Unit)
		c, okC := units.Scale(curr, sel.Unit)
		pct, okP := units.Percent(prev, curr)
		if okA && okC && okP {
			fmt.Fprintf(&b, " (%s today)", units.FormatDelta(c.Sub(a), pct))
		}
	}
	if site != "" && location != "" {
		b.WriteString("\n")
		b.WriteString(route.Canonical(site, location))
	}
	return b.String()
}

// Sharer is a capability-gated share target.
type Sharer interface {
	Available() bool
	Share(ctx context.Context, text string) error
}

// Writer is a clipboard.
type Writer interface {
	Available() bool
	WriteAll(text string) error
}

// ExecSharer pipes the text into an external command, e.g. termux-share.
type ExecSharer struct {
	path string
	args []string
}

// NewExecSharer resolves command on PATH. An empty or missing command gives
// a sharer that reports itself unavailable.
func NewExecSharer(command string) *ExecSharer {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return &ExecSharer{}
	}
	path, err := exec.LookPath(fields[0])
	if err != nil {
		return &ExecSharer{}
	}
	return &ExecSharer{path: path, args: fields[1:]}
}

func (s *ExecSharer) Available() bool { return s.path != "" }

func (s *ExecSharer) Share(ctx context.Context, text string) error {
	if s.path == "" {
		return ErrUnavailable
	}
	cmd := exec.CommandContext(ctx, s.path, s.args...)
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("share via %s: %w: %s", s.path, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) Available() bool { return !clipboard.Unsupported }

func (SystemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// Share tries the native sharer first and falls back to the clipboard.
// Either argument may be nil.
func Share(ctx context.Context, s Sharer, cb Writer, text string) (Channel, error) {
	if s != nil && s.Available() {
		err := s.Share(ctx, text)
		if err == nil {
			return Native, nil
		}
		if ctx.Err() != nil || cb == nil || !cb.Available() {
			return None, err
		}
	}
	if cb != nil && cb.Available() {
		if err := cb.WriteAll(text); err != nil {
			return None, fmt.Errorf("copy to clipboard: %w", err)
		}
		return Clipboard, nil
	}
	return None, ErrUnavailable
}
