// Package tui is the terminal front end. The bubbletea program is the event
// loop: background completions and timers reach the session as runMsg
// values through Program.Send.
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gold-rate/internal/cache"
	"gold-rate/internal/clock"
	"gold-rate/internal/config"
	"gold-rate/internal/coord"
	"gold-rate/internal/render"
	"gold-rate/internal/session"
	"gold-rate/internal/share"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	cardStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 2).Width(24)
	activeCard   = cardStyle.BorderForeground(lipgloss.Color("220"))
	gradeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	amountStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	gainStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	sparkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
	pickStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("220"))
)

// runMsg carries a closure onto the program's goroutine.
type runMsg func()

type startMsg struct{}

// relay is the Executor handed to the session. It is usable before the
// program exists; closures sent earlier are dropped.
type relay struct {
	p atomic.Pointer[tea.Program]
}

func (r *relay) exec(f func()) {
	if p := r.p.Load(); p != nil {
		p.Send(runMsg(f))
	}
}

// Model is the bubbletea model around one Session.
type Model struct {
	s      *session.Session
	input  textinput.Model
	typing bool
	cursor int
	width  int
	path   string
	flash  string
}

// NewModel wraps s. path is the initial route, e.g. "/mumbai-gold-rate".
func NewModel(s *session.Session, path string) Model {
	ti := textinput.New()
	ti.Placeholder = "Search city"
	ti.CharLimit = 40
	ti.Width = 30
	return Model{s: s, input: ti, path: path, cursor: -1, width: 80}
}

func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return startMsg{} }
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case startMsg:
		m.s.Start(m.path)
		return m, nil

	case runMsg:
		msg()
		if n := len(m.s.View().Suggestions); m.cursor >= n {
			m.cursor = n - 1
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.typing {
			return m.updateTyping(msg)
		}
		return m.updateBrowsing(msg)
	}
	return m, nil
}

func (m Model) updateTyping(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	suggestions := m.s.View().Suggestions
	switch msg.Type {
	case tea.KeyEsc:
		m.typing = false
		m.input.Blur()
		m.s.Blur()
		return m, nil
	case tea.KeyEnter:
		if m.cursor >= 0 && m.cursor < len(suggestions) {
			m.s.SelectSuggestion(m.cursor)
		} else {
			m.s.Refresh(m.input.Value())
		}
		m.typing = false
		m.cursor = -1
		m.input.Blur()
		m.input.SetValue("")
		return m, nil
	case tea.KeyDown:
		if m.cursor < len(suggestions)-1 {
			m.cursor++
		}
		return m, nil
	case tea.KeyUp:
		if m.cursor > -1 {
			m.cursor--
		}
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != before {
		m.cursor = -1
		m.s.Input(v)
	}
	return m, cmd
}

func (m Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "/", "i":
		m.typing = true
		return m, m.input.Focus()
	case "u":
		m.s.CycleUnit()
	case "g":
		m.s.CycleGrade()
	case "1":
		m.s.SetUnit(1)
	case "8":
		m.s.SetUnit(8)
	case "0":
		m.s.SetUnit(10)
	case "h":
		m.s.SetUnit(100)
	case "r":
		if loc := m.s.Selection().Location; loc != "" {
			m.s.Refresh(loc)
		}
	case "s":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		ch, err := m.s.Share(ctx)
		cancel()
		if err != nil {
			m.flash = "Share failed: " + err.Error()
		} else if ch == share.Clipboard {
			m.flash = "Copied to clipboard"
		} else {
			m.flash = "Shared"
		}
	}
	return m, nil
}

func (m Model) View() string {
	v := m.s.View()
	var b strings.Builder

	heading := v.Heading
	if v.Loading {
		heading += dimStyle.Render("  loading…")
	}
	b.WriteString(headingStyle.Render(heading) + "\n")
	b.WriteString(dimStyle.Render(v.Updated) + "\n\n")

	if m.typing || m.input.Value() != "" {
		b.WriteString(m.input.View() + "\n")
		for i, name := range v.Suggestions {
			line := "  " + name
			if i == m.cursor {
				line = pickStyle.Render("› " + name)
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	cards := make([]string, 0, len(v.Cards))
	for _, c := range v.Cards {
		cards = append(cards, renderCard(c, c.Grade == v.Grade, v.Loading && !c.Available))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...) + "\n")

	if v.Insight.Text != "" {
		b.WriteString(v.Insight.Text + "\n")
	}
	if v.ChartVisible {
		width := min(60, max(10, m.width-4))
		b.WriteString(sparkStyle.Render(m.s.Sparkline(width)) + "\n")
	}
	if v.Status != "" {
		b.WriteString(statusStyle.Render(v.Status) + "\n")
	}
	if m.flash != "" {
		b.WriteString(statusStyle.Render(m.flash) + "\n")
	}

	toggles := "enabled"
	if !m.s.ToggleEnabled() {
		toggles = "busy"
	}
	b.WriteString("\n" + dimStyle.Render(fmt.Sprintf(
		"/ search · u unit (%s) · g grade (%s) · r refresh · s share · q quit · toggles %s",
		v.Unit.Label(), v.Grade, toggles)))
	return b.String()
}

func renderCard(c render.Card, active, skeleton bool) string {
	style := cardStyle
	if active {
		style = activeCard
	}
	amount := c.ShownAmount
	delta := c.ShownDelta
	if skeleton {
		amount, delta = "░░░░░░", "░░░░"
	}
	switch c.Trend {
	case render.Up:
		delta = gainStyle.Render("▲ " + delta)
	case render.Down:
		delta = lossStyle.Render("▼ " + delta)
	default:
		delta = dimStyle.Render(delta)
	}
	return style.Render(gradeStyle.Render(string(c.Grade)) + "\n" +
		amountStyle.Render("₹"+amount) + "\n" + delta)
}

// Deps are the long-lived collaborators of the terminal program.
type Deps struct {
	Config  *config.Config
	Fetcher coord.Fetcher
	Net     coord.Connectivity
	Store   cache.Store
}

// Run starts the program on the alternate screen and blocks until it exits.
func Run(d Deps, path string) error {
	r := &relay{}
	s := session.New(session.Deps{
		Config:    d.Config,
		Fetcher:   d.Fetcher,
		Net:       d.Net,
		Store:     d.Store,
		Exec:      r.exec,
		Sched:     clock.NewReal(r.exec),
		Sharer:    share.NewExecSharer(d.Config.ShareCommand),
		Clipboard: share.SystemClipboard{},
	})
	defer s.Close()

	p := tea.NewProgram(NewModel(s, path), tea.WithAltScreen())
	r.p.Store(p)
	_, err := p.Run()
	return err
}
