package render

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"gold-rate/internal/chart"
	"gold-rate/internal/clock"
	"gold-rate/internal/config"
	"gold-rate/internal/insight"
	"gold-rate/internal/rates"
	"gold-rate/internal/units"
)

// UpdatedLayout is the UTC timestamp layout of the "Updated" line.
const UpdatedLayout = "02 Jan 2006 15:04 UTC"

const (
	fieldAmount = "amount"
	fieldDiff   = "diff"
	fieldPct    = "pct"
)

func fieldID(g rates.Grade, part string) FieldID {
	return FieldID(string(g) + "/" + part)
}

// Pipeline owns the current View, its animator and the chart.
type Pipeline struct {
	anim  *Animator
	chart *chart.Adapter
	view  View

	shownDiff map[rates.Grade]decimal.Decimal
	shownPct  map[rates.Grade]decimal.Decimal

	onChange func()
}

// NewPipeline builds a pipeline whose animations run on sched.
func NewPipeline(sched clock.Scheduler, cfg *config.Config, ch *chart.Adapter) *Pipeline {
	if ch == nil {
		ch = chart.NewAdapter()
	}
	p := &Pipeline{
		chart:     ch,
		shownDiff: make(map[rates.Grade]decimal.Decimal),
		shownPct:  make(map[rates.Grade]decimal.Decimal),
	}
	p.anim = NewAnimator(sched, cfg.AnimationDuration, cfg.FrameInterval, p.frame)
	p.view = p.blank(rates.DefaultSelection())
	return p
}

// OnChange registers a callback run after every animation frame.
func (p *Pipeline) OnChange(f func()) { p.onChange = f }

// Chart exposes the chart adapter the pipeline updates.
func (p *Pipeline) Chart() *chart.Adapter { return p.chart }

// Animating reports whether any transition is still running.
func (p *Pipeline) Animating() bool { return p.anim.Active() > 0 }

// Finish jumps every running transition to its target.
func (p *Pipeline) Finish() { p.anim.Stop() }

// View returns a copy of the current view.
func (p *Pipeline) View() View { return p.view.clone() }

// Render derives the whole view from payload and sel. A nil payload renders
// placeholders for every grade.
func (p *Pipeline) Render(payload *rates.PricePayload, sel rates.Selection, animate bool) View {
	next := p.blank(sel)
	if payload != nil && payload.Location != "" {
		next.Location = payload.Location
		next.Heading = payload.Location + " Gold Price"
	}

	for i, g := range rates.Grades {
		card := &next.Cards[i]
		prevCard, hadCard := p.view.Card(g)

		amount, ok := scaledPrice(payload, g, sel.Unit)
		if !ok {
			p.anim.Clear(fieldID(g, fieldAmount))
			p.anim.Clear(fieldID(g, fieldDiff))
			p.anim.Clear(fieldID(g, fieldPct))
			delete(p.shownDiff, g)
			delete(p.shownPct, g)
			continue
		}
		card.Available = true
		card.Amount = units.FormatAmount(amount)
		card.ShownAmount = card.Amount
		if hadCard && prevCard.Available && animate {
			card.ShownAmount = prevCard.ShownAmount
		}

		diff, pct, ok := delta(payload, g, sel.Unit)
		if ok {
			card.Delta = units.FormatDelta(diff, pct)
			card.ShownDelta = card.Delta
			if hadCard && prevCard.ShownDelta != units.Placeholder && animate {
				card.ShownDelta = prevCard.ShownDelta
			}
			switch diff.Sign() {
			case 1:
				card.Trend = Up
			case -1:
				card.Trend = Down
			}
		} else {
			p.anim.Clear(fieldID(g, fieldDiff))
			p.anim.Clear(fieldID(g, fieldPct))
			delete(p.shownDiff, g)
			delete(p.shownPct, g)
		}
	}

	var histories []rates.HistoryPoint
	if payload != nil {
		histories = payload.History
	}
	next.Insight = insight.Generate(next.Location, histories, sel.Grade)
	next.Updated = updatedLine(payload, sel.Unit)

	p.chart.Update(chartPoints(payload, sel))
	next.ChartVisible = p.chart.Visible()

	// The view is complete before any animator callback can touch it.
	p.view = next

	for _, g := range rates.Grades {
		card, _ := p.view.Card(g)
		if !card.Available {
			continue
		}
		amount, _ := scaledPrice(payload, g, sel.Unit)
		p.anim.Set(fieldID(g, fieldAmount), amount, animate)
		if diff, pct, ok := delta(payload, g, sel.Unit); ok {
			p.anim.Set(fieldID(g, fieldDiff), diff, animate)
			p.anim.Set(fieldID(g, fieldPct), pct, animate)
		}
	}
	return p.view.clone()
}

func (p *Pipeline) blank(sel rates.Selection) View {
	v := View{
		Location: sel.Location,
		Unit:     sel.Unit,
		Grade:    sel.Grade,
		Cards:    make([]Card, len(rates.Grades)),
		Updated:  updatedLine(nil, sel.Unit),
	}
	if sel.Location != "" {
		v.Heading = sel.Location + " Gold Price"
	} else {
		v.Heading = "Gold Price"
	}
	for i, g := range rates.Grades {
		v.Cards[i] = Card{
			Grade:       g,
			Amount:      units.Placeholder,
			Delta:       units.Placeholder,
			ShownAmount: units.Placeholder,
			ShownDelta:  units.Placeholder,
		}
	}
	return v
}

func (p *Pipeline) frame(id FieldID, v decimal.Decimal) {
	gradePart, part, _ := strings.Cut(string(id), "/")
	g := rates.Grade(gradePart)
	idx := -1
	for i := range p.view.Cards {
		if p.view.Cards[i].Grade == g {
			idx = i
		}
	}
	if idx < 0 {
		return
	}
	card := &p.view.Cards[idx]
	switch part {
	case fieldAmount:
		card.ShownAmount = units.FormatAmount(v)
	case fieldDiff:
		p.shownDiff[g] = v
		card.ShownDelta = p.deltaText(g)
	case fieldPct:
		p.shownPct[g] = v
		card.ShownDelta = p.deltaText(g)
	}
	if p.onChange != nil {
		p.onChange()
	}
}

func (p *Pipeline) deltaText(g rates.Grade) string {
	diff, okD := p.shownDiff[g]
	pct, okP := p.shownPct[g]
	if !okD || !okP {
		card, _ := p.view.Card(g)
		return card.Delta
	}
	return units.FormatDelta(diff, pct)
}

func scaledPrice(payload *rates.PricePayload, g rates.Grade, u rates.Unit) (decimal.Decimal, bool) {
	base, ok := payload.Price(g)
	if !ok {
		return decimal.Zero, false
	}
	return units.Scale(base, u)
}

// delta is the scaled difference between the last two history points and
// the percentage change of the unscaled values.
func delta(payload *rates.PricePayload, g rates.Grade, u rates.Unit) (diff, pct decimal.Decimal, ok bool) {
	prev, curr, ok := payload.LastTwo(g)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	a, okA := units.Scale(prev, u)
	b, okB := units.Scale(curr, u)
	pct, okP := units.Percent(prev, curr)
	if !okA || !okB || !okP {
		return decimal.Zero, decimal.Zero, false
	}
	return b.Sub(a), pct, true
}

func chartPoints(payload *rates.PricePayload, sel rates.Selection) []chart.Point {
	series := payload.Series(sel.Grade)
	out := make([]chart.Point, 0, len(series))
	for _, s := range series {
		v, ok := units.Scale(s.Amount, sel.Unit)
		if !ok {
			continue
		}
		out = append(out, chart.Point{Date: s.Date, Value: v.InexactFloat64()})
	}
	return out
}

func updatedLine(payload *rates.PricePayload, u rates.Unit) string {
	ts := units.Placeholder
	if payload != nil && !payload.LastUpdated.IsZero() {
		ts = payload.LastUpdated.UTC().Format(UpdatedLayout)
	}
	return fmt.Sprintf("Updated: %s · per %s", ts, u.Label())
}
