// Package render turns a payload and the current selection into a View.
//
// Render is synchronous: every field of the returned View holds its final
// value. Animation frames arriving later only move the Shown text of cards
// toward values that are already set.
package render

import (
	"gold-rate/internal/insight"
	"gold-rate/internal/rates"
)

// Trend is the direction of a day-over-day change.
type Trend int

const (
	Neutral Trend = iota
	Up
	Down
)

func (t Trend) String() string {
	switch t {
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return "neutral"
}

// Card is one grade's price block.
type Card struct {
	Grade rates.Grade
	// Amount and Delta are the target texts.
	Amount string
	Delta  string
	// ShownAmount and ShownDelta are what is on screen right now; they equal
	// the targets once any transition has finished.
	ShownAmount string
	ShownDelta  string
	Trend       Trend
	Available   bool
}

// View is everything the UI draws.
type View struct {
	Heading      string
	Location     string
	Unit         rates.Unit
	Grade        rates.Grade
	Cards        []Card
	Insight      insight.Insight
	Updated      string
	ChartVisible bool

	// Session-owned fields, filled in by the session before handing the
	// view out.
	Loading     bool
	Status      string
	Suggestions []string
}

// Card returns the card for g.
func (v View) Card(g rates.Grade) (Card, bool) {
	for _, c := range v.Cards {
		if c.Grade == g {
			return c, true
		}
	}
	return Card{}, false
}

func (v View) clone() View {
	out := v
	out.Cards = append([]Card(nil), v.Cards...)
	out.Suggestions = append([]string(nil), v.Suggestions...)
	return out
}
