// Package insight turns a price history into a one-line trend statement.
package insight

import (
	"fmt"

	"gold-rate/internal/rates"
)

// Kind is the category of an insight line.
type Kind int

const (
	Latest Kind = iota // fewer than two points
	High
	Low
	Up
	Down
	Unchanged
)

func (k Kind) String() string {
	switch k {
	case High:
		return "high"
	case Low:
		return "low"
	case Up:
		return "up"
	case Down:
		return "down"
	case Unchanged:
		return "unchanged"
	}
	return "latest"
}

// Insight is the derived trend line.
type Insight struct {
	Kind Kind
	Text string
}

// Classify applies the trend policy to a series ordered oldest → newest.
// A latest point that is the series maximum (or minimum) reports High (or
// Low) even when it also moved against the previous day; only otherwise is
// the day-over-day direction used.
func Classify(series []float64) Kind {
	if len(series) < 2 {
		return Latest
	}
	last := series[len(series)-1]
	min, max := series[0], series[0]
	for _, v := range series[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	prev := series[len(series)-2]
	switch {
	case last == max:
		return High
	case last == min:
		return Low
	case last > prev:
		return Up
	case last < prev:
		return Down
	}
	return Unchanged
}

// Generate builds the insight for grade g at location. Days that lack the
// grade are skipped.
func Generate(location string, history []rates.HistoryPoint, g rates.Grade) Insight {
	series := make([]float64, 0, len(history))
	for _, h := range history {
		if v, ok := h.Amounts[g]; ok {
			series = append(series, v)
		}
	}
	if location == "" {
		location = "your city"
	}
	kind := Classify(series)
	return Insight{Kind: kind, Text: text(kind, location, g, len(series))}
}

func text(k Kind, location string, g rates.Grade, days int) string {
	switch k {
	case High:
		return fmt.Sprintf("%s gold in %s is at its highest level in the last %d days.", g, location, days)
	case Low:
		return fmt.Sprintf("%s gold in %s is at its lowest level in the last %d days.", g, location, days)
	case Up:
		return fmt.Sprintf("%s gold in %s is up from the previous day.", g, location)
	case Down:
		return fmt.Sprintf("%s gold in %s is down from the previous day.", g, location)
	case Unchanged:
		return fmt.Sprintf("%s gold in %s is unchanged from the previous day.", g, location)
	}
	return fmt.Sprintf("Showing the latest available %s gold price in %s.", g, location)
}
