package rates

import (
	"strings"
	"time"
	"unicode"
)

// PricePayload is one full price response for a location. It is immutable
// once decoded and replaced wholesale on every successful fetch.
type PricePayload struct {
	Location    string
	Prices      map[Grade]float64
	History     []HistoryPoint // oldest → newest
	LastUpdated time.Time
}

// HistoryPoint is one day of per-grade prices.
type HistoryPoint struct {
	Date    string
	Amounts map[Grade]float64
}

// Price returns the current per-gram price for g.
func (p *PricePayload) Price(g Grade) (float64, bool) {
	if p == nil {
		return 0, false
	}
	v, ok := p.Prices[g]
	return v, ok
}

// Series returns the history of g, skipping days that lack the grade.
func (p *PricePayload) Series(g Grade) []DatedAmount {
	if p == nil {
		return nil
	}
	out := make([]DatedAmount, 0, len(p.History))
	for _, h := range p.History {
		if v, ok := h.Amounts[g]; ok {
			out = append(out, DatedAmount{Date: h.Date, Amount: v})
		}
	}
	return out
}

// LastTwo returns the amounts of g at the two most recent history points.
// Both points must carry the grade.
func (p *PricePayload) LastTwo(g Grade) (prev, curr float64, ok bool) {
	if p == nil || len(p.History) < 2 {
		return 0, 0, false
	}
	a, okA := p.History[len(p.History)-2].Amounts[g]
	b, okB := p.History[len(p.History)-1].Amounts[g]
	if !okA || !okB || a == 0 || b == 0 {
		return 0, 0, false
	}
	return a, b, true
}

// DatedAmount is a single point of a per-grade series.
type DatedAmount struct {
	Date   string
	Amount float64
}

// Selection is the user's current choice. Grade and unit changes are local;
// a location change triggers a fetch.
type Selection struct {
	Location string
	Unit     Unit
	Grade    Grade
}

// DefaultSelection is the selection before anything is resolved.
func DefaultSelection() Selection {
	return Selection{Unit: 1, Grade: G24}
}

// NormalizeCity trims input and title-cases each word: "new  delhi" → "New Delhi".
func NormalizeCity(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	for i, f := range fields {
		r := []rune(f)
		r[0] = unicode.ToUpper(r[0])
		fields[i] = string(r)
	}
	return strings.Join(fields, " ")
}

// Key is the normalized location key used for caching.
func Key(location string) string {
	return strings.ToLower(strings.Join(strings.Fields(location), " "))
}
