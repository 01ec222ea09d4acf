package rates

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"gold-rate/internal/apperr"
)

// wirePayload mirrors the service's JSON. Grade keys inside prices and
// history entries arrive in assorted spellings and are normalized here, once.
type wirePayload struct {
	City        string                       `json:"city"`
	Prices      map[string]json.RawMessage   `json:"prices"`
	History     []map[string]json.RawMessage `json:"history"`
	LastUpdated json.RawMessage              `json:"last_updated"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Decode parses a full-price response. A body without city or prices is
// malformed; bad values below the top level are dropped so rendering
// degrades to placeholders instead of failing.
func Decode(data []byte) (*PricePayload, error) {
	var w wirePayload
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("decode payload: %v: %w", err, apperr.ErrMalformed)
	}
	if strings.TrimSpace(w.City) == "" {
		return nil, fmt.Errorf("payload missing city: %w", apperr.ErrMalformed)
	}
	if w.Prices == nil {
		return nil, fmt.Errorf("payload for %s missing prices: %w", w.City, apperr.ErrMalformed)
	}

	p := &PricePayload{
		Location:    strings.TrimSpace(w.City),
		Prices:      gradeAmounts(w.Prices),
		LastUpdated: parseTimestamp(w.LastUpdated),
	}
	for _, raw := range w.History {
		date := historyDate(raw["date"])
		delete(raw, "date")
		p.History = append(p.History, HistoryPoint{Date: date, Amounts: gradeAmounts(raw)})
	}
	sortHistory(p.History)
	return p, nil
}

// Encode writes p in the service's wire form so cached payloads go back
// through Decode on read.
func Encode(p *PricePayload) ([]byte, error) {
	prices := make(map[string]float64, len(p.Prices))
	for g, v := range p.Prices {
		prices[string(g)] = v
	}
	history := make([]map[string]interface{}, 0, len(p.History))
	for _, h := range p.History {
		m := map[string]interface{}{"date": h.Date}
		for g, v := range h.Amounts {
			m[string(g)] = v
		}
		history = append(history, m)
	}
	out := map[string]interface{}{
		"city":    p.Location,
		"prices":  prices,
		"history": history,
	}
	if !p.LastUpdated.IsZero() {
		out["last_updated"] = p.LastUpdated.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(out)
}

func gradeAmounts(raw map[string]json.RawMessage) map[Grade]float64 {
	out := make(map[Grade]float64, len(raw))
	for k, v := range raw {
		g, ok := ParseGrade(k)
		if !ok {
			continue
		}
		if f, ok := parseAmount(v); ok {
			out[g] = f
		}
	}
	return out
}

// parseAmount accepts JSON numbers and numeric strings ("10,250.5").
func parseAmount(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	s = strings.NewReplacer(",", "", "₹", "", " ", "").Replace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	return f, true
}

// parseTimestamp accepts an RFC3339-ish string or epoch seconds/milliseconds.
func parseTimestamp(raw json.RawMessage) time.Time {
	if len(raw) == 0 {
		return time.Time{}
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n > 1e12 {
			return time.UnixMilli(int64(n)).UTC()
		}
		return time.Unix(int64(n), 0).UTC()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// historyDate reads a history date given as a string or as an epoch
// timestamp; epochs become ISO days in UTC.
func historyDate(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	if t := parseTimestamp(raw); !t.IsZero() {
		return t.Format("2006-01-02")
	}
	return ""
}

// sortHistory orders points oldest first when every date is an ISO day;
// otherwise the service order is kept.
func sortHistory(h []HistoryPoint) {
	for _, p := range h {
		if _, err := time.Parse("2006-01-02", p.Date); err != nil {
			return
		}
	}
	sort.SliceStable(h, func(i, j int) bool { return h[i].Date < h[j].Date })
}
