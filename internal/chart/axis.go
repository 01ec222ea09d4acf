package chart

import (
	"fmt"
	"math"
	"time"
)

const (
	// TargetTicks is the approximate number of y-axis intervals.
	TargetTicks = 5
	// PadFraction of the data range is added above and below the series.
	PadFraction = 0.1
	// MinPad is the padding floor for a flat series.
	MinPad = 1.0
)

var niceMultipliers = []float64{1, 2, 5, 10}

// Bounds are y-axis limits snapped to a tick step.
type Bounds struct {
	Min, Max, Step float64
}

// NiceStep rounds raw up to the nearest {1,2,5,10}×10^k.
func NiceStep(raw float64) float64 {
	if raw <= 0 || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 1
	}
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, m := range niceMultipliers {
		if step := m * mag; step >= raw*(1-1e-9) {
			return step
		}
	}
	return 10 * mag
}

// ComputeBounds pads the min/max of values and snaps them outward to a nice
// step chosen so roughly TargetTicks intervals result.
func ComputeBounds(values []float64) Bounds {
	if len(values) == 0 {
		return Bounds{Min: 0, Max: 1, Step: 1}
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	pad := (hi - lo) * PadFraction
	if hi == lo {
		pad = math.Max(math.Abs(hi)*0.01, MinPad)
	}
	lo -= pad
	hi += pad
	step := NiceStep((hi - lo) / TargetTicks)
	return Bounds{
		Min:  math.Floor(lo/step) * step,
		Max:  math.Ceil(hi/step) * step,
		Step: step,
	}
}

// Ticks lists the tick values from Min to Max inclusive.
func (b Bounds) Ticks() []float64 {
	if b.Step <= 0 || b.Max < b.Min {
		return nil
	}
	n := int(math.Round((b.Max-b.Min)/b.Step)) + 1
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, b.Min+float64(i)*b.Step)
	}
	return out
}

// DateLayout is the history date format.
const DateLayout = "2006-01-02"

// Labels returns relative-day labels for dates: the newest is "Today",
// older ones "Nd" with N the days before the newest date. When any date does
// not parse, N falls back to the number of points back.
func Labels(dates []string) []string {
	n := len(dates)
	out := make([]string, n)
	if n == 0 {
		return out
	}
	days, ok := dayOffsets(dates)
	for i := range out {
		back := n - 1 - i
		if ok {
			back = days[i]
		}
		if i == n-1 || back == 0 {
			out[i] = "Today"
		} else {
			out[i] = fmt.Sprintf("%dd", back)
		}
	}
	return out
}

func dayOffsets(dates []string) ([]int, bool) {
	parsed := make([]time.Time, len(dates))
	for i, d := range dates {
		t, err := time.Parse(DateLayout, d)
		if err != nil {
			return nil, false
		}
		parsed[i] = t
	}
	newest := parsed[len(parsed)-1]
	out := make([]int, len(parsed))
	for i, t := range parsed {
		out[i] = int(math.Round(newest.Sub(t).Hours() / 24))
	}
	return out, true
}
