// Package chart keeps one line chart of the active grade's history and
// updates it in place as selections and payloads change.
package chart

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"gold-rate/internal/units"
)

// Point is one scaled history value.
type Point struct {
	Date  string
	Value float64
}

// Format selects the image encoding for Render.
type Format int

const (
	PNG Format = iota
	SVG
)

var goldStroke = drawing.ColorFromHex("d4af37")

// Adapter owns a single go-chart Chart. The chart is built on the first
// Update and mutated afterwards: series values, ticks and range change,
// the object does not.
type Adapter struct {
	Width, Height int

	chart     *gochart.Chart
	series    *gochart.ContinuousSeries
	yRange    *gochart.ContinuousRange
	xRange    *gochart.ContinuousRange
	creations int

	points  []Point
	labels  []string
	bounds  Bounds
	visible bool
}

func NewAdapter() *Adapter {
	return &Adapter{Width: 720, Height: 320}
}

// Update replaces the displayed series. Fewer than two points hides the chart
// but keeps the chart object for the next update.
func (a *Adapter) Update(points []Point) {
	a.points = append(a.points[:0], points...)
	a.visible = len(points) >= 2
	if !a.visible {
		return
	}
	if a.chart == nil {
		a.create()
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(i)
		ys[i] = p.Value
	}
	dates := make([]string, len(points))
	for i, p := range points {
		dates[i] = p.Date
	}
	a.labels = Labels(dates)
	a.bounds = ComputeBounds(ys)

	a.series.XValues = xs
	a.series.YValues = ys
	a.xRange.Min, a.xRange.Max = 0, float64(len(points)-1)
	a.yRange.Min, a.yRange.Max = a.bounds.Min, a.bounds.Max

	xTicks := make([]gochart.Tick, len(points))
	for i, l := range a.labels {
		xTicks[i] = gochart.Tick{Value: float64(i), Label: l}
	}
	a.chart.XAxis.Ticks = xTicks

	yTicks := a.bounds.Ticks()
	a.chart.YAxis.Ticks = make([]gochart.Tick, len(yTicks))
	for i, v := range yTicks {
		a.chart.YAxis.Ticks[i] = gochart.Tick{Value: v, Label: units.FormatAmount(decimal.NewFromFloat(v))}
	}
}

func (a *Adapter) create() {
	a.series = &gochart.ContinuousSeries{
		Name: "price",
		Style: gochart.Style{
			StrokeColor: goldStroke,
			StrokeWidth: 3,
		},
	}
	a.xRange = &gochart.ContinuousRange{}
	a.yRange = &gochart.ContinuousRange{}
	a.chart = &gochart.Chart{
		Width:  a.Width,
		Height: a.Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 16, Left: 16, Right: 16, Bottom: 12},
		},
		XAxis:  gochart.XAxis{Range: a.xRange},
		YAxis:  gochart.YAxis{Range: a.yRange},
		Series: []gochart.Series{a.series},
	}
	a.creations++
}

// Visible reports whether the last update had enough points to draw.
func (a *Adapter) Visible() bool { return a.visible }

// Creations counts how many chart objects were built.
func (a *Adapter) Creations() int { return a.creations }

func (a *Adapter) Bounds() Bounds { return a.bounds }

func (a *Adapter) Labels() []string { return append([]string(nil), a.labels...) }

func (a *Adapter) Points() []Point { return append([]Point(nil), a.points...) }

// Render encodes the current chart.
func (a *Adapter) Render(w io.Writer, f Format) error {
	if !a.visible || a.chart == nil {
		return fmt.Errorf("chart: need at least 2 points, have %d", len(a.points))
	}
	provider := gochart.PNG
	if f == SVG {
		provider = gochart.SVG
	}
	return a.chart.Render(provider, w)
}

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws the current series within the snapped bounds using at
// most width cells.
func (a *Adapter) Sparkline(width int) string {
	if !a.visible || width <= 0 {
		return ""
	}
	vals := make([]float64, len(a.points))
	for i, p := range a.points {
		vals[i] = p.Value
	}
	if len(vals) > width {
		vals = resample(vals, width)
	}
	span := a.bounds.Max - a.bounds.Min
	var b strings.Builder
	for _, v := range vals {
		idx := 0
		if span > 0 {
			idx = int(math.Round((v - a.bounds.Min) / span * float64(len(sparkLevels)-1)))
		}
		idx = max(0, min(idx, len(sparkLevels)-1))
		b.WriteRune(sparkLevels[idx])
	}
	return b.String()
}

// resample keeps n evenly spaced values, always including the last one.
func resample(vals []float64, n int) []float64 {
	if n == 1 {
		return vals[len(vals)-1:]
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = vals[i*(len(vals)-1)/(n-1)]
	}
	return out
}
