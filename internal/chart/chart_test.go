package chart

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNiceStep(t *testing.T) {
	tests := []struct {
		raw, want float64
	}{
		{0.7, 1},
		{1, 1},
		{1.3, 2},
		{3, 5},
		{7, 10},
		{42, 50},
		{120, 200},
		{0, 1},
	}
	for _, tt := range tests {
		if got := NiceStep(tt.raw); got != tt.want {
			t.Errorf("NiceStep(%v) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestComputeBounds_PadsAndSnaps(t *testing.T) {
	b := ComputeBounds([]float64{9900, 10000})
	// range 100, pad 10 → [9890, 10010], raw step 24 → 50
	if b.Step != 50 {
		t.Fatalf("Step = %v, want 50", b.Step)
	}
	if b.Min != 9850 || b.Max != 10050 {
		t.Errorf("bounds = [%v, %v], want [9850, 10050]", b.Min, b.Max)
	}
	for _, v := range b.Ticks() {
		if v < b.Min || v > b.Max {
			t.Errorf("tick %v outside bounds", v)
		}
	}
}

func TestComputeBounds_FlatSeries(t *testing.T) {
	b := ComputeBounds([]float64{10000, 10000, 10000})
	if !(b.Min < 10000 && b.Max > 10000) {
		t.Errorf("flat series bounds = [%v, %v], want around 10000", b.Min, b.Max)
	}
	small := ComputeBounds([]float64{5, 5})
	if small.Max-small.Min < 2 {
		t.Errorf("small flat span = %v, want at least 2 (pad floor 1)", small.Max-small.Min)
	}
}

func TestLabels(t *testing.T) {
	tests := []struct {
		name  string
		dates []string
		want  []string
	}{
		{"consecutive", []string{"2026-10-14", "2026-10-15", "2026-10-16", "2026-10-17"}, []string{"3d", "2d", "1d", "Today"}},
		{"gaps", []string{"2026-10-10", "2026-10-15", "2026-10-17"}, []string{"7d", "2d", "Today"}},
		{"unparsed falls back to index", []string{"d1", "d2", "d3"}, []string{"2d", "1d", "Today"}},
		{"single", []string{"2026-10-17"}, []string{"Today"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Labels(tt.dates)
			if len(got) != len(tt.want) {
				t.Fatalf("Labels = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("Labels = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestAdapter_ReusesChartObject(t *testing.T) {
	a := NewAdapter()
	a.Update([]Point{{"d1", 9900}, {"d2", 10000}})
	a.Update([]Point{{"d1", 79200}, {"d2", 80000}})
	a.Update([]Point{{"d1", 1}, {"d2", 2}, {"d3", 3}})
	if a.Creations() != 1 {
		t.Fatalf("Creations = %d, want 1", a.Creations())
	}
	if got := a.Labels(); len(got) != 3 || got[2] != "Today" {
		t.Errorf("Labels = %v", got)
	}
	if a.series.YValues[2] != 3 {
		t.Errorf("series not updated in place: %v", a.series.YValues)
	}

	a.Update([]Point{{"2026-10-10", 1}, {"2026-10-15", 2}, {"2026-10-17", 3}})
	if got := a.Labels(); got[0] != "7d" || got[1] != "2d" || got[2] != "Today" {
		t.Errorf("Labels with gaps = %v, want [7d 2d Today]", got)
	}
	if a.Creations() != 1 {
		t.Errorf("Creations = %d after gap update, want 1", a.Creations())
	}
}

func TestAdapter_HiddenBelowTwoPoints(t *testing.T) {
	a := NewAdapter()
	a.Update([]Point{{"d1", 10000}})
	if a.Visible() {
		t.Fatal("chart visible with one point")
	}
	if a.Creations() != 0 {
		t.Errorf("Creations = %d, want 0", a.Creations())
	}
	var buf bytes.Buffer
	if err := a.Render(&buf, PNG); err == nil {
		t.Error("Render with one point should fail")
	}
	if s := a.Sparkline(10); s != "" {
		t.Errorf("Sparkline = %q, want empty", s)
	}

	a.Update([]Point{{"d1", 9900}, {"d2", 10000}})
	if !a.Visible() {
		t.Fatal("chart hidden with two points")
	}
	a.Update(nil)
	if a.Visible() || a.Creations() != 1 {
		t.Errorf("after empty update visible=%v creations=%d", a.Visible(), a.Creations())
	}
}

func TestAdapter_RenderSVG(t *testing.T) {
	a := NewAdapter()
	a.Update([]Point{{"d1", 9800}, {"d2", 9900}, {"d3", 10000}})
	var buf bytes.Buffer
	if err := a.Render(&buf, SVG); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "<svg") {
		t.Errorf("output is not svg: %.60q", buf.String())
	}
}

func TestAdapter_Sparkline(t *testing.T) {
	a := NewAdapter()
	pts := make([]Point, 30)
	for i := range pts {
		pts[i] = Point{Value: float64(9000 + i*10)}
	}
	a.Update(pts)
	s := a.Sparkline(12)
	if n := utf8.RuneCountInString(s); n != 12 {
		t.Fatalf("Sparkline width = %d, want 12", n)
	}
	r := []rune(s)
	if r[0] > r[len(r)-1] {
		t.Errorf("rising series drew %q", s)
	}
}
