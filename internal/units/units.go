// Package units scales per-gram prices to display weights without drift.
//
// Amounts go through integer minor units (paise) before multiplication, so a
// value shown for a given base and unit is a pure function of the two:
// toggling 1g → 8g → 1g always lands on the same digits.
package units

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"gold-rate/internal/rates"
)

// Placeholder is shown wherever an amount is missing or invalid.
const Placeholder = "—"

const minorPlaces = 2

var hundred = decimal.NewFromInt(100)

// ToMinor converts base to integer minor units, rounding half away from zero.
func ToMinor(base float64) (int64, bool) {
	if math.IsNaN(base) || math.IsInf(base, 0) || base < 0 {
		return 0, false
	}
	return decimal.NewFromFloat(base).Shift(minorPlaces).Round(0).IntPart(), true
}

// Scale returns base × u computed on minor units. ok is false for NaN,
// infinite or negative input and for units outside the fixed set.
func Scale(base float64, u rates.Unit) (decimal.Decimal, bool) {
	if !u.Valid() {
		return decimal.Zero, false
	}
	minor, ok := ToMinor(base)
	if !ok {
		return decimal.Zero, false
	}
	return decimal.New(minor*int64(u), -minorPlaces), true
}

// Percent is the day-over-day change of the unscaled values, to two places.
func Percent(prev, curr float64) (decimal.Decimal, bool) {
	if prev <= 0 || math.IsNaN(prev) || math.IsNaN(curr) || math.IsInf(prev, 0) || math.IsInf(curr, 0) {
		return decimal.Zero, false
	}
	p := decimal.NewFromFloat(prev)
	return decimal.NewFromFloat(curr).Sub(p).Div(p).Mul(hundred).Round(2), true
}

// FormatAmount groups thousands and shows paise only when non-zero:
// 10000 → "10,000", 80000.5 → "80,000.50".
func FormatAmount(d decimal.Decimal) string {
	d = d.Round(minorPlaces)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	whole := d.Truncate(0)
	s := sign + humanize.Comma(whole.IntPart())
	if frac := d.Sub(whole); !frac.IsZero() {
		s += fmt.Sprintf(".%02d", frac.Shift(minorPlaces).IntPart())
	}
	return s
}

// FormatDelta renders a scaled difference with its percentage:
// "+100 (+1.01%)", "-800 (-1.01%)", "0 (0.00%)".
func FormatDelta(diff, pct decimal.Decimal) string {
	sign := ""
	switch diff.Sign() {
	case 1:
		sign = "+"
	case -1:
		sign = "-"
	}
	return fmt.Sprintf("%s%s (%s%s%%)", sign, FormatAmount(diff.Abs()), sign, pct.Abs().StringFixed(2))
}

// Display is Scale followed by FormatAmount, or Placeholder when invalid.
func Display(base float64, u rates.Unit) string {
	d, ok := Scale(base, u)
	if !ok {
		return Placeholder
	}
	return FormatAmount(d)
}
