package rates

import (
	"fmt"
	"strconv"
	"strings"
)

// Grade is a purity tier of gold. The string value is the canonical label.
type Grade string

const (
	G24 Grade = "24K"
	G22 Grade = "22K"
	G18 Grade = "18K"
)

// Grades is the recognized grade set in display order.
var Grades = []Grade{G24, G22, G18}

// Valid reports whether g is one of the recognized grades.
func (g Grade) Valid() bool {
	switch g {
	case G24, G22, G18:
		return true
	}
	return false
}

func (g Grade) String() string { return string(g) }

// ParseGrade normalizes the naming variants the service and users produce
// ("24K", "24k", "24", "24kt", "24 carat", "k24", "karat_24") to a Grade.
func ParseGrade(s string) (Grade, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
	for _, w := range []string{"karat", "carat", "kt", "k"} {
		s = strings.TrimPrefix(s, w)
		s = strings.TrimSuffix(s, w)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return "", false
	}
	switch n {
	case 24:
		return G24, true
	case 22:
		return G22, true
	case 18:
		return G18, true
	}
	return "", false
}

// Unit is a display weight in grams applied as a multiplier to the
// per-gram price.
type Unit int

// Units is the fixed set of display units.
var Units = []Unit{1, 8, 10, 100}

func (u Unit) Valid() bool {
	switch u {
	case 1, 8, 10, 100:
		return true
	}
	return false
}

func (u Unit) Label() string { return fmt.Sprintf("%dg", int(u)) }

// ParseUnit accepts "8", "8g" or "8 g".
func ParseUnit(s string) (Unit, bool) {
	s = strings.TrimSuffix(strings.ToLower(strings.ReplaceAll(s, " ", "")), "g")
	n, err := strconv.Atoi(s)
	if err != nil || !Unit(n).Valid() {
		return 0, false
	}
	return Unit(n), true
}

// Next cycles through Units.
func (u Unit) Next() Unit {
	for i, v := range Units {
		if v == u {
			return Units[(i+1)%len(Units)]
		}
	}
	return Units[0]
}

// Next cycles through Grades.
func (g Grade) Next() Grade {
	for i, v := range Grades {
		if v == g {
			return Grades[(i+1)%len(Grades)]
		}
	}
	return Grades[0]
}
