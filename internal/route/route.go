// Package route maps locations to addressable paths of the form
// "/<slug>-gold-rate" and keeps the navigation history.
package route

import (
	"regexp"
	"strings"

	"gold-rate/internal/rates"
)

const suffix = "-gold-rate"

var (
	pathRE    = regexp.MustCompile(`^/([a-z-]+)-gold-rate/?$`)
	nonLetter = regexp.MustCompile(`[^a-z]+`)
)

// Slug lowercases location and joins its words with hyphens:
// "New Delhi" → "new-delhi".
func Slug(location string) string {
	s := nonLetter.ReplaceAllString(strings.ToLower(location), "-")
	return strings.Trim(s, "-")
}

// Path returns the route for location, or "/" when it has no slug.
func Path(location string) string {
	s := Slug(location)
	if s == "" {
		return "/"
	}
	return "/" + s + suffix
}

// CityFromPath extracts the display name from a route path. ok is false for
// paths that do not name a location.
func CityFromPath(path string) (string, bool) {
	m := pathRE.FindStringSubmatch(strings.ToLower(path))
	if m == nil {
		return "", false
	}
	name := strings.ReplaceAll(strings.Trim(m[1], "-"), "-", " ")
	if name == "" {
		return "", false
	}
	return rates.NormalizeCity(name), true
}

// Canonical is the absolute URL of location's page on site.
func Canonical(site, location string) string {
	return strings.TrimRight(site, "/") + Path(location)
}

// History records visited paths. Pushing the current path again is a no-op.
type History struct {
	entries []string
}

// Push appends path if it differs from the current one and reports whether
// it did.
func (h *History) Push(path string) bool {
	if cur, ok := h.Current(); ok && cur == path {
		return false
	}
	h.entries = append(h.entries, path)
	return true
}

// Current returns the latest path.
func (h *History) Current() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	return h.entries[len(h.entries)-1], true
}

// Len is the number of recorded entries.
func (h *History) Len() int { return len(h.entries) }

// Entries returns a copy of the recorded paths, oldest first.
func (h *History) Entries() []string { return append([]string(nil), h.entries...) }
