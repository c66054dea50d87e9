package dashboard

import (
	"fmt"
	"strings"
	"time"
)

// Range is a named lookback window.
type Range string

const (
	Range1D Range = "1D"
	Range1W Range = "1W"
	Range1M Range = "1M"
	Range3M Range = "3M"
	Range1Y Range = "1Y"
)

// Ranges lists the supported ranges from shortest to longest.
var Ranges = []Range{Range1D, Range1W, Range1M, Range3M, Range1Y}

// Valid reports whether r is one of the supported ranges.
func (r Range) Valid() bool {
	switch r {
	case Range1D, Range1W, Range1M, Range3M, Range1Y:
		return true
	}
	return false
}

// ParseRange parses a range tag case-insensitively.
func ParseRange(s string) (Range, error) {
	r := Range(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown range %q (want 1D, 1W, 1M, 3M or 1Y)", s)
	}
	return r, nil
}

// Cutoff returns the earliest time included in rng as seen from now. Months
// and years are calendar based. ok is false for unknown ranges.
func Cutoff(rng Range, now time.Time) (cutoff time.Time, ok bool) {
	switch rng {
	case Range1D:
		return now.AddDate(0, 0, -1), true
	case Range1W:
		return now.AddDate(0, 0, -7), true
	case Range1M:
		return now.AddDate(0, -1, 0), true
	case Range3M:
		return now.AddDate(0, -3, 0), true
	case Range1Y:
		return now.AddDate(-1, 0, 0), true
	}
	return time.Time{}, false
}

// FilterByRange returns the points with cutoff <= time <= now in a new slice.
// An unknown range returns points unchanged.
func FilterByRange(points []Point, rng Range, now time.Time) []Point {
	cutoff, ok := Cutoff(rng, now)
	if !ok {
		return points
	}
	out := make([]Point, 0, len(points))
	for _, p := range points {
		if p.Time.IsZero() || p.Time.Before(cutoff) || p.Time.After(now) {
			continue
		}
		out = append(out, p)
	}
	return out
}
