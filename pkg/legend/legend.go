// Package legend models the value-to-color mapping shared by map rendering
// and the legend panel.
package legend

import (
	"fmt"
	"image/color"
	"math"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
)

// Entry is one row of a legend: either a discrete value or a half-open
// range (Min, Max]. The first range may start at -Inf and the last may end at
// +Inf.
type Entry struct {
	Range bool
	Value float64
	Min   float64
	Max   float64
	Color color.RGBA
	Label string
}

// Discrete returns an entry matching exactly v.
func Discrete(v float64, c color.RGBA, label string) Entry {
	return Entry{Value: v, Color: c, Label: label}
}

// Span returns a range entry for (min, max].
func Span(min, max float64, c color.RGBA, label string) Entry {
	return Entry{Range: true, Min: min, Max: max, Color: c, Label: label}
}

// Contains reports whether v belongs to this entry.
func (e Entry) Contains(v float64) bool {
	if !e.Range {
		return v == e.Value
	}
	return v > e.Min && v <= e.Max
}

// DistanceToZero is 0 for ranges spanning zero, otherwise the smallest
// absolute finite bound (or value).
func (e Entry) DistanceToZero() float64 {
	if !e.Range {
		return math.Abs(e.Value)
	}
	if e.Min < 0 && e.Max >= 0 {
		return 0
	}
	d := math.Inf(1)
	for _, b := range []float64{e.Min, e.Max} {
		if !math.IsInf(b, 0) {
			d = math.Min(d, math.Abs(b))
		}
	}
	return d
}

// Legend is an ordered list of entries, most negative first.
type Legend []Entry

// Find returns the first entry containing v.
func (l Legend) Find(v float64) (Entry, bool) {
	for _, e := range l {
		if e.Contains(v) {
			return e, true
		}
	}
	return Entry{}, false
}

// NearestZero returns the entry closest to zero; ties keep the earlier entry.
func (l Legend) NearestZero() (Entry, bool) {
	if len(l) == 0 {
		return Entry{}, false
	}
	best := l[0]
	for _, e := range l[1:] {
		if e.DistanceToZero() < best.DistanceToZero() {
			best = e
		}
	}
	return best, true
}

// Validate checks ordering and that infinite bounds only appear at the ends.
func (l Legend) Validate() error {
	for i, e := range l {
		if !e.Range {
			continue
		}
		if e.Min > e.Max {
			return errors.New(errors.ErrCodeInvalidInput, "legend entry %q has min %v above max %v", e.Label, e.Min, e.Max)
		}
		if math.IsInf(e.Min, -1) && i != 0 {
			return errors.New(errors.ErrCodeInvalidInput, "legend entry %q is open below but not first", e.Label)
		}
		if math.IsInf(e.Max, 1) && i != len(l)-1 {
			return errors.New(errors.ErrCodeInvalidInput, "legend entry %q is open above but not last", e.Label)
		}
		if i > 0 && l[i-1].Range && l[i-1].Max > e.Min {
			return errors.New(errors.ErrCodeInvalidInput, "legend entries %q and %q overlap", l[i-1].Label, e.Label)
		}
	}
	return nil
}

// FormatValue renders a bin bound for labels.
func FormatValue(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// AtMost labels the lowest open bin.
func AtMost(v float64) string { return "<= " + FormatValue(v) }

// Above labels the highest open bin.
func Above(v float64) string { return "> " + FormatValue(v) }

// Between labels a closed bin.
func Between(lo, hi float64) string { return FormatValue(lo) + " to " + FormatValue(hi) }
