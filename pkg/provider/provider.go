// Package provider retrieves non-spatial annual results for an indicator,
// either from a GCBM SQLite results database or by summing a stack of
// spatial output rasters.
package provider

import (
	"context"

	"github.com/matzehuels/gcbmanimation/pkg/layer"
	"github.com/matzehuels/gcbmanimation/pkg/units"
)

// ResultsProvider is a source of yearly indicator totals.
type ResultsProvider interface {
	// SimulationYears returns the first and last simulation year.
	SimulationYears(ctx context.Context) (start, end int, err error)

	// AnnualResult returns one point per year in the query range, in
	// ascending order, with 0 for years that have no result.
	AnnualResult(ctx context.Context, q Query) (Series, error)
}

// Query selects an annual result. Zero years mean the whole simulation.
// Zero Units mean tC.
type Query struct {
	Indicator   string
	StartYear   int
	EndYear     int
	Units       units.Units
	BoundingBox *layer.BoundingBox
}

func (q Query) units() units.Units {
	if q.Units.Scale == 0 {
		return units.Tc
	}
	return q.Units
}

// Point is one year's value.
type Point struct {
	Year  int
	Value float64
}

// Series is an ascending sequence of yearly values.
type Series []Point

// Years returns the series' years.
func (s Series) Years() []int {
	out := make([]int, len(s))
	for i, p := range s {
		out[i] = p.Year
	}
	return out
}

// Values returns the series' values.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

// Range returns the smallest and largest value. An empty series gives 0, 0.
func (s Series) Range() (lo, hi float64) {
	for i, p := range s {
		if i == 0 || p.Value < lo {
			lo = p.Value
		}
		if i == 0 || p.Value > hi {
			hi = p.Value
		}
	}
	return lo, hi
}

// fill builds a series over [start, end] from values, using 0 for missing
// years.
func fill(start, end int, values map[int]float64) Series {
	out := make(Series, 0, max(0, end-start+1))
	for y := start; y <= end; y++ {
		out = append(out, Point{Year: y, Value: values[y]})
	}
	return out
}
