// Package raster holds single-band geospatial grids in memory and reads and
// writes them as GeoTIFF.
//
// Pixel values are kept as float64 regardless of the on-disk sample type; the
// original type is remembered in Grid.Type so integer rasters can be written
// back as integers. All grids are north-up or affine, described by a GDAL-style
// GeoTransform.
package raster

import (
	"math"
	"slices"
)

// DataType is the on-disk sample type of a raster band.
type DataType int

const (
	Unknown DataType = iota
	Byte
	UInt16
	Int16
	UInt32
	Int32
	Float32
	Float64
)

func (t DataType) String() string {
	switch t {
	case Byte:
		return "Byte"
	case UInt16:
		return "UInt16"
	case Int16:
		return "Int16"
	case UInt32:
		return "UInt32"
	case Int32:
		return "Int32"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	}
	return "Unknown"
}

// IsFloat reports whether the type holds floating point samples.
func (t DataType) IsFloat() bool { return t == Float32 || t == Float64 }

// Size returns the sample size in bytes.
func (t DataType) Size() int {
	switch t {
	case Byte:
		return 1
	case UInt16, Int16:
		return 2
	case UInt32, Int32, Float32:
		return 4
	case Float64:
		return 8
	}
	return 0
}

// DefaultNoData is assigned to grids that need a nodata value but were read
// without one.
const DefaultNoData = -9999

// GeoTransform maps pixel/line coordinates to georeferenced coordinates:
//
//	x = gt[0] + col*gt[1] + row*gt[2]
//	y = gt[3] + col*gt[4] + row*gt[5]
type GeoTransform [6]float64

// ToGeo returns the georeferenced coordinate of a (fractional) pixel position.
func (gt GeoTransform) ToGeo(col, row float64) (x, y float64) {
	return gt[0] + col*gt[1] + row*gt[2], gt[3] + col*gt[4] + row*gt[5]
}

// ToPixel inverts ToGeo. ok is false for a degenerate transform.
func (gt GeoTransform) ToPixel(x, y float64) (col, row float64, ok bool) {
	det := gt[1]*gt[5] - gt[2]*gt[4]
	if det == 0 {
		return 0, 0, false
	}
	dx, dy := x-gt[0], y-gt[3]
	col = (dx*gt[5] - dy*gt[2]) / det
	row = (dy*gt[1] - dx*gt[4]) / det
	return col, row, true
}

// Bounds is an axis-aligned extent in georeferenced units.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// Extent returns the bounds covered by a width x height grid.
func (gt GeoTransform) Extent(width, height int) Bounds {
	b := Bounds{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, c := range [][2]float64{{0, 0}, {float64(width), 0}, {0, float64(height)}, {float64(width), float64(height)}} {
		x, y := gt.ToGeo(c[0], c[1])
		b.MinX, b.MaxX = math.Min(b.MinX, x), math.Max(b.MaxX, x)
		b.MinY, b.MaxY = math.Min(b.MinY, y), math.Max(b.MaxY, y)
	}
	return b
}

// Grid is a single raster band with its georeferencing.
type Grid struct {
	Width, Height int
	Data          []float64 // row-major, len = Width*Height
	Transform     GeoTransform
	CRS           CRS
	NoData        float64
	HasNoData     bool
	Type          DataType
}

// New allocates a zeroed grid.
func New(width, height int, t DataType) *Grid {
	return &Grid{
		Width:     width,
		Height:    height,
		Data:      make([]float64, width*height),
		Transform: GeoTransform{0, 1, 0, 0, 0, -1},
		Type:      t,
	}
}

// At returns the value at (col, row).
func (g *Grid) At(col, row int) float64 { return g.Data[row*g.Width+col] }

// Set stores v at (col, row).
func (g *Grid) Set(col, row int, v float64) { g.Data[row*g.Width+col] = v }

// IsNoData reports whether v is the grid's nodata value. NaN is always nodata.
func (g *Grid) IsNoData(v float64) bool {
	if math.IsNaN(v) {
		return true
	}
	return g.HasNoData && v == g.NoData
}

// Valid reports whether v is a valid (non-nodata) pixel value.
func (g *Grid) Valid(v float64) bool { return !g.IsNoData(v) }

// Like returns an empty grid with the same geometry and nodata, filled with
// nodata (or zero if the grid has none).
func (g *Grid) Like(t DataType) *Grid {
	out := &Grid{
		Width:     g.Width,
		Height:    g.Height,
		Data:      make([]float64, len(g.Data)),
		Transform: g.Transform,
		CRS:       g.CRS,
		NoData:    g.NoData,
		HasNoData: g.HasNoData,
		Type:      t,
	}
	if g.HasNoData {
		out.Fill(g.NoData)
	}
	return out
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	out := *g
	out.Data = slices.Clone(g.Data)
	return &out
}

// Fill sets every pixel to v.
func (g *Grid) Fill(v float64) {
	for i := range g.Data {
		g.Data[i] = v
	}
}

// EnsureNoData assigns DefaultNoData if the grid has no nodata value.
func (g *Grid) EnsureNoData() {
	if !g.HasNoData {
		g.HasNoData = true
		g.NoData = DefaultNoData
	}
}

// ValidValues returns a copy of every valid pixel value.
func (g *Grid) ValidValues() []float64 {
	out := make([]float64, 0, len(g.Data))
	for _, v := range g.Data {
		if g.Valid(v) {
			out = append(out, v)
		}
	}
	return out
}

// Stats summarizes the valid pixels of a grid.
type Stats struct {
	Min, Max   float64
	ValidCount int
}

// Stats scans the grid once. Min and Max are 0 when there are no valid pixels.
func (g *Grid) Stats() Stats {
	s := Stats{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, v := range g.Data {
		if !g.Valid(v) {
			continue
		}
		s.ValidCount++
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	if s.ValidCount == 0 {
		s.Min, s.Max = 0, 0
	}
	return s
}

// Histogram counts valid values in [min, max] into equal-width buckets.
// Values equal to max land in the last bucket.
func (g *Grid) Histogram(min, max float64, buckets int) []int {
	counts := make([]int, buckets)
	if buckets <= 0 {
		return counts
	}
	width := (max - min) / float64(buckets)
	for _, v := range g.Data {
		if !g.Valid(v) || v < min || v > max {
			continue
		}
		i := buckets - 1
		if width > 0 {
			i = int((v - min) / width)
			if i >= buckets {
				i = buckets - 1
			}
		}
		counts[i]++
	}
	return counts
}

// SameGeometry reports whether two grids share dimensions, transform and CRS.
func (g *Grid) SameGeometry(o *Grid) bool {
	return g.Width == o.Width && g.Height == o.Height && g.Transform == o.Transform && g.CRS == o.CRS
}

// SampleNearest returns the value of the pixel containing (x, y).
// ok is false outside the grid.
func (g *Grid) SampleNearest(x, y float64) (v float64, ok bool) {
	col, row, ok := g.Transform.ToPixel(x, y)
	if !ok {
		return 0, false
	}
	c, r := int(math.Floor(col)), int(math.Floor(row))
	if c < 0 || r < 0 || c >= g.Width || r >= g.Height {
		return 0, false
	}
	return g.At(c, r), true
}
