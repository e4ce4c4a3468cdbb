package raster

import (
	"math"

	"github.com/tidwall/geodesic"
)

// Distance returns the geodesic distance in metres between two lon/lat points
// on the WGS84 ellipsoid.
func Distance(lon1, lat1, lon2, lat2 float64) float64 {
	var s12 float64
	geodesic.WGS84.Inverse(lat1, lon1, lat2, lon2, &s12, nil, nil)
	return s12
}

// CellAreaHa returns the area in hectares of the pixel at (col, row), measured
// from the geodesic lengths of its edges. Metric grids use |px*py|.
func (g *Grid) CellAreaHa(col, row int) float64 {
	if !g.CRS.IsGeographic() {
		return math.Abs(g.Transform[1]*g.Transform[5]) / 10000
	}
	x0, y0 := g.Transform.ToGeo(float64(col), float64(row))
	x1, _ := g.Transform.ToGeo(float64(col+1), float64(row))
	_, y1 := g.Transform.ToGeo(float64(col), float64(row+1))
	lonSize := Distance(x0, y0, x1, y0)
	latSize := Distance(x0, y0, x0, y1)
	return latSize * lonSize / 10000
}

// PixelSizeMetres returns the ground width of one pixel: |gt[1]| for projected
// grids, otherwise the geodesic length of the first pixel at the origin.
func (g *Grid) PixelSizeMetres() float64 {
	if !g.CRS.IsGeographic() {
		return math.Abs(g.Transform[1])
	}
	x0, y0 := g.Transform.ToGeo(0, 0)
	x1, y1 := g.Transform.ToGeo(1, 0)
	return Distance(x0, y0, x1, y1)
}
