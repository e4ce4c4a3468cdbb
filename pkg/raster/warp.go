package raster

import (
	"context"
	"math"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
)

const edgeSamples = 21

// Resample fills a grid with the given geometry by nearest-neighbour lookup
// into src, transforming coordinates when the reference systems differ. Target
// pixels that fall outside src are nodata.
func Resample(ctx context.Context, src *Grid, width, height int, gt GeoTransform, crs CRS) (*Grid, error) {
	toSrc, err := NewTransform(crs, src.CRS)
	if err != nil {
		return nil, err
	}

	out := &Grid{
		Width:     width,
		Height:    height,
		Data:      make([]float64, width*height),
		Transform: gt,
		CRS:       crs,
		NoData:    src.NoData,
		HasNoData: src.HasNoData,
		Type:      src.Type,
	}
	out.EnsureNoData()

	for row := range height {
		if row%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for col := range width {
			x, y := gt.ToGeo(float64(col)+0.5, float64(row)+0.5)
			sx, sy, err := toSrc(x, y)
			v := out.NoData
			if err == nil {
				if sv, ok := src.SampleNearest(sx, sy); ok && src.Valid(sv) {
					v = sv
				}
			}
			out.Data[row*width+col] = v
		}
	}
	return out, nil
}

// Reproject warps src into dst using nearest-neighbour sampling. The output
// extent comes from transformed samples along the source edges and the output
// keeps roughly the source's pixel count.
func Reproject(ctx context.Context, src *Grid, dst CRS) (*Grid, error) {
	if src.CRS == dst {
		return src.Clone(), nil
	}
	fwd, err := NewTransform(src.CRS, dst)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnsupported, err, "reproject %s to %s", src.CRS, dst)
	}

	b := Bounds{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	w, h := float64(src.Width), float64(src.Height)
	for i := range edgeSamples {
		f := float64(i) / (edgeSamples - 1)
		for _, p := range [][2]float64{{f * w, 0}, {f * w, h}, {0, f * h}, {w, f * h}} {
			x, y := src.Transform.ToGeo(p[0], p[1])
			tx, ty, err := fwd(x, y)
			if err != nil {
				return nil, err
			}
			b.MinX, b.MaxX = math.Min(b.MinX, tx), math.Max(b.MaxX, tx)
			b.MinY, b.MaxY = math.Min(b.MinY, ty), math.Max(b.MaxY, ty)
		}
	}

	spanX, spanY := b.MaxX-b.MinX, b.MaxY-b.MinY
	if spanX <= 0 || spanY <= 0 {
		return nil, errors.New(errors.ErrCodeRuntime, "degenerate extent reprojecting to %s", dst)
	}
	res := math.Sqrt(spanX * spanY / float64(src.Width*src.Height))
	width := max(1, int(math.Ceil(spanX/res)))
	height := max(1, int(math.Ceil(spanY/res)))
	gt := GeoTransform{b.MinX, res, 0, b.MaxY, 0, -res}

	return Resample(ctx, src, width, height, gt, dst)
}
