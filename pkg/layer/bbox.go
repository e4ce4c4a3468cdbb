package layer

import (
	"context"
	"sync"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/raster"
)

// BoundingBox is a layer whose valid pixels define the study area. Other
// layers are cropped to its data extent and masked by its nodata.
type BoundingBox struct {
	*Layer

	once   sync.Once
	mask   *raster.Grid
	window window
	err    error
}

type window struct {
	col, row, width, height int
}

// NewBoundingBox wraps l as a bounding box.
func NewBoundingBox(l *Layer) *BoundingBox {
	return &BoundingBox{Layer: l}
}

// load computes the minimum data window of the box once.
func (b *BoundingBox) load(ctx context.Context) error {
	b.once.Do(func() {
		g, err := b.Read(ctx)
		if err != nil {
			b.err = err
			return
		}
		minCol, minRow, maxCol, maxRow := g.Width, g.Height, -1, -1
		for row := range g.Height {
			for col := range g.Width {
				if g.IsNoData(g.At(col, row)) {
					continue
				}
				minCol, maxCol = min(minCol, col), max(maxCol, col)
				minRow, maxRow = min(minRow, row), max(maxRow, row)
			}
		}
		if maxCol < 0 {
			b.err = errors.New(errors.ErrCodeInvalidInput, "bounding box %s has no valid pixels", b.path)
			return
		}
		b.window = window{col: minCol, row: minRow, width: maxCol - minCol + 1, height: maxRow - minRow + 1}

		mask := raster.New(b.window.width, b.window.height, raster.Byte)
		for row := range mask.Height {
			for col := range mask.Width {
				if g.Valid(g.At(col+minCol, row+minRow)) {
					mask.Set(col, row, 1)
				}
			}
		}
		x, y := g.Transform.ToGeo(float64(minCol), float64(minRow))
		mask.Transform = g.Transform
		mask.Transform[0], mask.Transform[3] = x, y
		mask.CRS = g.CRS
		b.mask = mask
	})
	return b.err
}

// Extent returns the width and height in pixels of the box's data window.
func (b *BoundingBox) Extent(ctx context.Context) (width, height int, err error) {
	if err := b.load(ctx); err != nil {
		return 0, 0, err
	}
	return b.window.width, b.window.height, nil
}

// Crop clips l to the box's data window at the box's resolution. Pixels are
// sampled nearest-neighbour, reprojecting when the reference systems differ,
// and pixels outside the box's data become nodata.
func (b *BoundingBox) Crop(ctx context.Context, l *Layer) (*Layer, error) {
	if err := b.load(ctx); err != nil {
		return nil, err
	}
	src, err := l.readRaw()
	if err != nil {
		return nil, err
	}
	crs := b.mask.CRS
	if src.CRS == 0 || crs == 0 {
		// Unknown references are assumed to agree.
		src.CRS = crs
	}

	out, err := raster.Resample(ctx, src, b.mask.Width, b.mask.Height, b.mask.Transform, crs)
	if err != nil {
		return nil, wrapf(err, "crop %s to %s", l.path, b.path)
	}
	for i, m := range b.mask.Data {
		if m == 0 {
			out.Data[i] = out.NoData
		}
	}

	l.logger.Debug("cropped", "layer", l.path, "box", b.path, "width", out.Width, "height", out.Height)
	return l.derive(out)
}
