package layer

import (
	"context"
	"math"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/raster"
	"github.com/matzehuels/gcbmanimation/pkg/units"
)

// BlendMode selects the pixelwise operation used by Blend.
type BlendMode int

const (
	Add BlendMode = iota
	Subtract
)

func (m BlendMode) String() string {
	if m == Subtract {
		return "-"
	}
	return "+"
}

// ConvertUnits rescales the layer's values into target units. Converting
// between per-hectare and absolute units multiplies or divides by each
// pixel's area in hectares, measured geodesically on geographic grids.
func (l *Layer) ConvertUnits(ctx context.Context, target units.Units) (*Layer, error) {
	g, err := l.readRaw()
	if err != nil {
		return nil, err
	}
	conv := l.units.ConversionFactor(target)
	out := g.Like(raster.Float64)

	areaFor := func(row int) float64 { return 1 }
	if l.units.PerArea != target.PerArea {
		if g.CRS.IsGeographic() {
			areaFor = func(row int) float64 { return g.CellAreaHa(0, row) }
		} else {
			area := g.CellAreaHa(0, 0)
			areaFor = func(int) float64 { return area }
		}
	}

	for row := range g.Height {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		area := areaFor(row)
		if l.units.PerArea != target.PerArea && (area <= 0 || math.IsNaN(area) || math.IsInf(area, 0)) {
			return nil, errors.New(errors.ErrCodeUnsupportedConversion,
				"cannot determine pixel area of %s at row %d", l.path, row)
		}
		for col := range g.Width {
			v := g.At(col, row)
			if g.IsNoData(v) {
				continue
			}
			v *= conv
			switch {
			case l.units.PerArea && !target.PerArea:
				v *= area
			case !l.units.PerArea && target.PerArea:
				v /= area
			}
			out.Set(col, row, v)
		}
	}

	l.logger.Debug("converted units", "layer", l.path, "from", l.units.Label, "to", target.Label)
	return l.derive(out, WithUnits(target))
}

// Reclassify maps the layer's codes through their labels onto the codes of a
// new interpretation, using nodata 0.
func (l *Layer) Reclassify(ctx context.Context, target Interpretation) (*Layer, error) {
	return l.ReclassifyWithNoData(ctx, target, 0)
}

// ReclassifyWithNoData is Reclassify with an explicit nodata value. Pixels
// whose label has no code in target become nodata, with one warning per label.
func (l *Layer) ReclassifyWithNoData(ctx context.Context, target Interpretation, nodata float64) (*Layer, error) {
	if !l.HasInterpretation() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "cannot reclassify %s: layer has no interpretation", l.path)
	}
	g, err := l.readRaw()
	if err != nil {
		return nil, err
	}

	inverse := target.Inverse()
	mapping := make(map[int]float64, len(l.interp))
	for _, code := range l.interp.Codes() {
		label := l.interp[code]
		if newCode, ok := inverse[label]; ok {
			mapping[code] = float64(newCode)
			continue
		}
		mapping[code] = nodata
		w := &errors.UnmappedValueWarning{Label: label, NoData: nodata}
		l.logger.Warn(w.Error(), "layer", l.path)
	}

	out := g.Like(raster.Int32)
	out.NoData, out.HasNoData = nodata, true
	for i, v := range g.Data {
		out.Data[i] = nodata
		if g.IsNoData(v) || v != math.Trunc(v) {
			continue
		}
		if nv, ok := mapping[int(v)]; ok {
			out.Data[i] = nv
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.logger.Debug("reclassified", "layer", l.path, "codes", len(target))
	return FromGrid(l.ws, out, l.year, WithInterpretation(target), WithUnits(l.units), WithLogger(l.logger))
}

// Flatten sets every valid pixel to value and drops the interpretation.
func (l *Layer) Flatten(ctx context.Context, value float64) (*Layer, error) {
	g, err := l.Read(ctx)
	if err != nil {
		return nil, err
	}
	t := raster.Int32
	if value != math.Trunc(value) {
		t = raster.Float64
	}
	out := g.Like(t)
	for i, v := range g.Data {
		if g.Valid(v) {
			out.Data[i] = value
		}
	}
	return FromGrid(l.ws, out, l.year, WithUnits(l.units), WithLogger(l.logger))
}

// Reproject warps the layer into crs using nearest-neighbour sampling.
func (l *Layer) Reproject(ctx context.Context, crs raster.CRS) (*Layer, error) {
	g, err := l.readRaw()
	if err != nil {
		return nil, err
	}
	out, err := raster.Reproject(ctx, g, crs)
	if err != nil {
		return nil, wrapf(err, "reproject %s", l.path)
	}
	return l.derive(out)
}

// Blend combines this layer with other pixel by pixel. Pixels where either
// input is nodata become this layer's nodata. The grids must match.
func (l *Layer) Blend(ctx context.Context, other *Layer, mode BlendMode) (*Layer, error) {
	a, err := l.readRaw()
	if err != nil {
		return nil, err
	}
	b, err := other.readRaw()
	if err != nil {
		return nil, err
	}
	if a.Width != b.Width || a.Height != b.Height {
		return nil, errors.New(errors.ErrCodeRuntime, "cannot blend %s (%dx%d) with %s (%dx%d)",
			l.path, a.Width, a.Height, other.path, b.Width, b.Height)
	}

	t := raster.Int32
	if a.Type.IsFloat() || b.Type.IsFloat() {
		t = raster.Float64
	}
	out := a.Like(t)
	for i := range a.Data {
		va, vb := a.Data[i], b.Data[i]
		if a.IsNoData(va) || b.IsNoData(vb) {
			continue
		}
		if mode == Subtract {
			out.Data[i] = va - vb
		} else {
			out.Data[i] = va + vb
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.derive(out)
}
