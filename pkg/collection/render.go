package collection

import (
	"context"
	"maps"
	"slices"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/frame"
	"github.com/matzehuels/gcbmanimation/pkg/layer"
	"github.com/matzehuels/gcbmanimation/pkg/legend"
	"github.com/matzehuels/gcbmanimation/pkg/raster"
	"github.com/matzehuels/gcbmanimation/pkg/units"
)

// Render produces one frame per requested year and the legend used to color
// them. The years are [startYear, endYear] when both are non-zero, otherwise
// the years the layers cover. Layers are cropped to box when it is non-nil
// and converted to targetUnits when it is non-nil.
func (c *Collection) Render(ctx context.Context, box *layer.BoundingBox, startYear, endYear int, targetUnits *units.Units) ([]*frame.Frame, legend.Legend, error) {
	if c.Empty() {
		return nil, nil, errors.New(errors.ErrCodeInvalidInput, "%s has no layers", c.name)
	}
	if err := errors.ValidateYearRange(startYear, endYear); err != nil {
		return nil, nil, err
	}

	years := c.Years()
	if startYear != 0 && endYear != 0 {
		years = years[:0:0]
		for y := startYear; y <= endYear; y++ {
			years = append(years, y)
		}
	}

	var working []*layer.Layer
	for _, l := range c.layers {
		if slices.Contains(years, l.Year()) {
			working = append(working, l)
		}
	}
	if len(working) == 0 && box == nil {
		return nil, nil, errors.New(errors.ErrCodeInvalidInput,
			"%s has no layers in %d-%d and no bounding box", c.name, years[0], years[len(years)-1])
	}
	c.logger.Debug("rendering collection", "collection", c.name, "layers", len(working), "years", len(years))

	working, err := c.prepare(ctx, working, box, targetUnits)
	if err != nil {
		return nil, nil, err
	}

	common, working, err := c.normalize(ctx, working)
	if err != nil {
		return nil, nil, err
	}

	merged, err := c.mosaicByYear(ctx, working)
	if err != nil {
		return nil, nil, err
	}

	background, err := c.renderBackground(ctx, box, working)
	if err != nil {
		return nil, nil, err
	}

	var lg legend.Legend
	frames := make([]*frame.Frame, 0, len(years))
	if len(merged) > 0 {
		lg, err = c.colorizer.CreateLegend(ctx, merged, common)
		if err != nil {
			return nil, nil, errors.Wrap(codeOf(err), err, "create legend for %s", c.name)
		}
		rendered := make([]*frame.Frame, len(merged))
		err = forEach(ctx, c.workers, merged, func(ctx context.Context, i int, l *layer.Layer) error {
			// Layers are already cropped to the box.
			f, err := l.Render(ctx, lg, nil, true)
			if err != nil {
				return err
			}
			rendered[i], err = f.Composite(l.Workspace(), background, true)
			return err
		})
		if err != nil {
			return nil, nil, err
		}
		frames = append(frames, rendered...)
	}

	covered := make(map[int]bool, len(merged))
	for _, l := range merged {
		covered[l.Year()] = true
	}
	scale, _ := background.Scale()
	for _, y := range years {
		if !covered[y] {
			frames = append(frames, frame.NewScaled(y, background.Path(), scale))
		}
	}
	slices.SortStableFunc(frames, func(a, b *frame.Frame) int { return a.Year() - b.Year() })
	return frames, lg, nil
}

// prepare crops each layer to box and converts it to target units on the
// worker pool. The result keeps input order.
func (c *Collection) prepare(ctx context.Context, layers []*layer.Layer, box *layer.BoundingBox, target *units.Units) ([]*layer.Layer, error) {
	if box == nil && target == nil {
		return layers, nil
	}
	out := make([]*layer.Layer, len(layers))
	err := forEach(ctx, c.workers, layers, func(ctx context.Context, i int, l *layer.Layer) error {
		var err error
		if box != nil {
			if l, err = box.Crop(ctx, l); err != nil {
				return err
			}
		}
		if target != nil {
			if l, err = l.ConvertUnits(ctx, *target); err != nil {
				return err
			}
		}
		out[i] = l
		return nil
	})
	return out, err
}

// CommonInterpretation codes the union of labels 1..N in lexicographic
// order. It returns nil when no layer is interpreted.
func CommonInterpretation(layers []*layer.Layer) layer.Interpretation {
	labels := make(map[string]bool)
	for _, l := range layers {
		for _, label := range l.Interpretation() {
			labels[label] = true
		}
	}
	if len(labels) == 0 {
		return nil
	}
	common := make(layer.Interpretation, len(labels))
	for i, label := range slices.Sorted(maps.Keys(labels)) {
		common[i+1] = label
	}
	return common
}

// normalize reclassifies every interpreted layer through the common
// interpretation so equal labels share one pixel value.
func (c *Collection) normalize(ctx context.Context, layers []*layer.Layer) (layer.Interpretation, []*layer.Layer, error) {
	common := CommonInterpretation(layers)
	if common == nil {
		return nil, layers, nil
	}
	out := make([]*layer.Layer, len(layers))
	err := forEach(ctx, c.workers, layers, func(ctx context.Context, i int, l *layer.Layer) error {
		if !l.HasInterpretation() {
			out[i] = l
			return nil
		}
		r, err := l.Reclassify(ctx, common)
		out[i] = r
		return err
	})
	return common, out, err
}

// mosaicByYear merges fragments of the same year, returning one layer per
// year in ascending order.
func (c *Collection) mosaicByYear(ctx context.Context, layers []*layer.Layer) ([]*layer.Layer, error) {
	groups := byYear(layers)
	years := slices.Sorted(maps.Keys(groups))
	out := make([]*layer.Layer, len(years))
	err := forEach(ctx, c.workers, years, func(ctx context.Context, i int, year int) error {
		m, err := Mosaic(ctx, groups[year])
		out[i] = m
		return err
	})
	return out, err
}

// Mosaic merges layers onto the first layer's grid. Each pixel takes the
// first valid value in layer order; later layers are resampled nearest
// neighbour. The result keeps the first layer's interpretation and units.
func Mosaic(ctx context.Context, layers []*layer.Layer) (*layer.Layer, error) {
	if len(layers) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nothing to mosaic")
	}
	first := layers[0]
	if len(layers) == 1 {
		return first, nil
	}

	base, err := first.Read(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range layers[1:] {
		g, err := l.Read(ctx)
		if err != nil {
			return nil, err
		}
		if !g.SameGeometry(base) {
			if g, err = raster.Resample(ctx, g, base.Width, base.Height, base.Transform, base.CRS); err != nil {
				return nil, errors.Wrap(codeOf(err), err, "mosaic %s", l.Path())
			}
		}
		if g.Type.IsFloat() && !base.Type.IsFloat() {
			base.Type = raster.Float64
		}
		for i, v := range base.Data {
			if base.IsNoData(v) && g.Valid(g.Data[i]) {
				base.Data[i] = g.Data[i]
			}
		}
	}
	first.Logger().Debug("merged fragments", "year", first.Year(), "fragments", len(layers))
	return layer.FromGrid(first.Workspace(), base, first.Year(),
		layer.WithInterpretation(first.Interpretation()),
		layer.WithUnits(first.Units()),
		layer.WithLogger(first.Logger()))
}

// renderBackground flattens the box, or the first working layer, and paints
// it opaque in the background color.
func (c *Collection) renderBackground(ctx context.Context, box *layer.BoundingBox, working []*layer.Layer) (*frame.Frame, error) {
	var base *layer.Layer
	if box != nil {
		base = box.Layer
	} else {
		base = working[0]
	}
	flat, err := base.Flatten(ctx, 1)
	if err != nil {
		return nil, err
	}
	lg := legend.Legend{legend.Discrete(1, c.background, "background")}
	return flat.Render(ctx, lg, box, false)
}

func codeOf(err error) errors.Code {
	if code := errors.GetCode(err); code != "" {
		return code
	}
	return errors.ErrCodeRuntime
}
