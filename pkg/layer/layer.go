// Package layer wraps single-year rasters with the unit and interpretation
// semantics used by the animation pipeline.
//
// Layers are immutable: every transform (unit conversion, reclassification,
// flattening, reprojection, blending, cropping) reads the source raster, writes
// the result to a new workspace file and returns a new Layer. Metadata is
// computed once on first access and is safe for concurrent readers.
package layer

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/raster"
	"github.com/matzehuels/gcbmanimation/pkg/units"
	"github.com/matzehuels/gcbmanimation/pkg/workspace"
)

// Interpretation maps raw pixel values to symbolic labels, e.g. {1: "Wildfire"}.
type Interpretation map[int]string

// Codes returns the interpreted pixel values in ascending order.
func (i Interpretation) Codes() []int {
	return slices.Sorted(maps.Keys(i))
}

// Labels returns the distinct labels in lexicographic order.
func (i Interpretation) Labels() []string {
	seen := make(map[string]bool, len(i))
	for _, l := range i {
		seen[l] = true
	}
	return slices.Sorted(maps.Keys(seen))
}

// Inverse maps each label to its pixel value. When a label appears under
// several values, the smallest value wins.
func (i Interpretation) Inverse() map[string]int {
	out := make(map[string]int, len(i))
	for _, code := range i.Codes() {
		if _, ok := out[i[code]]; !ok {
			out[i[code]] = code
		}
	}
	return out
}

// Layer is one raster for one year.
type Layer struct {
	path   string
	year   int
	interp Interpretation
	units  units.Units
	ws     *workspace.Workspace
	logger *log.Logger

	infoOnce sync.Once
	info     *Info
	infoErr  error
}

// Option configures a Layer.
type Option func(*Layer)

// WithInterpretation attaches an attribute table to the layer.
func WithInterpretation(i Interpretation) Option {
	return func(l *Layer) {
		if len(i) > 0 {
			l.interp = maps.Clone(i)
		}
	}
}

// WithUnits sets the units the layer's values are expressed in.
func WithUnits(u units.Units) Option {
	return func(l *Layer) { l.units = u }
}

// WithLogger sets the logger used for transform diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(l *Layer) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Layer for an existing raster file. Units default to tC/ha/yr.
// The workspace receives every file derived from the layer.
func New(ws *workspace.Workspace, path string, year int, opts ...Option) *Layer {
	l := &Layer{
		path:   path,
		year:   year,
		units:  units.TcPerHa,
		ws:     ws,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FromGrid writes g to a new workspace raster and wraps it as a Layer.
func FromGrid(ws *workspace.Workspace, g *raster.Grid, year int, opts ...Option) (*Layer, error) {
	path := ws.RasterPath()
	if err := raster.Write(path, g); err != nil {
		return nil, err
	}
	return New(ws, path, year, opts...), nil
}

// Path returns the raster file path.
func (l *Layer) Path() string { return l.path }

// Year returns the year the layer applies to.
func (l *Layer) Year() int { return l.year }

// Units returns the units of the pixel values.
func (l *Layer) Units() units.Units { return l.units }

// Interpretation returns a copy of the attribute table, or nil.
func (l *Layer) Interpretation() Interpretation { return maps.Clone(l.interp) }

// HasInterpretation reports whether pixel values are symbolic codes.
func (l *Layer) HasInterpretation() bool { return len(l.interp) > 0 }

// Workspace returns the workspace derived files are written to.
func (l *Layer) Workspace() *workspace.Workspace { return l.ws }

// Logger returns the layer's logger.
func (l *Layer) Logger() *log.Logger { return l.logger }

// options reproduces this layer's settings for a derived layer.
func (l *Layer) options(extra ...Option) []Option {
	opts := []Option{WithInterpretation(l.interp), WithUnits(l.units), WithLogger(l.logger)}
	return append(opts, extra...)
}

// derive writes g as a new layer for the same year.
func (l *Layer) derive(g *raster.Grid, extra ...Option) (*Layer, error) {
	return FromGrid(l.ws, g, l.year, l.options(extra...)...)
}

// readRaw loads the raster as stored, guaranteeing a nodata value.
func (l *Layer) readRaw() (*raster.Grid, error) {
	g, err := raster.Read(l.path)
	if err != nil {
		return nil, err
	}
	g.EnsureNoData()
	return g, nil
}

// Read loads the raster with uninterpreted pixels of an interpreted layer
// replaced by nodata.
func (l *Layer) Read(ctx context.Context) (*raster.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g, err := l.readRaw()
	if err != nil {
		return nil, err
	}
	if l.HasInterpretation() {
		for i, v := range g.Data {
			if g.IsNoData(v) {
				continue
			}
			if _, ok := l.interp[int(v)]; !ok || v != float64(int(v)) {
				g.Data[i] = g.NoData
			}
		}
	}
	return g, nil
}

// Info is the derived metadata of a layer.
type Info struct {
	Width, Height int
	Transform     raster.GeoTransform
	CRS           raster.CRS
	NoData        float64
	Type          raster.DataType
	Min, Max      float64
	ValidCount    int
	PixelSize     float64 // metres
}

// Info computes the layer's metadata on first call and caches it.
func (l *Layer) Info() (*Info, error) {
	l.infoOnce.Do(func() {
		g, err := l.Read(context.Background())
		if err != nil {
			l.infoErr = err
			return
		}
		s := g.Stats()
		l.info = &Info{
			Width:      g.Width,
			Height:     g.Height,
			Transform:  g.Transform,
			CRS:        g.CRS,
			NoData:     g.NoData,
			Type:       g.Type,
			Min:        s.Min,
			Max:        s.Max,
			ValidCount: s.ValidCount,
			PixelSize:  g.PixelSizeMetres(),
		}
	})
	return l.info, l.infoErr
}

// MinMax returns the smallest and largest valid values, or (0, 0) when the
// layer has none.
func (l *Layer) MinMax() (float64, float64, error) {
	info, err := l.Info()
	if err != nil {
		return 0, 0, err
	}
	return info.Min, info.Max, nil
}

// NoData returns the layer's nodata value.
func (l *Layer) NoData() (float64, error) {
	info, err := l.Info()
	if err != nil {
		return 0, err
	}
	return info.NoData, nil
}

// Scale returns the pixel width in metres.
func (l *Layer) Scale() (float64, error) {
	info, err := l.Info()
	if err != nil {
		return 0, err
	}
	return info.PixelSize, nil
}

// Histogram counts valid pixels in [min, max] in equal-width buckets, with
// max included in the last bucket.
func (l *Layer) Histogram(ctx context.Context, min, max float64, buckets int) ([]int, error) {
	if buckets <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "histogram needs at least one bucket")
	}
	g, err := l.Read(ctx)
	if err != nil {
		return nil, err
	}
	return g.Histogram(min, max, buckets), nil
}

func (l *Layer) String() string {
	return l.path
}

// wrapf adds context to err, keeping its code.
func wrapf(err error, format string, args ...any) error {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeRuntime
	}
	return errors.Wrap(code, err, format, args...)
}
