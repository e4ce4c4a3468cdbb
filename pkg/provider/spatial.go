package provider

import (
	"context"
	"runtime"
	"slices"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/layer"
	"github.com/matzehuels/gcbmanimation/pkg/units"
	"github.com/matzehuels/gcbmanimation/pkg/workspace"
)

// Spatial derives annual totals by summing the pixels of yearly rasters.
type Spatial struct {
	ws        *workspace.Workspace
	pattern   string
	fileUnits units.Units
	layers    []*layer.Layer
	workers   int
	logger    *log.Logger
}

// SpatialOption configures a Spatial provider.
type SpatialOption func(*Spatial)

// WithWorkers bounds the number of layers summed concurrently.
func WithWorkers(n int) SpatialOption {
	return func(s *Spatial) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) SpatialOption {
	return func(s *Spatial) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSpatial creates a provider over the rasters matching pattern, whose
// values are in fileUnits.
func NewSpatial(ws *workspace.Workspace, pattern string, fileUnits units.Units, opts ...SpatialOption) *Spatial {
	s := &Spatial{ws: ws, pattern: pattern, fileUnits: fileUnits, workers: runtime.NumCPU(), logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSpatialFromLayers creates a provider over an explicit set of layers.
func NewSpatialFromLayers(layers []*layer.Layer, opts ...SpatialOption) *Spatial {
	s := &Spatial{layers: slices.Clone(layers), workers: runtime.NumCPU(), logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Spatial) findLayers() ([]*layer.Layer, error) {
	if len(s.layers) > 0 {
		return s.layers, nil
	}
	if s.pattern == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "spatial provider needs a file pattern or layers")
	}
	return layer.Find(s.ws, s.pattern, layer.WithUnits(s.fileUnits), layer.WithLogger(s.logger))
}

// SimulationYears implements ResultsProvider.
func (s *Spatial) SimulationYears(ctx context.Context) (int, int, error) {
	layers, err := s.findLayers()
	if err != nil {
		return 0, 0, err
	}
	start, end := layers[0].Year(), layers[0].Year()
	for _, l := range layers[1:] {
		start, end = min(start, l.Year()), max(end, l.Year())
	}
	return start, end, nil
}

// AnnualResult implements ResultsProvider. The indicator name is ignored;
// the provider is already bound to one indicator's rasters.
func (s *Spatial) AnnualResult(ctx context.Context, q Query) (Series, error) {
	layers, err := s.findLayers()
	if err != nil {
		return nil, err
	}
	start, end := q.StartYear, q.EndYear
	if start == 0 || end == 0 {
		if start, end, err = s.SimulationYears(ctx); err != nil {
			return nil, err
		}
	}
	if err := errors.ValidateYearRange(start, end); err != nil {
		return nil, err
	}

	var working []*layer.Layer
	for _, l := range layers {
		if l.Year() >= start && l.Year() <= end {
			working = append(working, l)
		}
	}

	target := q.units()
	sums := make([]float64, len(working))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, l := range working {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var err error
			if q.BoundingBox != nil {
				if l, err = q.BoundingBox.Crop(gctx, l); err != nil {
					return err
				}
			}
			if l, err = l.ConvertUnits(gctx, target); err != nil {
				return err
			}
			grid, err := l.Read(gctx)
			if err != nil {
				return err
			}
			sums[i] = floats.Sum(grid.ValidValues())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Several rasters for one year add up.
	values := make(map[int]float64, len(working))
	for i, l := range working {
		values[l.Year()] += sums[i]
	}
	s.logger.Debug("summed spatial output", "pattern", s.pattern, "layers", len(working), "years", end-start+1)
	return fill(start, end, values), nil
}
