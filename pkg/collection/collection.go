// Package collection composites yearly layers into one frame per year.
//
// A Collection holds related layers, e.g. every disturbance layer or every
// NPP layer, possibly several per year. Render crops and converts the layers
// on a bounded worker pool, normalizes interpretations, mosaics fragments of
// the same year, colorizes everything through one legend, and paints each
// year over a flat background frame. Requested years without data get the
// background alone, so the output always has one frame per year.
package collection

import (
	"context"
	"image/color"
	"runtime"
	"slices"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	colorizer "github.com/matzehuels/gcbmanimation/pkg/color"
	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/layer"
)

// DefaultBackground is the flat color painted under every frame.
var DefaultBackground = color.RGBA{R: 128, G: 128, B: 128, A: 255}

// Collection is an ordered set of layers rendered together.
type Collection struct {
	name       string
	layers     []*layer.Layer
	colorizer  colorizer.Colorizer
	background color.RGBA
	workers    int
	logger     *log.Logger
}

// Option configures a Collection.
type Option func(*Collection)

// WithName sets the name used in errors and logs.
func WithName(name string) Option {
	return func(c *Collection) { c.name = name }
}

// WithColorizer sets the legend strategy. Defaults to equal bins.
func WithColorizer(cz colorizer.Colorizer) Option {
	return func(c *Collection) {
		if cz != nil {
			c.colorizer = cz
		}
	}
}

// WithBackground sets the background color.
func WithBackground(bg color.RGBA) Option {
	return func(c *Collection) { c.background = bg }
}

// WithWorkers bounds the number of layers processed concurrently.
func WithWorkers(n int) Option {
	return func(c *Collection) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Collection) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a collection of layers.
func New(layers []*layer.Layer, opts ...Option) *Collection {
	c := &Collection{
		name:       "collection",
		layers:     slices.Clone(layers),
		colorizer:  &colorizer.EqualBin{},
		background: DefaultBackground,
		workers:    runtime.NumCPU(),
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the collection's name.
func (c *Collection) Name() string { return c.name }

// Layers returns the collection's layers in insertion order.
func (c *Collection) Layers() []*layer.Layer { return slices.Clone(c.layers) }

// Len returns the number of layers.
func (c *Collection) Len() int { return len(c.layers) }

// Empty reports whether the collection has no layers.
func (c *Collection) Empty() bool { return len(c.layers) == 0 }

// Append adds a layer.
func (c *Collection) Append(l *layer.Layer) { c.layers = append(c.layers, l) }

// Merge appends every layer of other.
func (c *Collection) Merge(other *Collection) { c.layers = append(c.layers, other.layers...) }

// Years returns the distinct layer years in ascending order.
func (c *Collection) Years() []int {
	var years []int
	for _, l := range c.layers {
		if !slices.Contains(years, l.Year()) {
			years = append(years, l.Year())
		}
	}
	slices.Sort(years)
	return years
}

// with returns a collection sharing c's settings with different layers.
func (c *Collection) with(layers []*layer.Layer) *Collection {
	out := *c
	out.layers = layers
	return &out
}

// byYear groups layers by year, keeping insertion order within a year.
func byYear(layers []*layer.Layer) map[int][]*layer.Layer {
	out := make(map[int][]*layer.Layer)
	for _, l := range layers {
		out[l.Year()] = append(out[l.Year()], l)
	}
	return out
}

func singleLayerPerYear(name string, groups map[int][]*layer.Layer) error {
	for year, ls := range groups {
		if len(ls) > 1 {
			return errors.New(errors.ErrCodeRuntime,
				"cannot blend %s: %d layers for year %d", name, len(ls), year)
		}
	}
	return nil
}

// Blend combines this collection with other year by year. Each side may hold
// at most one layer per year. Years present on one side only are kept as is.
func (c *Collection) Blend(ctx context.Context, other *Collection, mode layer.BlendMode) (*Collection, error) {
	mine, theirs := byYear(c.layers), byYear(other.layers)
	if err := singleLayerPerYear(c.name, mine); err != nil {
		return nil, err
	}
	if err := singleLayerPerYear(other.name, theirs); err != nil {
		return nil, err
	}

	years := c.Years()
	for _, y := range other.Years() {
		if !slices.Contains(years, y) {
			years = append(years, y)
		}
	}
	slices.Sort(years)

	out := make([]*layer.Layer, len(years))
	err := forEach(ctx, c.workers, years, func(ctx context.Context, i int, year int) error {
		a, b := mine[year], theirs[year]
		switch {
		case len(a) == 1 && len(b) == 1:
			blended, err := a[0].Blend(ctx, b[0], mode)
			if err != nil {
				return err
			}
			out[i] = blended
		case len(a) == 1:
			out[i] = a[0]
		default:
			out[i] = b[0]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.with(out), nil
}

// forEach runs fn for every item on a pool of at most workers goroutines.
// The first error cancels the remaining work.
func forEach[T any](ctx context.Context, workers int, items []T, fn func(ctx context.Context, i int, item T) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))
	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, i, item)
		})
	}
	return g.Wait()
}
