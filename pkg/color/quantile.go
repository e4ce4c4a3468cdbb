package color

import (
	"context"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/stat"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/layer"
	"github.com/matzehuels/gcbmanimation/pkg/legend"
	"github.com/matzehuels/gcbmanimation/pkg/palette"
)

// DefaultMaxRetries bounds how many times the quantile sample is halved
// before giving up.
const DefaultMaxRetries = 20

const bytesPerValue = 8

// Quantile places bin bounds at the i/Bins empirical quantiles of every valid
// pixel in the collection. With a NegativePalette the bins are split around
// zero: half for values <= 0 colored from NegativePalette, half for values
// > 0 colored from Palette.
//
// When MemoryLimit is set and the gathered values would exceed it, a random
// sample (with replacement, seeded from Seed) of half the size is taken
// instead, up to MaxRetries times.
type Quantile struct {
	Bins            int
	Palette         string
	NegativePalette string
	MemoryLimit     int64
	MaxRetries      int
	Seed            uint64
	Logger          *log.Logger
}

func (c *Quantile) CreateLegend(ctx context.Context, layers []*layer.Layer, interp layer.Interpretation) (legend.Legend, error) {
	if len(interp) > 0 {
		return Interpreted(interp, c.Palette)
	}
	if len(layers) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no layers to colorize")
	}
	if c.NegativePalette != "" {
		return c.splitLegend(ctx, layers)
	}

	values, top, err := c.gather(ctx, layers, nil)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no valid pixels to classify")
	}
	bounds := coverTop(quantileBounds(values, binsOr(c.Bins)), top)
	colors, err := palette.Colors(paletteOr(c.Palette), len(bounds))
	if err != nil {
		return nil, err
	}

	lg := make(legend.Legend, len(bounds))
	for i, hi := range bounds {
		if i == 0 {
			lg[i] = legend.Span(math.Inf(-1), hi, colors[i], legend.AtMost(hi))
			continue
		}
		lo := bounds[i-1]
		lg[i] = legend.Span(lo, hi, colors[i], legend.Between(lo, hi))
	}
	return lg, nil
}

func (c *Quantile) splitLegend(ctx context.Context, layers []*layer.Layer) (legend.Legend, error) {
	k := max(1, binsOr(c.Bins)/2)

	negative, _, err := c.gather(ctx, layers, func(v float64) bool { return v <= 0 })
	if err != nil {
		return nil, err
	}
	positive, top, err := c.gather(ctx, layers, func(v float64) bool { return v > 0 })
	if err != nil {
		return nil, err
	}
	if len(negative) == 0 && len(positive) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no valid pixels to classify")
	}

	var lg legend.Legend
	if len(negative) > 0 {
		bounds := quantileBounds(negative, k)
		bounds[len(bounds)-1] = 0
		colors, err := palette.Colors(c.NegativePalette, len(bounds))
		if err != nil {
			return nil, err
		}
		for i, hi := range bounds {
			// The most negative bin takes the palette's last color.
			col := colors[len(colors)-1-i]
			if i == 0 {
				lg = append(lg, legend.Span(math.Inf(-1), hi, col, legend.AtMost(hi)))
				continue
			}
			lo := bounds[i-1]
			lg = append(lg, legend.Span(lo, hi, col, legend.Between(lo, hi)))
		}
	}

	if len(positive) > 0 {
		bounds := coverTop(quantileBounds(positive, k), top)
		colors, err := palette.Colors(paletteOr(c.Palette), len(bounds))
		if err != nil {
			return nil, err
		}
		for i, hi := range bounds {
			lo := 0.0
			if i > 0 {
				lo = bounds[i-1]
			}
			lg = append(lg, legend.Span(lo, hi, colors[i], legend.Between(lo, hi)))
		}
	}
	return lg, nil
}

// quantileBounds sorts values in place and returns the distinct i/n
// quantiles for i = 1..n.
func quantileBounds(values []float64, n int) []float64 {
	slices.Sort(values)
	bounds := make([]float64, 0, n)
	for i := 1; i <= n; i++ {
		q := stat.Quantile(float64(i)/float64(n), stat.LinInterp, values, nil)
		if len(bounds) == 0 || q != bounds[len(bounds)-1] {
			bounds = append(bounds, q)
		}
	}
	return bounds
}

// coverTop raises the last bound to top so values left out of a sample still
// fall in the highest bin.
func coverTop(bounds []float64, top float64) []float64 {
	if n := len(bounds); n > 0 && top > bounds[n-1] {
		bounds[n-1] = top
	}
	return bounds
}

// sampleProportion finds the largest power-of-two fraction of total values
// that fits in the memory budget.
func (c *Quantile) sampleProportion(total int) (float64, error) {
	retries := c.MaxRetries
	if retries <= 0 {
		retries = DefaultMaxRetries
	}
	proportion := 1.0
	for halvings := 0; ; halvings++ {
		estimate := int64(float64(total)*proportion) * bytesPerValue
		if c.MemoryLimit <= 0 || estimate <= c.MemoryLimit {
			return proportion, nil
		}
		if halvings == retries {
			return 0, errors.New(errors.ErrCodeOutOfMemory,
				"quantile sample of %d values still exceeds %d bytes after %d retries", total, c.MemoryLimit, retries)
		}
		proportion /= 2
		if c.Logger != nil {
			c.Logger.Debug("quantile sample exceeds memory limit, halving", "proportion", proportion, "limit", c.MemoryLimit)
		}
	}
}

// gather collects valid values passing keep (all when nil), sampled down to
// fit MemoryLimit, and the largest kept value before sampling.
func (c *Quantile) gather(ctx context.Context, layers []*layer.Layer, keep func(float64) bool) ([]float64, float64, error) {
	total := 0
	for _, l := range layers {
		info, err := l.Info()
		if err != nil {
			return nil, 0, err
		}
		total += info.ValidCount
	}
	proportion, err := c.sampleProportion(total)
	if err != nil {
		return nil, 0, err
	}

	rng := rand.New(rand.NewPCG(c.Seed, c.Seed^0x9e3779b97f4a7c15))
	var out []float64
	top := math.Inf(-1)
	for _, l := range layers {
		g, err := l.Read(ctx)
		if err != nil {
			return nil, 0, err
		}
		values := g.ValidValues()
		if keep != nil {
			values = slices.DeleteFunc(values, func(v float64) bool { return !keep(v) })
		}
		if len(values) > 0 {
			top = math.Max(top, slices.Max(values))
		}
		if proportion < 1 && len(values) > 0 {
			n := int(float64(len(values)) * proportion)
			sample := make([]float64, n)
			for i := range sample {
				sample[i] = values[rng.IntN(len(values))]
			}
			values = sample
		}
		out = append(out, values...)
	}
	return out, top, nil
}
