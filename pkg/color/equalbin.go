package color

import (
	"context"
	"math"

	"github.com/matzehuels/gcbmanimation/pkg/layer"
	"github.com/matzehuels/gcbmanimation/pkg/legend"
	"github.com/matzehuels/gcbmanimation/pkg/palette"
)

// EqualBin splits the collection's value range, padded by 0.5 on each side,
// into Bins equal-width bins. The outer bins are open-ended.
type EqualBin struct {
	Bins    int
	Palette string
}

func (c *EqualBin) CreateLegend(ctx context.Context, layers []*layer.Layer, interp layer.Interpretation) (legend.Legend, error) {
	if len(interp) > 0 {
		return Interpreted(interp, c.Palette)
	}
	lo, hi, err := collectionRange(layers)
	if err != nil {
		return nil, err
	}
	return equalBins(lo, hi, binsOr(c.Bins), paletteOr(c.Palette))
}

func equalBins(lo, hi float64, bins int, paletteName string) (legend.Legend, error) {
	lo, hi = lo-0.5, hi+0.5
	width := (hi - lo) / float64(bins)
	colors, err := palette.Colors(paletteName, bins)
	if err != nil {
		return nil, err
	}

	lg := make(legend.Legend, bins)
	for i := range bins {
		a := lo + float64(i)*width
		b := lo + float64(i+1)*width
		switch {
		case bins == 1:
			lg[i] = legend.Span(math.Inf(-1), math.Inf(1), colors[i], legend.Between(lo, hi))
		case i == 0:
			lg[i] = legend.Span(math.Inf(-1), b, colors[i], legend.AtMost(b))
		case i == bins-1:
			lg[i] = legend.Span(a, math.Inf(1), colors[i], legend.Above(a))
		default:
			lg[i] = legend.Span(a, b, colors[i], legend.Between(a, b))
		}
	}
	return lg, nil
}
