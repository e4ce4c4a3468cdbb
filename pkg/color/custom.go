package color

import (
	"context"
	imgcolor "image/color"
	"slices"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/layer"
	"github.com/matzehuels/gcbmanimation/pkg/legend"
	"github.com/matzehuels/gcbmanimation/pkg/palette"
)

// Group assigns a palette to a set of interpreted labels.
type Group struct {
	Labels  []string `toml:"labels" json:"labels"`
	Palette string   `toml:"palette" json:"palette"`
}

// Custom colors interpreted layers group by group. Labels outside every group
// are sorted and colored from Palette. Value layers are handed to Value, or
// binned with EqualBin when it is nil.
type Custom struct {
	Groups  []Group
	Palette string
	Value   Colorizer
}

func (c *Custom) CreateLegend(ctx context.Context, layers []*layer.Layer, interp layer.Interpretation) (legend.Legend, error) {
	if len(interp) == 0 {
		value := c.Value
		if value == nil {
			value = &EqualBin{Palette: c.Palette}
		}
		return value.CreateLegend(ctx, layers, nil)
	}

	colors := make(map[string]imgcolor.RGBA)
	for _, g := range c.Groups {
		if len(g.Labels) == 0 {
			continue
		}
		cs, err := palette.Colors(g.Palette, len(g.Labels))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPalette, err, "color group %v", g.Labels)
		}
		for i, label := range g.Labels {
			if _, ok := colors[label]; !ok {
				colors[label] = cs[i]
			}
		}
	}

	var rest []string
	for _, label := range interp.Labels() {
		if _, ok := colors[label]; !ok {
			rest = append(rest, label)
		}
	}
	if len(rest) > 0 {
		slices.Sort(rest)
		cs, err := palette.Colors(paletteOr(c.Palette), len(rest))
		if err != nil {
			return nil, err
		}
		for i, label := range rest {
			colors[label] = cs[i]
		}
	}

	codes := interp.Codes()
	lg := make(legend.Legend, len(codes))
	for i, code := range codes {
		label := interp[code]
		lg[i] = legend.Discrete(float64(code), colors[label], label)
	}
	return lg, nil
}
