// Package palette generates named color palettes.
//
// Names follow the seaborn/matplotlib conventions the GCBM tooling has always
// used in its configuration files: "hls" and "husl" produce evenly spaced
// hues, ColorBrewer and matplotlib colormap names ("Greens", "RdYlGn",
// "viridis") produce sequential or diverging ramps, and "Set1"-style names
// produce qualitative palettes. Appending "_r" reverses any palette.
package palette

import (
	"image/color"
	"slices"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
)

// Default is the palette used when none is configured.
const Default = "hls"

type kind int

const (
	ramp kind = iota
	qualitative
)

type definition struct {
	kind  kind
	stops []string
}

var named = map[string]definition{
	"Greens":  {ramp, []string{"#f7fcf5", "#e5f5e0", "#c7e9c0", "#a1d99b", "#74c476", "#41ab5d", "#238b45", "#006d2c", "#00441b"}},
	"Blues":   {ramp, []string{"#f7fbff", "#deebf7", "#c6dbef", "#9ecae1", "#6baed6", "#4292c6", "#2171b5", "#08519c", "#08306b"}},
	"Reds":    {ramp, []string{"#fff5f0", "#fee0d2", "#fcbba1", "#fc9272", "#fb6a4a", "#ef3b2c", "#cb181d", "#a50f15", "#67000d"}},
	"Oranges": {ramp, []string{"#fff5eb", "#fee6ce", "#fdd0a2", "#fdae6b", "#fd8d3c", "#f16913", "#d94801", "#a63603", "#7f2704"}},
	"Purples": {ramp, []string{"#fcfbfd", "#efedf5", "#dadaeb", "#bcbddc", "#9e9ac8", "#807dba", "#6a51a3", "#54278f", "#3f007d"}},
	"Greys":   {ramp, []string{"#ffffff", "#f0f0f0", "#d9d9d9", "#bdbdbd", "#969696", "#737373", "#525252", "#252525", "#000000"}},
	"YlOrRd":  {ramp, []string{"#ffffcc", "#ffeda0", "#fed976", "#feb24c", "#fd8d3c", "#fc4e2a", "#e31a1c", "#bd0026", "#800026"}},
	"YlGn":    {ramp, []string{"#ffffe5", "#f7fcb9", "#d9f0a3", "#addd8e", "#78c679", "#41ab5d", "#238443", "#006837", "#004529"}},
	"RdYlGn":  {ramp, []string{"#a50026", "#d73027", "#f46d43", "#fdae61", "#fee08b", "#ffffbf", "#d9ef8b", "#a6d96a", "#66bd63", "#1a9850", "#006837"}},
	"RdBu":    {ramp, []string{"#67001f", "#b2182b", "#d6604d", "#f4a582", "#fddbc7", "#f7f7f7", "#d1e5f0", "#92c5de", "#4393c3", "#2166ac", "#053061"}},
	"viridis": {ramp, []string{"#440154", "#482878", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}},
	"Set1":    {qualitative, []string{"#e41a1c", "#377eb8", "#4daf4a", "#984ea3", "#ff7f00", "#ffff33", "#a65628", "#f781bf", "#999999"}},
	"Set2":    {qualitative, []string{"#66c2a5", "#fc8d62", "#8da0cb", "#e78ac3", "#a6d854", "#ffd92f", "#e5c494", "#b3b3b3"}},
	"Paired":  {qualitative, []string{"#a6cee3", "#1f78b4", "#b2df8a", "#33a02c", "#fb9a99", "#e31a1c", "#fdbf6f", "#ff7f00", "#cab2d6", "#6a3d9a", "#ffff99", "#b15928"}},
}

// Names lists every known palette name, without reversed variants.
func Names() []string {
	names := []string{"hls", "husl"}
	for n := range named {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Exists reports whether name (optionally with "_r") is a known palette.
func Exists(name string) bool {
	base := strings.TrimSuffix(name, "_r")
	if base == "hls" || base == "husl" {
		return true
	}
	_, ok := named[base]
	return ok
}

// Colors returns n colors from the named palette.
func Colors(name string, n int) ([]color.RGBA, error) {
	if err := errors.ValidatePalette(name); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	base, reversed := strings.CutSuffix(name, "_r")
	var cs []colorful.Color
	switch base {
	case "hls":
		cs = hues(n, func(h float64) colorful.Color { return colorful.Hsl(h*360, 0.65, 0.6) })
	case "husl":
		cs = hues(n, func(h float64) colorful.Color { return colorful.HSLuv(h*359, 0.9, 0.65) })
	default:
		s, ok := named[base]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "unknown palette %q", name)
		}
		stops, err := parseStops(s.stops)
		if err != nil {
			return nil, err
		}
		if s.kind == qualitative {
			for i := range n {
				cs = append(cs, stops[i%len(stops)])
			}
		} else {
			cs = sampleRamp(stops, n)
		}
	}

	if reversed {
		slices.Reverse(cs)
	}
	out := make([]color.RGBA, len(cs))
	for i, c := range cs {
		out[i] = toRGBA(c)
	}
	return out, nil
}

// MustColors is like Colors but panics on error.
func MustColors(name string, n int) []color.RGBA {
	cs, err := Colors(name, n)
	if err != nil {
		panic(err)
	}
	return cs
}

// Parse reads a color given as "#rrggbb" or as a palette-free CSS-like name
// used for backgrounds ("white", "black").
func Parse(s string) (color.RGBA, error) {
	switch strings.ToLower(s) {
	case "", "white":
		return color.RGBA{255, 255, 255, 255}, nil
	case "black":
		return color.RGBA{0, 0, 0, 255}, nil
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid color %q", s)
	}
	return toRGBA(c), nil
}

// hues spaces n hues evenly around the circle starting just past red.
func hues(n int, mk func(h float64) colorful.Color) []colorful.Color {
	out := make([]colorful.Color, n)
	for i := range n {
		h := float64(i)/float64(n) + 0.01
		h -= float64(int(h))
		out[i] = mk(h)
	}
	return out
}

// sampleRamp samples n colors from the interior of a ramp, leaving out the
// two extremes, blending neighbouring stops in Lab space.
func sampleRamp(stops []colorful.Color, n int) []colorful.Color {
	out := make([]colorful.Color, n)
	for i := range n {
		t := float64(i+1) / float64(n+1)
		pos := t * float64(len(stops)-1)
		j := min(int(pos), len(stops)-2)
		out[i] = stops[j].BlendLab(stops[j+1], pos-float64(j)).Clamped()
	}
	return out
}

func parseStops(hex []string) ([]colorful.Color, error) {
	out := make([]colorful.Color, len(hex))
	for i, h := range hex {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "bad palette stop %s", h)
		}
		out[i] = c
	}
	return out, nil
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
