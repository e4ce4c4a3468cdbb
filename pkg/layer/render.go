package layer

import (
	"context"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/frame"
	"github.com/matzehuels/gcbmanimation/pkg/legend"
)

// zeroGuard is the offset of the stops that keep values close to zero from
// snapping to the white zero stop.
const zeroGuard = 1e-3

type stop struct {
	value float64
	color color.NRGBA
	order int
}

// colorTable is a sorted set of stops. Lookups return the color of the stop
// nearest the value; ties go to the stop that was added first.
type colorTable struct {
	stops []stop
}

func (t *colorTable) add(v float64, c color.NRGBA) {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return
	}
	t.stops = append(t.stops, stop{value: v, color: c, order: len(t.stops)})
}

func (t *colorTable) finish() {
	sort.SliceStable(t.stops, func(i, j int) bool {
		if t.stops[i].value != t.stops[j].value {
			return t.stops[i].value < t.stops[j].value
		}
		return t.stops[i].order < t.stops[j].order
	})
	// Keep only the first-added stop for each value.
	out := t.stops[:0]
	for _, s := range t.stops {
		if len(out) > 0 && out[len(out)-1].value == s.value {
			continue
		}
		out = append(out, s)
	}
	t.stops = out
}

func (t *colorTable) lookup(v float64) color.NRGBA {
	n := len(t.stops)
	i := sort.Search(n, func(i int) bool { return t.stops[i].value >= v })
	switch {
	case i == 0:
		return t.stops[0].color
	case i == n:
		return t.stops[n-1].color
	}
	lo, hi := t.stops[i-1], t.stops[i]
	dlo, dhi := v-lo.value, hi.value-v
	if dlo < dhi || (dlo == dhi && lo.order < hi.order) {
		return lo.color
	}
	return hi.color
}

func opaque(c color.RGBA) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

func newColorTable(lg legend.Legend) *colorTable {
	t := &colorTable{}
	for _, e := range lg {
		c := opaque(e.Color)
		if e.Range {
			t.add(e.Min, c)
			t.add(e.Max, c)
		} else {
			t.add(e.Value, c)
		}
	}
	if near, ok := lg.NearestZero(); ok {
		c := opaque(near.Color)
		t.add(-zeroGuard, c)
		t.add(zeroGuard, c)
	}
	t.finish()
	return t
}

// painter maps pixel values to colors. Range entries are matched on their
// half-open bounds; discrete values and values outside every range take the
// nearest stop. Values within half the zero guard of zero are empty.
type painter struct {
	lg     legend.Legend
	table  *colorTable
	empty  color.NRGBA
	ranged bool
}

func newPainter(lg legend.Legend, empty color.NRGBA) *painter {
	p := &painter{lg: lg, table: newColorTable(lg), empty: empty}
	for _, e := range lg {
		if e.Range {
			p.ranged = true
			break
		}
	}
	return p
}

func (p *painter) color(v float64) color.NRGBA {
	if math.Abs(v) <= zeroGuard/2 {
		return p.empty
	}
	if p.ranged {
		if e, ok := p.lg.Find(v); ok {
			return opaque(e.Color)
		}
	}
	return p.table.lookup(v)
}

// Render colors the layer through lg into a PNG frame. Nodata and zero pixels
// are white, fully transparent when transparent is set. When box is non-nil
// the layer is cropped to it first.
func (l *Layer) Render(ctx context.Context, lg legend.Legend, box *BoundingBox, transparent bool) (*frame.Frame, error) {
	if len(lg) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "cannot render %s with an empty legend", l.path)
	}
	working := l
	if box != nil {
		cropped, err := box.Crop(ctx, l)
		if err != nil {
			return nil, err
		}
		working = cropped
	}

	g, err := working.Read(ctx)
	if err != nil {
		return nil, err
	}
	scale, err := working.Scale()
	if err != nil {
		return nil, err
	}

	empty := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	if transparent {
		empty.A = 0
	}
	paint := newPainter(lg, empty)

	img := image.NewNRGBA(image.Rect(0, 0, g.Width, g.Height))
	for row := range g.Height {
		if row%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for col := range g.Width {
			v := g.At(col, row)
			c := empty
			if !g.IsNoData(v) {
				c = paint.color(v)
			}
			img.SetNRGBA(col, row, c)
		}
	}

	return frame.Save(l.ws, img, l.year, scale)
}
