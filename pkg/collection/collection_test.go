package collection

import (
	"context"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/layer"
	"github.com/matzehuels/gcbmanimation/pkg/raster"
	"github.com/matzehuels/gcbmanimation/pkg/units"
	"github.com/matzehuels/gcbmanimation/pkg/workspace"
)

const nd = -9999

type fixture struct {
	t  *testing.T
	ws *workspace.Workspace
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return &fixture{t: t, ws: ws}
}

func (f *fixture) layer(year int, typ raster.DataType, values []float64, opts ...layer.Option) *layer.Layer {
	f.t.Helper()
	g := raster.New(3, 2, typ)
	g.CRS = raster.UTM(10, false)
	g.Transform = raster.GeoTransform{500000, 30, 0, 5500000, 0, -30}
	g.NoData, g.HasNoData = nd, true
	copy(g.Data, values)
	l, err := layer.FromGrid(f.ws, g, year, opts...)
	require.NoError(f.t, err)
	return l
}

func TestRenderFillsMissingYears(t *testing.T) {
	f := newFixture(t)
	c := New([]*layer.Layer{
		f.layer(1995, raster.Float64, []float64{1, 2, 3, 4, 5, nd}),
		f.layer(1998, raster.Float64, []float64{6, 5, 4, 3, 2, 1}),
	}, WithName("npp"), WithWorkers(2))

	frames, lg, err := c.Render(context.Background(), nil, 1990, 2000, nil)
	require.NoError(t, err)
	require.Len(t, frames, 11)
	assert.NotEmpty(t, lg)

	for i, fr := range frames {
		assert.Equal(t, 1990+i, fr.Year())
	}
	background := frames[0].Path()
	for _, fr := range frames {
		switch fr.Year() {
		case 1995, 1998:
			assert.NotEqual(t, background, fr.Path())
		default:
			assert.Equal(t, background, fr.Path(), "year %d", fr.Year())
		}
	}

	w, h, err := frames[5].Size()
	require.NoError(t, err)
	assert.Equal(t, 3, w)
	assert.Equal(t, 2, h)
}

func TestRenderDefaultsToLayerYears(t *testing.T) {
	f := newFixture(t)
	c := New([]*layer.Layer{
		f.layer(2003, raster.Float64, []float64{1, 2, 3, 4, 5, 6}),
		f.layer(2001, raster.Float64, []float64{1, 2, 3, 4, 5, 6}),
	})
	frames, _, err := c.Render(context.Background(), nil, 0, 0, nil)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, 2001, frames[0].Year())
	assert.Equal(t, 2003, frames[1].Year())
}

func TestRenderBackgroundColor(t *testing.T) {
	f := newFixture(t)
	bg := color.RGBA{10, 20, 30, 255}
	c := New([]*layer.Layer{f.layer(2000, raster.Float64, []float64{1, 2, 3, 4, 5, 6})}, WithBackground(bg))
	frames, _, err := c.Render(context.Background(), nil, 2000, 2001, nil)
	require.NoError(t, err)
	require.Len(t, frames, 2)

	img, err := frames[1].Image()
	require.NoError(t, err)
	got := color.RGBAModel.Convert(img.At(0, 0)).(color.RGBA)
	assert.Equal(t, bg, got)
}

func TestRenderInterpretedFragments(t *testing.T) {
	f := newFixture(t)
	fire := f.layer(2000, raster.Int32, []float64{1, nd, nd, 1, nd, nd},
		layer.WithInterpretation(layer.Interpretation{1: "Wildfire"}))
	harvest := f.layer(2000, raster.Int32, []float64{1, 1, nd, nd, nd, 1},
		layer.WithInterpretation(layer.Interpretation{1: "Clearcut"}))

	c := New([]*layer.Layer{fire, harvest})
	frames, lg, err := c.Render(context.Background(), nil, 0, 0, nil)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	require.Len(t, lg, 2)
	assert.Equal(t, "Clearcut", lg[0].Label)
	assert.Equal(t, 1.0, lg[0].Value)
	assert.Equal(t, "Wildfire", lg[1].Label)
	assert.Equal(t, 2.0, lg[1].Value)
}

func TestCommonInterpretation(t *testing.T) {
	f := newFixture(t)
	a := f.layer(2000, raster.Int32, nil, layer.WithInterpretation(layer.Interpretation{4: "b", 9: "a"}))
	b := f.layer(2000, raster.Int32, nil, layer.WithInterpretation(layer.Interpretation{1: "c", 2: "a"}))
	plain := f.layer(2000, raster.Int32, nil)

	assert.Equal(t, layer.Interpretation{1: "a", 2: "b", 3: "c"}, CommonInterpretation([]*layer.Layer{a, b, plain}))
	assert.Nil(t, CommonInterpretation([]*layer.Layer{plain}))
}

func TestMosaicFirstValidWins(t *testing.T) {
	f := newFixture(t)
	a := f.layer(2000, raster.Int32, []float64{1, nd, nd, 1, nd, nd})
	b := f.layer(2000, raster.Int32, []float64{2, 2, nd, nd, nd, 2})

	m, err := Mosaic(context.Background(), []*layer.Layer{a, b})
	require.NoError(t, err)
	g, err := m.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, nd, 1, nd, 2}, g.Data)
	assert.Equal(t, 2000, m.Year())
}

func TestRenderWithBoundingBoxAndUnits(t *testing.T) {
	f := newFixture(t)
	box := layer.NewBoundingBox(f.layer(0, raster.Byte, []float64{nd, 1, 1, nd, 1, 1}))
	l := f.layer(2010, raster.Float64, []float64{5, 6, 7, 8, 9, 10}, layer.WithUnits(units.TcPerHa))
	target := units.Tc

	frames, lg, err := New([]*layer.Layer{l}).Render(context.Background(), box, 0, 0, &target)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	w, h, err := frames[0].Size()
	require.NoError(t, err)
	assert.Equal(t, 2, w)
	assert.Equal(t, 2, h)

	// Cropped values 6, 7, 9, 10 tC/ha on 0.09 ha pixels span [0.54, 0.9] tC,
	// padded to [0.04, 1.4] in bins of 0.17.
	assert.InDelta(t, 0.21, lg[0].Max, 1e-9)
	assert.InDelta(t, 1.23, lg[len(lg)-1].Min, 1e-9)
}

func TestRenderErrors(t *testing.T) {
	f := newFixture(t)
	_, _, err := New(nil, WithName("empty")).Render(context.Background(), nil, 0, 0, nil)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
	assert.Contains(t, err.Error(), "empty")

	c := New([]*layer.Layer{f.layer(2000, raster.Float64, []float64{1, 2, 3, 4, 5, 6})})
	_, _, err = c.Render(context.Background(), nil, 1990, 1991, nil)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, _, err = c.Render(context.Background(), nil, 2001, 1999, nil)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestBlend(t *testing.T) {
	f := newFixture(t)
	a := New([]*layer.Layer{
		f.layer(2000, raster.Int32, []float64{1, 1, 1, 1, 1, 1}),
		f.layer(2001, raster.Int32, []float64{2, 2, 2, 2, 2, 2}),
	})
	b := New([]*layer.Layer{
		f.layer(2000, raster.Int32, []float64{3, 3, 3, nd, 3, 3}),
		f.layer(2002, raster.Int32, []float64{4, 4, 4, 4, 4, 4}),
	})

	out, err := a.Blend(context.Background(), b, layer.Add)
	require.NoError(t, err)
	assert.Equal(t, []int{2000, 2001, 2002}, out.Years())

	g, err := out.Layers()[0].Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 4, 4, nd, 4, 4}, g.Data)
}

func TestBlendRejectsFragments(t *testing.T) {
	f := newFixture(t)
	a := New([]*layer.Layer{
		f.layer(2000, raster.Int32, []float64{1, 1, 1, 1, 1, 1}),
		f.layer(2000, raster.Int32, []float64{2, 2, 2, 2, 2, 2}),
	})
	b := New([]*layer.Layer{f.layer(2000, raster.Int32, []float64{3, 3, 3, 3, 3, 3})})
	_, err := a.Blend(context.Background(), b, layer.Subtract)
	assert.True(t, errors.Is(err, errors.ErrCodeRuntime))

	// Either side may hold the fragments, whatever the collections are named.
	_, err = b.Blend(context.Background(), a, layer.Add)
	assert.True(t, errors.Is(err, errors.ErrCodeRuntime))

	named := New(a.Layers(), WithName("disturbances"))
	_, err = named.Blend(context.Background(), New(b.Layers(), WithName("disturbances")), layer.Add)
	assert.True(t, errors.Is(err, errors.ErrCodeRuntime))
}
