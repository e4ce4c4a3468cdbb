package layer

import (
	"context"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/legend"
	"github.com/matzehuels/gcbmanimation/pkg/raster"
	"github.com/matzehuels/gcbmanimation/pkg/units"
	"github.com/matzehuels/gcbmanimation/pkg/workspace"
)

const nd = -9999

func newWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func grid(w, h int, crs raster.CRS, gt raster.GeoTransform, t raster.DataType, values ...float64) *raster.Grid {
	g := raster.New(w, h, t)
	g.CRS = crs
	g.Transform = gt
	g.NoData, g.HasNoData = nd, true
	copy(g.Data, values)
	return g
}

func utmGrid(t raster.DataType, values ...float64) *raster.Grid {
	return grid(2, 2, raster.UTM(10, false), raster.GeoTransform{500000, 30, 0, 5500000, 0, -30}, t, values...)
}

func newLayer(t *testing.T, ws *workspace.Workspace, g *raster.Grid, opts ...Option) *Layer {
	t.Helper()
	l, err := FromGrid(ws, g, 2010, opts...)
	require.NoError(t, err)
	return l
}

func read(t *testing.T, l *Layer) *raster.Grid {
	t.Helper()
	g, err := l.Read(context.Background())
	require.NoError(t, err)
	return g
}

func TestReclassify(t *testing.T) {
	ws := newWorkspace(t)
	l := newLayer(t, ws, utmGrid(raster.Int32, 1, 2, 3, nd),
		WithInterpretation(Interpretation{1: "Fire", 2: "Harvest"}))

	out, err := l.Reclassify(context.Background(), Interpretation{5: "Fire"})
	require.NoError(t, err)

	g, err := raster.Read(out.Path())
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 0, 0, 0}, g.Data)
	assert.Equal(t, float64(0), g.NoData)
	assert.Equal(t, Interpretation{5: "Fire"}, out.Interpretation())
	assert.Equal(t, 2010, out.Year())
	assert.NotEqual(t, l.Path(), out.Path())
}

func TestReclassifyWithoutInterpretation(t *testing.T) {
	ws := newWorkspace(t)
	l := newLayer(t, ws, utmGrid(raster.Int32, 1, 2, 3, 4))
	_, err := l.Reclassify(context.Background(), Interpretation{1: "Fire"})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestUninterpretedValuesAreNoData(t *testing.T) {
	ws := newWorkspace(t)
	l := newLayer(t, ws, utmGrid(raster.Int32, 1, 7, 2, nd),
		WithInterpretation(Interpretation{1: "Fire", 2: "Harvest"}))

	info, err := l.Info()
	require.NoError(t, err)
	assert.Equal(t, 2, info.ValidCount)
	assert.Equal(t, 1.0, info.Min)
	assert.Equal(t, 2.0, info.Max)
	assert.Equal(t, 30.0, info.PixelSize)
}

func TestMinMaxFallback(t *testing.T) {
	ws := newWorkspace(t)
	l := newLayer(t, ws, utmGrid(raster.Float32, nd, nd, nd, nd))
	lo, hi, err := l.MinMax()
	require.NoError(t, err)
	assert.Zero(t, lo)
	assert.Zero(t, hi)
}

func TestMissingRasterIsIOError(t *testing.T) {
	ws := newWorkspace(t)
	l := New(ws, "/nonexistent/layer.tif", 2000)
	_, err := l.Info()
	assert.True(t, errors.Is(err, errors.ErrCodeIO))
}

func TestConvertUnitsRoundTrip(t *testing.T) {
	all := []units.Units{units.Blank, units.Tc, units.Ktc, units.Mtc, units.TcPerHa, units.KtcPerHa, units.MtcPerHa}
	grids := map[string]func() *raster.Grid{
		"metric": func() *raster.Grid { return utmGrid(raster.Float32, 2.5, 40, nd, 0.125) },
		"geographic": func() *raster.Grid {
			return grid(2, 2, raster.WGS84, raster.GeoTransform{-120, 0.01, 0, 55, 0, -0.01}, raster.Float32, 2.5, 40, nd, 0.125)
		},
	}
	ctx := context.Background()
	for name, mk := range grids {
		t.Run(name, func(t *testing.T) {
			ws := newWorkspace(t)
			for _, from := range all {
				for _, to := range all {
					l := newLayer(t, ws, mk(), WithUnits(from))
					there, err := l.ConvertUnits(ctx, to)
					require.NoError(t, err)
					assert.Equal(t, to, there.Units())
					back, err := there.ConvertUnits(ctx, from)
					require.NoError(t, err)

					g := read(t, back)
					assert.InDelta(t, 2.5, g.Data[0], 1e-9, "%s -> %s", from, to)
					assert.InDelta(t, 40, g.Data[1], 1e-9, "%s -> %s", from, to)
					assert.True(t, g.IsNoData(g.Data[2]))
					assert.InDelta(t, 0.125, g.Data[3], 1e-9, "%s -> %s", from, to)
				}
			}
		})
	}
}

func TestConvertUnitsPerHectareToAbsolute(t *testing.T) {
	ws := newWorkspace(t)
	// 30m pixels are 0.09 ha.
	l := newLayer(t, ws, utmGrid(raster.Float32, 10, 1, nd, 0), WithUnits(units.TcPerHa))
	out, err := l.ConvertUnits(context.Background(), units.Ktc)
	require.NoError(t, err)
	g := read(t, out)
	assert.InDelta(t, 10*0.09/1000, g.Data[0], 1e-12)
	assert.InDelta(t, 0.09/1000, g.Data[1], 1e-12)
	assert.True(t, g.IsNoData(g.Data[2]))
	assert.Equal(t, raster.Float64, g.Type)
}

func TestFlattenDropsInterpretation(t *testing.T) {
	ws := newWorkspace(t)
	l := newLayer(t, ws, utmGrid(raster.Int32, 3, 9, nd, 4),
		WithInterpretation(Interpretation{3: "Fire", 4: "Harvest"}))
	out, err := l.Flatten(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, out.HasInterpretation())

	g := read(t, out)
	assert.Equal(t, 1.0, g.Data[0])
	assert.True(t, g.IsNoData(g.Data[1]), "uninterpreted pixel stays nodata")
	assert.True(t, g.IsNoData(g.Data[2]))
	assert.Equal(t, 1.0, g.Data[3])
}

func TestBlend(t *testing.T) {
	ws := newWorkspace(t)
	ctx := context.Background()
	a := newLayer(t, ws, utmGrid(raster.Int32, 5, 6, nd, 8))
	b := newLayer(t, ws, utmGrid(raster.Int32, 1, nd, 2, 3))

	sum, err := a.Blend(ctx, b, Add)
	require.NoError(t, err)
	g := read(t, sum)
	assert.Equal(t, []float64{6, nd, nd, 11}, g.Data)

	diff, err := a.Blend(ctx, b, Subtract)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, nd, nd, 5}, read(t, diff).Data)
}

func TestBlendMismatch(t *testing.T) {
	ws := newWorkspace(t)
	a := newLayer(t, ws, utmGrid(raster.Int32, 1, 2, 3, 4))
	b := newLayer(t, ws, grid(3, 1, raster.UTM(10, false), raster.GeoTransform{0, 30, 0, 0, 0, -30}, raster.Int32, 1, 2, 3))
	_, err := a.Blend(context.Background(), b, Add)
	assert.True(t, errors.Is(err, errors.ErrCodeRuntime))
}

func TestReprojectUnsupported(t *testing.T) {
	ws := newWorkspace(t)
	l := newLayer(t, ws, utmGrid(raster.Int32, 1, 2, 3, 4))
	_, err := l.Reproject(context.Background(), raster.CRS(2056))
	assert.True(t, errors.Is(err, errors.ErrCodeUnsupported))
}

func TestHistogram(t *testing.T) {
	ws := newWorkspace(t)
	l := newLayer(t, ws, utmGrid(raster.Float32, 0, 1, 2, nd))
	h, err := l.Histogram(context.Background(), 0, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, h)

	_, err = l.Histogram(context.Background(), 0, 2, 0)
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	ws := newWorkspace(t)
	red := color.RGBA{255, 0, 0, 255}
	green := color.RGBA{0, 255, 0, 255}
	blue := color.RGBA{0, 0, 255, 255}
	lg := legend.Legend{
		legend.Span(math.Inf(-1), 1, red, "<= 1"),
		legend.Span(1, 10, green, "1 to 10"),
		legend.Span(10, math.Inf(1), blue, "> 10"),
	}
	g := grid(3, 2, raster.UTM(10, false), raster.GeoTransform{500000, 30, 0, 5500000, 0, -30}, raster.Float32,
		0, 0.0004, -5, 8, nd, 0.5)
	l := newLayer(t, ws, g)

	f, err := l.Render(context.Background(), lg, nil, true)
	require.NoError(t, err)
	assert.Equal(t, 2010, f.Year())
	scale, ok := f.Scale()
	assert.True(t, ok)
	assert.Equal(t, 30.0, scale)

	img, err := f.Image()
	require.NoError(t, err)
	at := func(x, y int) color.NRGBA {
		return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	}
	blank := color.NRGBA{255, 255, 255, 0}
	assert.Equal(t, blank, at(0, 0), "zero is transparent")
	assert.Equal(t, blank, at(1, 0), "closer to the zero stop than the guard")
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, at(2, 0), "negative values take the guard color")
	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, at(0, 1))
	assert.Equal(t, blank, at(1, 1), "nodata")
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, at(2, 1))

	opaque, err := l.Render(context.Background(), lg, nil, false)
	require.NoError(t, err)
	img, err = opaque.Image()
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, at(1, 1))
}

func TestRenderMatchesLegend(t *testing.T) {
	ws := newWorkspace(t)
	lg := legend.Legend{
		legend.Span(math.Inf(-1), 2.5, color.RGBA{255, 0, 0, 255}, "<= 2.50"),
		legend.Span(2.5, 5.5, color.RGBA{0, 255, 0, 255}, "2.50 to 5.50"),
		legend.Span(5.5, math.Inf(1), color.RGBA{0, 0, 255, 255}, "> 5.50"),
	}
	values := []float64{1, 3, 5, 8, 2.5, 5.5}
	g := grid(3, 2, raster.UTM(10, false), raster.GeoTransform{500000, 30, 0, 5500000, 0, -30}, raster.Float32, values...)
	l := newLayer(t, ws, g)

	f, err := l.Render(context.Background(), lg, nil, false)
	require.NoError(t, err)
	img, err := f.Image()
	require.NoError(t, err)

	for i, v := range values {
		e, ok := lg.Find(v)
		require.True(t, ok)
		want := color.NRGBA{e.Color.R, e.Color.G, e.Color.B, 255}
		got := color.NRGBAModel.Convert(img.At(i%3, i/3)).(color.NRGBA)
		assert.Equal(t, want, got, "value %v", v)
	}
}

func TestRenderEmptyLegend(t *testing.T) {
	ws := newWorkspace(t)
	l := newLayer(t, ws, utmGrid(raster.Int32, 1, 2, 3, 4))
	_, err := l.Render(context.Background(), nil, nil, true)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestColorTableTiesGoToEarlierStop(t *testing.T) {
	a := color.NRGBA{R: 1, A: 255}
	b := color.NRGBA{R: 2, A: 255}
	tbl := &colorTable{}
	tbl.add(10, b)
	tbl.add(0, a)
	tbl.add(10, a)
	tbl.finish()

	assert.Len(t, tbl.stops, 2)
	assert.Equal(t, b, tbl.lookup(5), "equidistant, stop at 10 was added first")
	assert.Equal(t, b, tbl.lookup(10))
	assert.Equal(t, a, tbl.lookup(-3))
}

func TestBoundingBoxCrop(t *testing.T) {
	ws := newWorkspace(t)
	gt := raster.GeoTransform{500000, 30, 0, 5500000, 0, -30}
	crs := raster.UTM(10, false)

	box := grid(4, 4, crs, gt, raster.Byte,
		nd, nd, nd, nd,
		nd, 1, 1, nd,
		nd, 1, nd, nd,
		nd, nd, nd, nd)
	values := make([]float64, 16)
	for i := range values {
		values[i] = float64(i%4 + 10*(i/4))
	}
	bb := NewBoundingBox(newLayer(t, ws, box))
	l := newLayer(t, ws, grid(4, 4, crs, gt, raster.Int32, values...))

	w, h, err := bb.Extent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, w)
	assert.Equal(t, 2, h)

	out, err := bb.Crop(context.Background(), l)
	require.NoError(t, err)
	g := read(t, out)
	assert.Equal(t, 2, g.Width)
	assert.Equal(t, []float64{11, 12, 21, nd}, g.Data)
	assert.Equal(t, 500030.0, g.Transform[0])
	assert.Equal(t, 5499970.0, g.Transform[3])
}

func TestBoundingBoxWithoutData(t *testing.T) {
	ws := newWorkspace(t)
	bb := NewBoundingBox(newLayer(t, ws, utmGrid(raster.Byte, nd, nd, nd, nd)))
	_, _, err := bb.Extent(context.Background())
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestInterpretationHelpers(t *testing.T) {
	i := Interpretation{3: "b", 1: "a", 2: "b"}
	assert.Equal(t, []int{1, 2, 3}, i.Codes())
	assert.Equal(t, []string{"a", "b"}, i.Labels())
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, i.Inverse())
}
