package indicator

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/provider"
	"github.com/matzehuels/gcbmanimation/pkg/raster"
	"github.com/matzehuels/gcbmanimation/pkg/units"
	"github.com/matzehuels/gcbmanimation/pkg/workspace"
)

type staticProvider struct {
	start, end int
	queries    []provider.Query
}

func (p *staticProvider) SimulationYears(context.Context) (int, int, error) {
	return p.start, p.end, nil
}

func (p *staticProvider) AnnualResult(_ context.Context, q provider.Query) (provider.Series, error) {
	p.queries = append(p.queries, q)
	var s provider.Series
	for y := p.start; y <= p.end; y++ {
		s = append(s, provider.Point{Year: y, Value: float64(y - p.start)})
	}
	return s, nil
}

func setup(t *testing.T) (*workspace.Workspace, string) {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	dir := t.TempDir()
	for _, year := range []int{2000, 2002} {
		g := raster.New(2, 2, raster.Float64)
		g.CRS = raster.UTM(10, false)
		g.Transform = raster.GeoTransform{500000, 30, 0, 5500000, 0, -30}
		g.NoData, g.HasNoData = -1, true
		copy(g.Data, []float64{1, 2, 3, float64(year - 1999)})
		require.NoError(t, raster.Write(filepath.Join(dir, "NPP_"+strconv.Itoa(year)+".tif"), g))
	}
	return ws, filepath.Join(dir, "NPP_*.tif")
}

func TestDefaults(t *testing.T) {
	ws, pattern := setup(t)
	ind, err := New(ws, Config{Name: "NPP", Pattern: pattern, Provider: &staticProvider{}})
	require.NoError(t, err)
	assert.Equal(t, "NPP", ind.Title())
	assert.Equal(t, units.Tc, ind.GraphUnits())
	assert.Equal(t, units.TcPerHa, ind.MapUnits())
	assert.Equal(t, DefaultPalette, ind.cfg.Palette)
	assert.Equal(t, "NPP", ind.cfg.Filter)
}

func TestConfigErrors(t *testing.T) {
	ws, pattern := setup(t)
	tests := []Config{
		{Pattern: pattern, Provider: &staticProvider{}},
		{Name: "NPP", Provider: &staticProvider{}},
		{Name: "NPP", Pattern: pattern},
		{Name: "NPP", Pattern: pattern, Provider: &staticProvider{}, Palette: "NoSuchPalette"},
	}
	for i, cfg := range tests {
		if _, err := New(ws, cfg); err == nil {
			t.Errorf("case %d: expected an error", i)
		}
	}
}

func TestRenderMapFramesUsesSimulationYears(t *testing.T) {
	ws, pattern := setup(t)
	ind, err := New(ws, Config{Name: "NPP", Pattern: pattern, Provider: &staticProvider{start: 1999, end: 2002}, Workers: 2})
	require.NoError(t, err)

	frames, lg, err := ind.RenderMapFrames(context.Background(), nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, frames, 4)
	assert.Equal(t, 1999, frames[0].Year())
	assert.Equal(t, 2002, frames[3].Year())
	assert.NotEmpty(t, lg)
}

func TestRenderGraphFrames(t *testing.T) {
	ws, pattern := setup(t)
	p := &staticProvider{start: 2000, end: 2002}
	ind, err := New(ws, Config{
		Name: "NPP", Pattern: pattern, Provider: p,
		Filter: "Net Primary Productivity", Title: "Net Primary Production", GraphUnits: units.Ktc,
	})
	require.NoError(t, err)

	frames, err := ind.RenderGraphFrames(context.Background(), nil, 2000, 2002)
	require.NoError(t, err)
	require.Len(t, frames, 3)
	require.Len(t, p.queries, 1)
	assert.Equal(t, "Net Primary Productivity", p.queries[0].Indicator)
	assert.Equal(t, units.Ktc, p.queries[0].Units)
}

func TestRenderMapFramesNoFiles(t *testing.T) {
	ws, _ := setup(t)
	ind, err := New(ws, Config{Name: "NPP", Pattern: filepath.Join(t.TempDir(), "*.tif"), Provider: &staticProvider{}})
	require.NoError(t, err)
	_, _, err = ind.RenderMapFrames(context.Background(), nil, 2000, 2001)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}
