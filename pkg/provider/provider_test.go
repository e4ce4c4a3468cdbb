package provider

import (
	"context"
	"database/sql"
	"path/filepath"
	"strconv"
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

func newResultsDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	stmts := []string{
		`CREATE TABLE v_age_indicators (year INTEGER)`,
		`CREATE TABLE v_flux_indicators (year INTEGER, indicator TEXT, flux_tc REAL)`,
		`CREATE TABLE v_pool_indicators (year INTEGER, indicator TEXT, pool_tc REAL)`,
		`INSERT INTO v_age_indicators VALUES (2000), (2001), (2002), (2003)`,
		`INSERT INTO v_flux_indicators VALUES
			(2000, 'NPP', 1000), (2000, 'NPP', 500),
			(2002, 'NPP', 2000), (2003, 'NPP', 3000),
			(2001, 'Rh', 7)`,
		`INSERT INTO v_pool_indicators VALUES (2001, 'Total Biomass', 42000)`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return path
}

func TestSQLiteSimulationYears(t *testing.T) {
	p, err := NewSQLite(newResultsDB(t))
	require.NoError(t, err)
	defer p.Close()

	start, end, err := p.SimulationYears(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2000, start)
	assert.Equal(t, 2003, end)
}

func TestSQLiteAnnualResult(t *testing.T) {
	p, err := NewSQLite(newResultsDB(t))
	require.NoError(t, err)
	defer p.Close()

	series, err := p.AnnualResult(context.Background(), Query{Indicator: "NPP", Units: units.Ktc})
	require.NoError(t, err)
	assert.Equal(t, []int{2000, 2001, 2002, 2003}, series.Years())
	assert.InDeltaSlice(t, []float64{1.5, 0, 2, 3}, series.Values(), 1e-9)

	series, err = p.AnnualResult(context.Background(), Query{Indicator: "NPP", StartYear: 2001, EndYear: 2002})
	require.NoError(t, err)
	assert.Equal(t, Series{{2001, 0}, {2002, 2000}}, series)
}

func TestSQLitePoolIndicator(t *testing.T) {
	p, err := NewSQLite(newResultsDB(t))
	require.NoError(t, err)
	defer p.Close()

	series, err := p.AnnualResult(context.Background(), Query{Indicator: "Total Biomass", Units: units.Mtc})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0.042, 0, 0}, series.Values(), 1e-9)
}

func TestSQLiteErrors(t *testing.T) {
	_, err := NewSQLite(filepath.Join(t.TempDir(), "missing.db"))
	assert.True(t, errors.Is(err, errors.ErrCodeIO))

	p, err := NewSQLite(newResultsDB(t))
	require.NoError(t, err)
	defer p.Close()

	_, err = p.AnnualResult(context.Background(), Query{Indicator: "Nope"})
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))

	_, err = p.AnnualResult(context.Background(), Query{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func writeYear(t *testing.T, dir string, year int, values ...float64) {
	t.Helper()
	g := raster.New(2, 2, raster.Float64)
	g.CRS = raster.UTM(10, false)
	g.Transform = raster.GeoTransform{500000, 30, 0, 5500000, 0, -30}
	g.NoData, g.HasNoData = nd, true
	copy(g.Data, values)
	require.NoError(t, raster.Write(filepath.Join(dir, "NPP_"+strconv.Itoa(year)+".tif"), g))
}

func newWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestSpatialAnnualResult(t *testing.T) {
	ws := newWorkspace(t)
	dir := t.TempDir()
	writeYear(t, dir, 2000, 1, 2, 3, nd)
	writeYear(t, dir, 2002, 10, 10, 10, 10)

	p := NewSpatial(ws, filepath.Join(dir, "NPP_*.tif"), units.TcPerHa, WithWorkers(2))

	start, end, err := p.SimulationYears(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2000, start)
	assert.Equal(t, 2002, end)

	// 30 m pixels are 0.09 ha.
	series, err := p.AnnualResult(context.Background(), Query{Units: units.Tc})
	require.NoError(t, err)
	assert.Equal(t, []int{2000, 2001, 2002}, series.Years())
	assert.InDeltaSlice(t, []float64{6 * 0.09, 0, 40 * 0.09}, series.Values(), 1e-9)

	series, err = p.AnnualResult(context.Background(), Query{StartYear: 1999, EndYear: 2000})
	require.NoError(t, err)
	assert.Len(t, series, 2)
	assert.Equal(t, 0.0, series[0].Value)
}

func TestSpatialBoundingBox(t *testing.T) {
	ws := newWorkspace(t)
	dir := t.TempDir()
	writeYear(t, dir, 2000, 1, 2, 3, 4)

	g := raster.New(2, 2, raster.Byte)
	g.CRS = raster.UTM(10, false)
	g.Transform = raster.GeoTransform{500000, 30, 0, 5500000, 0, -30}
	g.NoData, g.HasNoData = 0, true
	copy(g.Data, []float64{1, 0, 0, 1})
	boxLayer, err := layer.FromGrid(ws, g, 0)
	require.NoError(t, err)

	p := NewSpatial(ws, filepath.Join(dir, "NPP_*.tif"), units.Tc)
	series, err := p.AnnualResult(context.Background(), Query{BoundingBox: layer.NewBoundingBox(boxLayer)})
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.InDelta(t, 5.0, series[0].Value, 1e-9)
}

func TestSpatialNoFiles(t *testing.T) {
	p := NewSpatial(newWorkspace(t), filepath.Join(t.TempDir(), "*.tif"), units.TcPerHa)
	_, err := p.AnnualResult(context.Background(), Query{})
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestSeriesRange(t *testing.T) {
	lo, hi := Series{{2000, 3}, {2001, -2}, {2002, 5}}.Range()
	assert.Equal(t, -2.0, lo)
	assert.Equal(t, 5.0, hi)

	lo, hi = Series{}.Range()
	assert.Zero(t, lo)
	assert.Zero(t, hi)
}
