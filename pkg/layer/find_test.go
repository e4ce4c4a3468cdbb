package layer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/raster"
	"github.com/matzehuels/gcbmanimation/pkg/units"
)

func TestYearFromPath(t *testing.T) {
	tests := []struct {
		path string
		year int
		ok   bool
	}{
		{"/out/NPP_2010.tiff", 2010, true},
		{"Ecosystem_Removals_1990.tif", 1990, true},
		{"dir.v2/npp1995.tif", 1995, true},
		{"npp.tif", 0, false},
		{"npp_latest.tif", 0, false},
	}
	for _, tt := range tests {
		year, ok := YearFromPath(tt.path)
		if year != tt.year || ok != tt.ok {
			t.Errorf("YearFromPath(%q) = %d, %v, want %d, %v", tt.path, year, ok, tt.year, tt.ok)
		}
	}
}

func TestFind(t *testing.T) {
	ws := newWorkspace(t)
	dir := t.TempDir()
	for _, name := range []string{"NPP_2001.tif", "NPP_2000.tif", "NPP_final.tif"} {
		require.NoError(t, raster.Write(filepath.Join(dir, name), utmGrid(raster.Float32, 1, 2, 3, 4)))
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "NPP_2002.tif.aux.xml"), []byte("<PAMDataset/>"), 0o644))

	layers, err := Find(ws, filepath.Join(dir, "NPP_*"), WithUnits(units.Tc))
	require.NoError(t, err)
	require.Len(t, layers, 2)
	assert.Equal(t, 2000, layers[0].Year())
	assert.Equal(t, 2001, layers[1].Year())
	assert.Equal(t, units.Tc, layers[0].Units())

	_, err = Find(ws, filepath.Join(dir, "NEP_*.tif"))
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}
