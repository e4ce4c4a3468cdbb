package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/gcbmanimation/pkg/raster"
)

func TestInspectRaster(t *testing.T) {
	g := raster.New(3, 2, raster.Float32)
	g.CRS = raster.UTM(10, false)
	g.Transform = raster.GeoTransform{500000, 30, 0, 5500000, 0, -30}
	g.NoData, g.HasNoData = -1, true
	copy(g.Data, []float64{1, 2, 3, 4, -1, 10})
	path := filepath.Join(t.TempDir(), "NPP_2010.tiff")
	if err := raster.Write(path, g); err != nil {
		t.Fatal(err)
	}

	report, err := inspectRaster(context.Background(), path)
	if err != nil {
		t.Fatalf("inspectRaster: %v", err)
	}
	for _, want := range []string{path, "3 x 2", "Float32", "30.00 m", "Valid pixels", "5"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
	// Table header plus ten histogram lines.
	if n := strings.Count(report, " .. "); n != histogramBuckets {
		t.Errorf("got %d histogram lines, want %d", n, histogramBuckets)
	}
}

func TestInspectMissingRaster(t *testing.T) {
	if _, err := inspectRaster(context.Background(), filepath.Join(t.TempDir(), "nope.tif")); err == nil {
		t.Error("expected an error for a missing raster")
	}
}

func TestRenderHistogram(t *testing.T) {
	got := renderHistogram([]int{4, 0, 2}, 0, 3, 8)
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), got)
	}
	tests := []struct {
		line  int
		bars  int
		count string
	}{
		{0, 8, "4"},
		{1, 0, "0"},
		{2, 4, "2"},
	}
	for _, tt := range tests {
		line := lines[tt.line]
		if n := strings.Count(line, "█"); n != tt.bars {
			t.Errorf("line %d has %d bar cells, want %d: %q", tt.line, n, tt.bars, line)
		}
		if !strings.HasSuffix(line, tt.count) {
			t.Errorf("line %d = %q, want count %s", tt.line, line, tt.count)
		}
	}
}
