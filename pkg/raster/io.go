package raster

import (
	"path/filepath"
	"strings"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
)

// Read loads a raster, choosing the codec by file extension.
func Read(path string) (*Grid, error) {
	switch ext(path) {
	case ".tif", ".tiff":
		return ReadGeoTIFF(path)
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "unsupported raster format: %s", path)
}

// Write stores a raster, choosing the codec by file extension.
func Write(path string, g *Grid) error {
	switch ext(path) {
	case ".tif", ".tiff":
		return WriteGeoTIFF(path, g)
	}
	return errors.New(errors.ErrCodeUnsupported, "unsupported raster format: %s", path)
}

// IsRaster reports whether path has a raster extension Read understands.
func IsRaster(path string) bool {
	switch ext(path) {
	case ".tif", ".tiff":
		return true
	}
	return false
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
