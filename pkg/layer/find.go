package layer

import (
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/raster"
	"github.com/matzehuels/gcbmanimation/pkg/workspace"
)

// Find globs pattern and returns one Layer per matching raster, sorted by
// path. The year is taken from the last four characters of the file name
// without its extension, e.g. "NPP_2010.tiff" is 2010. Files whose name does
// not end in a year are skipped with a warning; sidecar files such as
// "NPP_2010.tif.aux.xml" are ignored.
func Find(ws *workspace.Workspace, pattern string, opts ...Option) ([]*Layer, error) {
	if err := errors.ValidatePattern(pattern); err != nil {
		return nil, err
	}
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "glob %s", pattern)
	}
	slices.Sort(paths)

	var layers []*Layer
	for _, path := range paths {
		if !raster.IsRaster(path) {
			continue
		}
		l := New(ws, path, 0, opts...)
		year, ok := YearFromPath(path)
		if !ok {
			l.logger.Warn("skipping raster without a year suffix", "path", path)
			continue
		}
		l.year = year
		layers = append(layers, l)
	}
	if len(layers) == 0 {
		return nil, errors.New(errors.ErrCodeNotFound, "no spatial output found for pattern %s", pattern)
	}
	return layers, nil
}

// YearFromPath parses the year from the last four characters of the file
// stem.
func YearFromPath(path string) (int, bool) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if len(stem) < 4 {
		return 0, false
	}
	year, err := strconv.Atoi(stem[len(stem)-4:])
	if err != nil || year <= 0 {
		return 0, false
	}
	return year, true
}
