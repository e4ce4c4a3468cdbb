// Package studyarea reads a GCBM tiler study-area file and turns its
// disturbance layers into a layer collection.
package studyarea

import (
	"context"
	"encoding/json"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gcbmanimation/pkg/collection"
	colorizer "github.com/matzehuels/gcbmanimation/pkg/color"
	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/layer"
	"github.com/matzehuels/gcbmanimation/pkg/workspace"
)

// DisturbanceTag marks study-area layers that hold disturbance events.
const DisturbanceTag = "disturbance"

// DefaultPalette colors disturbance types.
const DefaultPalette = "hls"

type studyArea struct {
	Layers []struct {
		Name string   `json:"name"`
		Tags []string `json:"tags"`
	} `json:"layers"`
}

type attribute struct {
	Year            int    `json:"year"`
	DisturbanceType string `json:"disturbance_type"`
}

type metadata struct {
	Attributes map[string]attribute `json:"attributes"`
}

// Configurer builds the disturbance collection for a study area.
type Configurer struct {
	ws        *workspace.Workspace
	palette   string
	colorizer colorizer.Colorizer
	workers   int
	logger    *log.Logger
}

// Option configures a Configurer.
type Option func(*Configurer)

// WithPalette sets the palette disturbance types are colored from.
func WithPalette(name string) Option {
	return func(c *Configurer) {
		if name != "" {
			c.palette = name
		}
	}
}

// WithColorizer replaces the default palette-based colorizer.
func WithColorizer(cz colorizer.Colorizer) Option {
	return func(c *Configurer) { c.colorizer = cz }
}

// WithWorkers bounds the collection's worker pool.
func WithWorkers(n int) Option {
	return func(c *Configurer) { c.workers = n }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Configurer) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Configurer writing derived files to ws.
func New(ws *workspace.Workspace, opts ...Option) *Configurer {
	c := &Configurer{ws: ws, palette: DefaultPalette, logger: log.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configure scans the study-area file at path for layers tagged
// "disturbance". Each such layer contributes <name>_moja.tiff next to the
// study-area file, interpreted through the attribute table in
// <name>_moja/<name>_moja.json. A file covering several years becomes one
// layer per year, each interpreting only that year's codes. Layers missing
// either file or an attribute table are skipped with a warning.
func (c *Configurer) Configure(ctx context.Context, path string) (*collection.Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read study area %s", path)
	}
	var sa studyArea
	if err := json.Unmarshal(data, &sa); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse study area %s", path)
	}

	dir := filepath.Dir(path)
	var layers []*layer.Layer
	for _, entry := range sa.Layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !slices.Contains(entry.Tags, DisturbanceTag) {
			continue
		}
		found, err := c.disturbanceLayers(dir, entry.Name)
		if err != nil {
			return nil, err
		}
		layers = append(layers, found...)
	}
	c.logger.Info("configured disturbance layers", "study_area", path, "layers", len(layers))

	cz := c.colorizer
	if cz == nil {
		if cz, err = colorizer.New(colorizer.Config{Palette: c.palette, Logger: c.logger}); err != nil {
			return nil, err
		}
	}
	return collection.New(layers,
		collection.WithName("disturbances"),
		collection.WithColorizer(cz),
		collection.WithWorkers(c.workers),
		collection.WithLogger(c.logger)), nil
}

func (c *Configurer) disturbanceLayers(dir, name string) ([]*layer.Layer, error) {
	tiff := filepath.Join(dir, name+"_moja.tiff")
	meta := filepath.Join(dir, name+"_moja", name+"_moja.json")
	for _, p := range []string{tiff, meta} {
		if _, err := os.Stat(p); err != nil {
			c.logger.Warn("skipping disturbance layer", "layer", name, "missing", p)
			return nil, nil
		}
	}

	data, err := os.ReadFile(meta)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read %s", meta)
	}
	var md metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", meta)
	}
	if len(md.Attributes) == 0 {
		c.logger.Warn("skipping disturbance layer without attributes", "layer", name)
		return nil, nil
	}

	byYear := make(map[int]layer.Interpretation)
	for key, attr := range md.Attributes {
		code, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s: raster value %q is not an integer", meta, key)
		}
		if byYear[attr.Year] == nil {
			byYear[attr.Year] = make(layer.Interpretation)
		}
		byYear[attr.Year][code] = attr.DisturbanceType
	}

	var out []*layer.Layer
	for _, year := range slices.Sorted(maps.Keys(byYear)) {
		out = append(out, layer.New(c.ws, tiff, year,
			layer.WithInterpretation(byYear[year]),
			layer.WithLogger(c.logger)))
	}
	return out, nil
}

// FindBoundingBox picks a bounding-box raster from the study-area
// directory: the first *.tif or *.tiff without "moja" in its name, otherwise
// the first one found.
func FindBoundingBox(studyAreaPath string) (string, error) {
	dir := filepath.Dir(studyAreaPath)
	var candidates []string
	for _, pattern := range []string{"*.tiff", "*.tif"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeIO, err, "scan %s", dir)
		}
		candidates = append(candidates, matches...)
	}
	slices.Sort(candidates)
	if len(candidates) == 0 {
		return "", errors.New(errors.ErrCodeNotFound, "no bounding box raster in %s", dir)
	}
	for _, p := range candidates {
		if !strings.Contains(filepath.Base(p), "moja") {
			return p, nil
		}
	}
	return candidates[0], nil
}
