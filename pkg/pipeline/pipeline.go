// Package pipeline runs a complete animation job: it discovers the study
// area's disturbance layers and bounding box, builds one indicator per
// configured output, and renders a video for each.
//
// The CLI fills Options from flags and the animation config file, then hands
// them to a Runner:
//
//	runner := pipeline.NewRunner(logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    StudyArea:      "tiled/study_area.json",
//	    SpatialResults: "processed_output/spatial",
//	    OutputDir:      "animations",
//	    Indicators: []pipeline.IndicatorOptions{
//	        {DatabaseIndicator: "NPP", FilePattern: "NPP_*.tiff"},
//	    },
//	})
package pipeline

import (
	"image/color"
	"io"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"

	colorizer "github.com/matzehuels/gcbmanimation/pkg/color"
	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/palette"
	"github.com/matzehuels/gcbmanimation/pkg/units"
	"github.com/matzehuels/gcbmanimation/pkg/video"
	"github.com/matzehuels/gcbmanimation/pkg/workspace"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Config Files
// =============================================================================

const (
	// DefaultWidth is the video width in pixels.
	DefaultWidth = 3840

	// DefaultHeight is the video height in pixels.
	DefaultHeight = 2160

	// DefaultFPS shows one simulation year per second.
	DefaultFPS = 1

	// DefaultPalette colors indicator maps.
	DefaultPalette = "Greens"

	// DefaultDisturbancePalette colors disturbance types.
	DefaultDisturbancePalette = "hls"

	// DefaultColorizer bins indicator values at quantiles.
	DefaultColorizer = colorizer.StrategyQuantile

	// DefaultBackground is painted under indicator maps.
	DefaultBackground = "white"

	// DefaultFileUnits are the units GCBM writes spatial output in.
	DefaultFileUnits = "TcPerHa"

	// DefaultGraphUnits are the units graphed results are shown in.
	DefaultGraphUnits = "Tc"

	// DefaultMapUnits are the units maps are colored in.
	DefaultMapUnits = "TcPerHa"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// IndicatorOptions configures one animated indicator. Field names follow the
// animation config file.
type IndicatorOptions struct {
	DatabaseIndicator string             `toml:"database_indicator" json:"database_indicator"`
	FilePattern       string             `toml:"file_pattern" json:"file_pattern"`
	FileUnits         string             `toml:"file_units,omitempty" json:"file_units,omitempty"`
	Title             string             `toml:"title,omitempty" json:"title,omitempty"`
	GraphUnits        string             `toml:"graph_units,omitempty" json:"graph_units,omitempty"`
	MapUnits          string             `toml:"map_units,omitempty" json:"map_units,omitempty"`
	Palette           string             `toml:"palette,omitempty" json:"palette,omitempty"`
	NegativePalette   string             `toml:"negative_palette,omitempty" json:"negative_palette,omitempty"`
	Colorizer         string             `toml:"colorizer,omitempty" json:"colorizer,omitempty"`
	Bins              int                `toml:"bins,omitempty" json:"bins,omitempty"`
	Groups            []colorizer.Group  `toml:"groups,omitempty" json:"groups,omitempty"`
	parsed            parsedIndicatorOpt
}

type parsedIndicatorOpt struct {
	fileUnits, graphUnits, mapUnits units.Units
}

// RenderOptions are the output settings shared by every indicator.
type RenderOptions struct {
	Width              int    `toml:"width,omitempty" json:"width,omitempty"`
	Height             int    `toml:"height,omitempty" json:"height,omitempty"`
	FPS                int    `toml:"fps,omitempty" json:"fps,omitempty"`
	Workers            int    `toml:"workers,omitempty" json:"workers,omitempty"`
	StartYear          int    `toml:"start_year,omitempty" json:"start_year,omitempty"`
	EndYear            int    `toml:"end_year,omitempty" json:"end_year,omitempty"`
	Encoder            string `toml:"encoder,omitempty" json:"encoder,omitempty"`
	Palette            string `toml:"palette,omitempty" json:"palette,omitempty"`
	NegativePalette    string `toml:"negative_palette,omitempty" json:"negative_palette,omitempty"`
	DisturbancePalette string `toml:"disturbance_palette,omitempty" json:"disturbance_palette,omitempty"`
	Background         string `toml:"background,omitempty" json:"background,omitempty"`
	MemoryLimit        int64  `toml:"memory_limit,omitempty" json:"memory_limit,omitempty"`
}

// Options contains all configuration for one animation run.
type Options struct {
	// Inputs
	StudyArea      string
	SpatialResults string
	DBResults      string
	BoundingBox    string
	OutputDir      string

	Indicators []IndicatorOptions
	Render     RenderOptions

	// Runtime options
	WorkspaceRoot string
	Logger        *log.Logger

	background color.RGBA
	validated  bool
}

// Result summarizes a run.
type Result struct {
	// Videos lists the written animations, one per indicator.
	Videos []string

	// BoundingBox is the raster the frames were cropped to.
	BoundingBox string

	// Provider names the results source: "sqlite" or "spatial".
	Provider string
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// Calling it more than once has no further effect.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.StudyArea == "" {
		return errors.New(errors.ErrCodeInvalidInput, "study area is required")
	}
	if o.SpatialResults == "" {
		return errors.New(errors.ErrCodeInvalidInput, "spatial results directory is required")
	}
	if o.OutputDir == "" {
		return errors.New(errors.ErrCodeInvalidInput, "output directory is required")
	}
	if len(o.Indicators) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "no indicators configured")
	}
	if err := o.Render.setDefaults(); err != nil {
		return err
	}
	bg, err := palette.Parse(o.Render.Background)
	if err != nil {
		return err
	}
	o.background = bg

	for i := range o.Indicators {
		if err := o.Indicators[i].setDefaults(o.Render); err != nil {
			return errors.Wrap(errors.GetCode(err), err, "indicator %d", i+1)
		}
	}
	if o.WorkspaceRoot == "" {
		o.WorkspaceRoot = workspace.DefaultRoot()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

func (r *RenderOptions) setDefaults() error {
	if r.Width == 0 && r.Height == 0 {
		r.Width, r.Height = DefaultWidth, DefaultHeight
	}
	if err := errors.ValidateDimensions(r.Width, r.Height); err != nil {
		return err
	}
	if err := errors.ValidateYearRange(r.StartYear, r.EndYear); err != nil {
		return err
	}
	if r.FPS == 0 {
		r.FPS = DefaultFPS
	}
	if r.FPS < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "fps must be positive, got %d", r.FPS)
	}
	if r.Workers <= 0 {
		r.Workers = runtime.NumCPU()
	}
	if r.Palette == "" {
		r.Palette = DefaultPalette
	}
	if r.DisturbancePalette == "" {
		r.DisturbancePalette = DefaultDisturbancePalette
	}
	if r.Background == "" {
		r.Background = DefaultBackground
	}
	for _, name := range []string{r.Palette, r.NegativePalette, r.DisturbancePalette} {
		if name != "" && !palette.Exists(name) {
			return errors.New(errors.ErrCodeInvalidPalette, "unknown palette %q", name)
		}
	}
	if _, err := video.New(r.Encoder); err != nil {
		return err
	}
	return nil
}

func (ind *IndicatorOptions) setDefaults(r RenderOptions) error {
	if ind.DatabaseIndicator == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "database_indicator is required")
	}
	if err := errors.ValidatePattern(ind.FilePattern); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s", ind.DatabaseIndicator)
	}
	if ind.Title == "" {
		ind.Title = ind.DatabaseIndicator
	}
	if ind.Palette == "" {
		ind.Palette = r.Palette
	}
	if ind.NegativePalette == "" {
		ind.NegativePalette = r.NegativePalette
	}
	if ind.Colorizer == "" {
		ind.Colorizer = DefaultColorizer
	}
	ind.Colorizer = strings.ToLower(ind.Colorizer)

	for _, u := range []struct {
		name   *string
		def    string
		parsed *units.Units
	}{
		{&ind.FileUnits, DefaultFileUnits, &ind.parsed.fileUnits},
		{&ind.GraphUnits, DefaultGraphUnits, &ind.parsed.graphUnits},
		{&ind.MapUnits, DefaultMapUnits, &ind.parsed.mapUnits},
	} {
		if *u.name == "" {
			*u.name = u.def
		}
		parsed, err := units.Parse(*u.name)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidUnits, err, "%s", ind.DatabaseIndicator)
		}
		*u.parsed = parsed
	}

	// Building the colorizer validates strategy, bins and palettes.
	if _, err := ind.colorizer(r, nil); err != nil {
		return errors.Wrap(errors.GetCode(err), err, "%s", ind.DatabaseIndicator)
	}
	return nil
}

func (ind *IndicatorOptions) colorizer(r RenderOptions, logger *log.Logger) (colorizer.Colorizer, error) {
	return colorizer.New(colorizer.Config{
		Strategy:        ind.Colorizer,
		Bins:            ind.Bins,
		Palette:         ind.Palette,
		NegativePalette: ind.NegativePalette,
		Groups:          ind.Groups,
		MemoryLimit:     r.MemoryLimit,
		Logger:          logger,
	})
}
