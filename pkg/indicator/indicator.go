// Package indicator pairs an ecosystem indicator's spatial output with its
// non-spatial results and renders both into frames.
package indicator

import (
	"context"
	"image/color"
	"runtime"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gcbmanimation/pkg/chart"
	"github.com/matzehuels/gcbmanimation/pkg/collection"
	colorizer "github.com/matzehuels/gcbmanimation/pkg/color"
	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/frame"
	"github.com/matzehuels/gcbmanimation/pkg/layer"
	"github.com/matzehuels/gcbmanimation/pkg/legend"
	"github.com/matzehuels/gcbmanimation/pkg/provider"
	"github.com/matzehuels/gcbmanimation/pkg/units"
	"github.com/matzehuels/gcbmanimation/pkg/workspace"
)

// DefaultPalette colors indicator maps when none is configured.
const DefaultPalette = "Greens"

// DefaultBackground is painted under indicator maps.
var DefaultBackground = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Config describes one indicator. Only Name, Pattern and Provider are
// required.
type Config struct {
	// Name is the indicator's name in the results database.
	Name string
	// Pattern globs the indicator's yearly rasters, e.g. "/run/NPP_*.tif".
	Pattern string
	// FileUnits are the rasters' native units. Defaults to tC/ha/yr.
	FileUnits units.Units
	// Provider supplies the graphed annual totals.
	Provider provider.ResultsProvider
	// Filter is the indicator name passed to the provider. Defaults to Name.
	Filter string

	Title      string
	GraphUnits units.Units
	MapUnits   units.Units
	Palette    string
	Background *color.RGBA
	Colorizer  colorizer.Colorizer
	Chart      chart.Renderer
	Workers    int
	Logger     *log.Logger
}

// Indicator renders map and graph frames for one indicator.
type Indicator struct {
	cfg Config
	ws  *workspace.Workspace
}

// New validates cfg and fills in its defaults.
func New(ws *workspace.Workspace, cfg Config) (*Indicator, error) {
	if cfg.Name == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "indicator needs a name")
	}
	if err := errors.ValidatePattern(cfg.Pattern); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "indicator %s", cfg.Name)
	}
	if cfg.Provider == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "indicator %s has no results provider", cfg.Name)
	}
	if cfg.Filter == "" {
		cfg.Filter = cfg.Name
	}
	if cfg.Title == "" {
		cfg.Title = cfg.Name
	}
	if cfg.FileUnits.Scale == 0 {
		cfg.FileUnits = units.TcPerHa
	}
	if cfg.GraphUnits.Scale == 0 {
		cfg.GraphUnits = units.Tc
	}
	if cfg.MapUnits.Scale == 0 {
		cfg.MapUnits = units.TcPerHa
	}
	if cfg.Palette == "" {
		cfg.Palette = DefaultPalette
	}
	if cfg.Background == nil {
		bg := DefaultBackground
		cfg.Background = &bg
	}
	if cfg.Colorizer == nil {
		cz, err := colorizer.New(colorizer.Config{Palette: cfg.Palette, Logger: cfg.Logger})
		if err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "indicator %s", cfg.Name)
		}
		cfg.Colorizer = cz
	}
	if cfg.Chart == nil {
		cfg.Chart = &chart.Line{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Indicator{cfg: cfg, ws: ws}, nil
}

// Name returns the indicator's short name.
func (ind *Indicator) Name() string { return ind.cfg.Name }

// Title returns the presentation title.
func (ind *Indicator) Title() string { return ind.cfg.Title }

// MapUnits returns the units maps are rendered in.
func (ind *Indicator) MapUnits() units.Units { return ind.cfg.MapUnits }

// GraphUnits returns the units the graph is drawn in.
func (ind *Indicator) GraphUnits() units.Units { return ind.cfg.GraphUnits }

// SimulationYears returns the provider's simulation years.
func (ind *Indicator) SimulationYears(ctx context.Context) (int, int, error) {
	return ind.cfg.Provider.SimulationYears(ctx)
}

// RenderMapFrames renders the indicator's rasters, cropped to box when given,
// in map units. Without a year range the provider's simulation years are
// used.
func (ind *Indicator) RenderMapFrames(ctx context.Context, box *layer.BoundingBox, startYear, endYear int) ([]*frame.Frame, legend.Legend, error) {
	layers, err := layer.Find(ind.ws, ind.cfg.Pattern,
		layer.WithUnits(ind.cfg.FileUnits), layer.WithLogger(ind.cfg.Logger))
	if err != nil {
		return nil, nil, err
	}
	if startYear == 0 || endYear == 0 {
		if startYear, endYear, err = ind.SimulationYears(ctx); err != nil {
			return nil, nil, err
		}
	}

	c := collection.New(layers,
		collection.WithName(ind.cfg.Title),
		collection.WithColorizer(ind.cfg.Colorizer),
		collection.WithBackground(*ind.cfg.Background),
		collection.WithWorkers(ind.cfg.Workers),
		collection.WithLogger(ind.cfg.Logger))
	target := ind.cfg.MapUnits
	return c.Render(ctx, box, startYear, endYear, &target)
}

// RenderGraphFrames fetches the annual series in graph units and draws one
// graph frame per year. The box only affects providers that read rasters.
func (ind *Indicator) RenderGraphFrames(ctx context.Context, box *layer.BoundingBox, startYear, endYear int) ([]*frame.Frame, error) {
	series, err := ind.cfg.Provider.AnnualResult(ctx, provider.Query{
		Indicator:   ind.cfg.Filter,
		StartYear:   startYear,
		EndYear:     endYear,
		Units:       ind.cfg.GraphUnits,
		BoundingBox: box,
	})
	if err != nil {
		return nil, err
	}
	ind.cfg.Logger.Debug("fetched annual results", "indicator", ind.cfg.Name, "years", len(series))
	return ind.cfg.Chart.Render(ctx, ind.ws, ind.cfg.Title, ind.cfg.GraphUnits, series)
}
