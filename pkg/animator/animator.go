// Package animator produces one video per indicator. Each video frame shows
// the year's disturbances, the indicator map, the indicator graph and a
// shared legend in a quadrant layout.
package animator

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gcbmanimation/pkg/collection"
	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/frame"
	"github.com/matzehuels/gcbmanimation/pkg/indicator"
	"github.com/matzehuels/gcbmanimation/pkg/layer"
	"github.com/matzehuels/gcbmanimation/pkg/layout"
	"github.com/matzehuels/gcbmanimation/pkg/legend"
	"github.com/matzehuels/gcbmanimation/pkg/observability"
	"github.com/matzehuels/gcbmanimation/pkg/video"
	"github.com/matzehuels/gcbmanimation/pkg/workspace"
)

// Defaults for the rendered video.
const (
	DefaultWidth  = 3840
	DefaultHeight = 2160
	DefaultFPS    = 1
)

// DisturbancesLabel titles the disturbance quadrant and legend panel.
const DisturbancesLabel = "Disturbances"

// Animator renders indicator animations against a shared disturbance
// collection.
type Animator struct {
	ws           *workspace.Workspace
	disturbances *collection.Collection
	indicators   []*indicator.Indicator
	outputDir    string

	layout  *layout.Layout
	encoder video.Encoder
	width   int
	height  int
	fps     int
	logger  *log.Logger

	disturbanceOnce   sync.Once
	disturbanceFrames []*frame.Frame
	disturbanceLegend legend.Legend
	disturbanceErr    error
}

// Option configures an Animator.
type Option func(*Animator)

// WithLayout replaces the default quadrant layout.
func WithLayout(l *layout.Layout) Option {
	return func(a *Animator) {
		if l != nil {
			a.layout = l
		}
	}
}

// WithEncoder sets the video encoder. Defaults to ffmpeg when installed,
// GIF otherwise.
func WithEncoder(e video.Encoder) Option {
	return func(a *Animator) {
		if e != nil {
			a.encoder = e
		}
	}
}

// WithDimensions sets the video frame size.
func WithDimensions(width, height int) Option {
	return func(a *Animator) { a.width, a.height = width, height }
}

// WithFPS sets the number of years shown per second.
func WithFPS(fps int) Option {
	return func(a *Animator) {
		if fps > 0 {
			a.fps = fps
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(a *Animator) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an Animator writing videos to outputDir.
func New(ws *workspace.Workspace, disturbances *collection.Collection, indicators []*indicator.Indicator, outputDir string, opts ...Option) (*Animator, error) {
	a := &Animator{
		ws:           ws,
		disturbances: disturbances,
		indicators:   indicators,
		outputDir:    outputDir,
		layout:       layout.Default(),
		width:        DefaultWidth,
		height:       DefaultHeight,
		fps:          DefaultFPS,
		logger:       log.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := errors.ValidateDimensions(a.width, a.height); err != nil {
		return nil, err
	}
	if a.encoder == nil {
		enc, err := video.New("")
		if err != nil {
			return nil, err
		}
		a.encoder = enc
	}
	return a, nil
}

// Render writes one video per indicator and returns their paths. Without a
// year range, the first indicator's graph years are used for every
// indicator. Rendering stops at the first failing indicator; the error names
// it.
func (a *Animator) Render(ctx context.Context, box *layer.BoundingBox, startYear, endYear int) ([]string, error) {
	if err := errors.ValidateYearRange(startYear, endYear); err != nil {
		return nil, err
	}
	if len(a.indicators) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no indicators to animate")
	}

	var outputs []string
	for _, ind := range a.indicators {
		start := time.Now()
		out, err := a.renderIndicator(ctx, ind, box, &startYear, &endYear)
		observability.Pipeline().OnIndicatorComplete(ctx, ind.Title(), time.Since(start), err)
		if err != nil {
			return outputs, errors.Wrap(codeOf(err), err, "indicator %s", ind.Title())
		}
		a.logger.Info("wrote animation", "indicator", ind.Title(), "path", out, "duration", time.Since(start).Round(time.Millisecond))
		outputs = append(outputs, out)
	}
	return outputs, nil
}

func (a *Animator) renderIndicator(ctx context.Context, ind *indicator.Indicator, box *layer.BoundingBox, startYear, endYear *int) (string, error) {
	title := ind.Title()
	a.logger.Info("rendering indicator", "indicator", title)

	graphFrames, err := ind.RenderGraphFrames(ctx, box, *startYear, *endYear)
	if err != nil {
		return "", err
	}
	if *startYear == 0 || *endYear == 0 {
		*startYear, *endYear = yearSpan(graphFrames)
	}
	years := *endYear - *startYear + 1
	observability.Pipeline().OnIndicatorStart(ctx, title, years)

	mapFrames, mapLegend, err := ind.RenderMapFrames(ctx, box, *startYear, *endYear)
	if err != nil {
		return "", err
	}

	disturbanceFrames, disturbanceLegend, err := a.renderDisturbances(ctx, box, *startYear, *endYear)
	if err != nil {
		return "", err
	}

	mapTitle := fmt.Sprintf("%s (%s)", title, ind.MapUnits().Label)
	legendFrame, err := renderLegend(a.ws, []legendPanel{
		{Title: DisturbancesLabel, Entries: disturbanceLegend},
		{Title: mapTitle, Entries: mapLegend},
	}, max(12, float64(a.height)/54))
	if err != nil {
		return "", err
	}

	labels := [4]string{DisturbancesLabel, mapTitle, title, ""}
	paths := make([]string, 0, years+1)
	for year := *startYear; year <= *endYear; year++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		quads := [4]*frame.Frame{
			findFrame(disturbanceFrames, year),
			findFrame(mapFrames, year),
			findFrame(graphFrames, year),
			nil,
		}
		if legendFrame != nil {
			quads[3] = legendFrame.WithYear(year)
		}
		f, err := a.layout.Render(ctx, a.ws, quads, labels, fmt.Sprintf("%s, Year: %d", title, year), a.width, a.height)
		if err != nil {
			return "", err
		}
		paths = append(paths, f.Path())
		observability.Pipeline().OnFrameRendered(ctx, title, year)
		a.logger.Debug("rendered frame", "indicator", title, "year", year)
	}
	// Hold the last year on screen for an extra frame.
	paths = append(paths, paths[len(paths)-1])

	observability.Pipeline().OnEncodeStart(ctx, title, len(paths))
	encodeStart := time.Now()
	out, err := a.encoder.Encode(ctx, paths, a.fps, filepath.Join(a.outputDir, title))
	observability.Pipeline().OnEncodeComplete(ctx, title, out, time.Since(encodeStart), err)
	if err != nil {
		return "", err
	}

	if n, err := a.ws.PurgeRasters(ctx); err != nil {
		a.logger.Warn("could not purge workspace rasters", "err", err)
	} else {
		a.logger.Debug("purged workspace rasters", "files", n)
	}
	return out, nil
}

// renderDisturbances renders the disturbance collection on first use and
// returns the cached result afterwards. An empty collection yields no frames.
func (a *Animator) renderDisturbances(ctx context.Context, box *layer.BoundingBox, startYear, endYear int) ([]*frame.Frame, legend.Legend, error) {
	a.disturbanceOnce.Do(func() {
		if a.disturbances == nil || a.disturbances.Empty() {
			a.logger.Warn("no disturbance layers to render")
			return
		}
		a.disturbanceFrames, a.disturbanceLegend, a.disturbanceErr = a.disturbances.Render(ctx, box, startYear, endYear, nil)
	})
	return a.disturbanceFrames, a.disturbanceLegend, a.disturbanceErr
}

func yearSpan(frames []*frame.Frame) (start, end int) {
	for i, f := range frames {
		if i == 0 || f.Year() < start {
			start = f.Year()
		}
		if i == 0 || f.Year() > end {
			end = f.Year()
		}
	}
	return start, end
}

func findFrame(frames []*frame.Frame, year int) *frame.Frame {
	for _, f := range frames {
		if f.Year() == year {
			return f
		}
	}
	return nil
}

func codeOf(err error) errors.Code {
	if code := errors.GetCode(err); code != "" {
		return code
	}
	return errors.ErrCodeRuntime
}
