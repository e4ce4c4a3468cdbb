package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gcbmanimation/pkg/animator"
	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/indicator"
	"github.com/matzehuels/gcbmanimation/pkg/layer"
	"github.com/matzehuels/gcbmanimation/pkg/provider"
	"github.com/matzehuels/gcbmanimation/pkg/studyarea"
	"github.com/matzehuels/gcbmanimation/pkg/video"
	"github.com/matzehuels/gcbmanimation/pkg/workspace"
)

// Runner executes animation runs. It holds no per-run state, so one Runner
// may serve several runs.
type Runner struct {
	Logger *log.Logger
}

// NewRunner creates a runner. A nil logger uses the default logger.
func NewRunner(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Logger: logger}
}

// Execute renders one video per configured indicator into opts.OutputDir.
// Intermediate files live in a fresh workspace that is removed on return.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	opts.Indicators = slices.Clone(opts.Indicators)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	for _, p := range []string{opts.StudyArea, opts.SpatialResults, opts.DBResults, opts.BoundingBox} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			return nil, errors.Wrap(errors.ErrCodeIO, err, "%s not found", p)
		}
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "create output directory %s", opts.OutputDir)
	}

	ws, err := workspace.New(opts.WorkspaceRoot, workspace.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	result := &Result{}

	boxPath := opts.BoundingBox
	if boxPath == "" {
		if boxPath, err = studyarea.FindBoundingBox(opts.StudyArea); err != nil {
			return nil, err
		}
	}
	result.BoundingBox = boxPath
	logger.Info("using bounding box", "path", boxPath)
	box := layer.NewBoundingBox(layer.New(ws, boxPath, 0, layer.WithLogger(logger)))

	stage := time.Now()
	disturbances, err := studyarea.New(ws,
		studyarea.WithPalette(opts.Render.DisturbancePalette),
		studyarea.WithWorkers(opts.Render.Workers),
		studyarea.WithLogger(logger)).Configure(ctx, opts.StudyArea)
	if err != nil {
		return nil, err
	}
	logger.Debug("configured study area", "layers", disturbances.Len(), "duration", time.Since(stage))

	// The results database covers the whole simulation area, so it only
	// matches the maps when no explicit bounding box narrows them.
	var db *provider.SQLite
	if opts.DBResults != "" && opts.BoundingBox == "" {
		if db, err = provider.NewSQLite(opts.DBResults, provider.WithSQLiteLogger(logger)); err != nil {
			return nil, err
		}
		defer db.Close()
		result.Provider = "sqlite"
	} else {
		result.Provider = "spatial"
	}

	indicators := make([]*indicator.Indicator, 0, len(opts.Indicators))
	for _, ic := range opts.Indicators {
		ind, err := r.buildIndicator(ws, opts, ic, db)
		if err != nil {
			return nil, err
		}
		indicators = append(indicators, ind)
	}

	enc, err := video.New(opts.Render.Encoder)
	if err != nil {
		return nil, err
	}
	a, err := animator.New(ws, disturbances, indicators, opts.OutputDir,
		animator.WithEncoder(enc),
		animator.WithDimensions(opts.Render.Width, opts.Render.Height),
		animator.WithFPS(opts.Render.FPS),
		animator.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	videos, err := a.Render(ctx, box, opts.Render.StartYear, opts.Render.EndYear)
	result.Videos = videos
	if err != nil {
		return result, err
	}
	return result, nil
}

func (r *Runner) buildIndicator(ws *workspace.Workspace, opts Options, ic IndicatorOptions, db *provider.SQLite) (*indicator.Indicator, error) {
	logger := opts.Logger
	pattern := filepath.Join(opts.SpatialResults, ic.FilePattern)

	var results provider.ResultsProvider = provider.NewSpatial(ws, pattern, ic.parsed.fileUnits,
		provider.WithWorkers(opts.Render.Workers), provider.WithLogger(logger))
	if db != nil {
		results = db
	}

	cz, err := ic.colorizer(opts.Render, logger)
	if err != nil {
		return nil, err
	}
	bg := opts.background
	return indicator.New(ws, indicator.Config{
		Name:       ic.DatabaseIndicator,
		Pattern:    pattern,
		FileUnits:  ic.parsed.fileUnits,
		Provider:   results,
		Title:      ic.Title,
		GraphUnits: ic.parsed.graphUnits,
		MapUnits:   ic.parsed.mapUnits,
		Palette:    ic.Palette,
		Background: &bg,
		Colorizer:  cz,
		Workers:    opts.Render.Workers,
		Logger:     logger,
	})
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
