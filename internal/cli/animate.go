package cli

import (
	"context"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/observability"
	"github.com/matzehuels/gcbmanimation/pkg/pipeline"
	"github.com/matzehuels/gcbmanimation/pkg/video"
)

// animateOpts holds the flags of the animate command. Render settings given
// on the command line override the config file.
type animateOpts struct {
	dbResults   string
	boundingBox string
	render      pipeline.RenderOptions
	tui         bool
}

// renderFlags maps flag names to the config field they override.
func (o *animateOpts) renderFlags(dst *pipeline.RenderOptions) map[string]func() {
	return map[string]func(){
		"start-year": func() { dst.StartYear = o.render.StartYear },
		"end-year":   func() { dst.EndYear = o.render.EndYear },
		"width":      func() { dst.Width = o.render.Width },
		"height":     func() { dst.Height = o.render.Height },
		"fps":        func() { dst.FPS = o.render.FPS },
		"encoder":    func() { dst.Encoder = o.render.Encoder },
		"workers":    func() { dst.Workers = o.render.Workers },
	}
}

// animateCommand creates the animate command.
func (c *CLI) animateCommand() *cobra.Command {
	var opts animateOpts

	cmd := &cobra.Command{
		Use:   "animate <study_area.json> <spatial_results> <config.toml|json> <output_dir>",
		Short: "Render one video per configured indicator",
		Long: `Render one video per configured indicator.

Each frame shows the year's disturbances, the indicator map, a graph of the
indicator over the simulation, and a legend. Graphs come from the compiled
results database when --db-results is given and no --bounding-box overrides
it; otherwise the spatial output is summed.`,
		Args:              cobra.ExactArgs(4),
		ValidArgsFunction: animateArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(args[2])
			if err != nil {
				return err
			}
			for name, apply := range opts.renderFlags(&cfg.Render) {
				if cmd.Flags().Changed(name) {
					apply()
				}
			}
			runOpts := pipeline.Options{
				StudyArea:      args[0],
				SpatialResults: args[1],
				DBResults:      opts.dbResults,
				BoundingBox:    opts.boundingBox,
				OutputDir:      args[3],
				Indicators:     cfg.Indicators,
				Render:         cfg.Render,
				WorkspaceRoot:  c.workspaceDir(),
			}
			if err := absPaths(&runOpts); err != nil {
				return err
			}
			if opts.tui {
				return c.runAnimateTUI(cmd.Context(), runOpts)
			}
			return c.runAnimate(cmd.Context(), runOpts)
		},
	}

	cmd.Flags().StringVar(&opts.dbResults, "db-results", "", "compiled GCBM results database for the graphs")
	cmd.Flags().StringVar(&opts.boundingBox, "bounding-box", "", "raster defining the animation area (default: found in the study area directory)")
	cmd.Flags().IntVar(&opts.render.StartYear, "start-year", 0, "first year to animate (default: simulation start)")
	cmd.Flags().IntVar(&opts.render.EndYear, "end-year", 0, "last year to animate (default: simulation end)")
	cmd.Flags().IntVar(&opts.render.Width, "width", pipeline.DefaultWidth, "video width in pixels")
	cmd.Flags().IntVar(&opts.render.Height, "height", pipeline.DefaultHeight, "video height in pixels")
	cmd.Flags().IntVar(&opts.render.FPS, "fps", pipeline.DefaultFPS, "frames (years) per second")
	cmd.Flags().StringVar(&opts.render.Encoder, "encoder", "", "video encoder: ffmpeg, ffmpeg:wmv, gif (default: ffmpeg when installed)")
	cmd.Flags().IntVar(&opts.render.Workers, "workers", 0, "layers processed concurrently (default: number of CPUs)")
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "show an interactive progress view")

	_ = cmd.RegisterFlagCompletionFunc("bounding-box", rasterArgs)
	_ = cmd.RegisterFlagCompletionFunc("db-results", databaseArgs)
	_ = cmd.RegisterFlagCompletionFunc("encoder", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{
			video.NameFFmpeg,
			video.NameFFmpeg + ":" + video.FormatWMV,
			video.NameGIF,
		}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// absPaths resolves the input and output paths so logs and results name
// files unambiguously.
func absPaths(opts *pipeline.Options) error {
	for _, p := range []*string{&opts.StudyArea, &opts.SpatialResults, &opts.DBResults, &opts.BoundingBox, &opts.OutputDir} {
		if *p == "" {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "resolve %s", *p)
		}
		*p = abs
	}
	return nil
}

// =============================================================================
// Plain Output
// =============================================================================

func (c *CLI) runAnimate(ctx context.Context, opts pipeline.Options) error {
	logger := loggerFromContext(ctx)
	opts.Logger = logger

	spinner := newSpinnerWithContext(ctx, "Loading study area")
	observability.SetPipelineHooks(&spinnerHooks{spinner: spinner, logger: logger})
	observability.SetWorkspaceHooks(purgeHooks{logger: logger})
	defer observability.Reset()

	prog := newProgress(logger)
	spinner.Start()
	result, err := c.newRunner().Execute(ctx, opts)
	spinner.Stop()
	if err != nil {
		return userError(ctx, err)
	}
	prog.done("Animation finished", "videos", len(result.Videos))
	printResult(result)
	return nil
}

// =============================================================================
// Interactive Output
// =============================================================================

func (c *CLI) runAnimateTUI(ctx context.Context, opts pipeline.Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewProgressModel(), tea.WithContext(ctx), tea.WithOutput(os.Stderr))
	level := loggerFromContext(ctx).GetLevel()
	opts.Logger = newLogger(teaWriter{send: p.Send}, max(level, log.WarnLevel))
	observability.SetPipelineHooks(newTeaHooks(p.Send))
	defer observability.Reset()

	type outcome struct {
		result *pipeline.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := c.newRunner().Execute(ctx, opts)
		done <- outcome{result, err}
		p.Send(runDoneMsg{result: result, err: err})
	}()

	final, runErr := p.Run()
	if m, ok := final.(ProgressModel); ok && m.Aborted {
		cancel()
	}
	res := <-done
	if runErr != nil {
		loggerFromContext(ctx).Debug("progress view stopped", "err", runErr)
	}
	if res.err != nil {
		return userError(ctx, res.err)
	}
	printResult(res.result)
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

func printResult(result *pipeline.Result) {
	printSuccess("Rendered %d animation(s)", len(result.Videos))
	for _, v := range result.Videos {
		printFile(v)
	}
	printDetail("Bounding box: %s", result.BoundingBox)
	printDetail("Graphs from: %s results", result.Provider)
}

// cliError shows the user-facing message of a coded error while keeping
// the original chain for errors.Is.
type cliError struct{ err error }

func (e cliError) Error() string { return errors.UserMessage(e.err) }
func (e cliError) Unwrap() error { return e.err }

// userError passes cancellation through unchanged so main can exit 130.
func userError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return cliError{err}
}
