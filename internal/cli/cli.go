// Package cli implements the gcbmanimation command-line interface.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gcbmanimation/pkg/buildinfo"
	"github.com/matzehuels/gcbmanimation/pkg/pipeline"
	"github.com/matzehuels/gcbmanimation/pkg/workspace"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "gcbmanimation"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// workspaceRoot overrides the XDG workspace location. Tests set it.
	workspaceRoot string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Animate GCBM simulation results",
		Long:          `gcbmanimation turns the yearly rasters of a GCBM run into colorized maps, results graphs and one video per indicator, with the study area's disturbances alongside.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.animateCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.workspaceCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner() *pipeline.Runner {
	return pipeline.NewRunner(c.Logger)
}

// =============================================================================
// Paths
// =============================================================================

// workspaceDir returns the root below which runs create their scratch
// directories ($XDG_CACHE_HOME/gcbmanimation or ~/.cache/gcbmanimation).
func (c *CLI) workspaceDir() string {
	if c.workspaceRoot != "" {
		return c.workspaceRoot
	}
	return workspace.DefaultRoot()
}
