package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gcbmanimation/pkg/workspace"
)

// workspaceCommand creates the workspace management command.
func (c *CLI) workspaceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage the scratch directory for intermediate rasters and frames",
	}

	cmd.AddCommand(c.workspaceCleanCommand())
	cmd.AddCommand(c.workspacePathCommand())

	return cmd
}

// workspaceCleanCommand creates the "workspace clean" subcommand.
func (c *CLI) workspaceCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove run directories left behind by interrupted runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := c.workspaceDir()
			usage, err := workspace.Inspect(dir)
			if err != nil {
				return err
			}
			if usage.Runs == 0 {
				printInfo("Workspace is empty")
				return nil
			}

			removed, err := workspace.Clean(dir)
			if err != nil {
				return err
			}
			printSuccess("Removed %d run(s), %d file(s), %s", removed, usage.Files, formatBytes(usage.Bytes))
			printDetail("Directory: %s", dir)
			return nil
		},
	}
}

// workspacePathCommand creates the "workspace path" subcommand.
func (c *CLI) workspacePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the workspace directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(out, c.workspaceDir())
			return nil
		},
	}
}
