package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// shell is one completion target with its install instructions.
type shell struct {
	name    string
	install []string
	gen     func(root *cobra.Command, w io.Writer) error
}

var shells = []shell{
	{
		name: "bash",
		install: []string{
			"$ source <(" + appName + " completion bash)",
			"$ " + appName + " completion bash > /etc/bash_completion.d/" + appName,
		},
		gen: func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	},
	{
		name: "zsh",
		install: []string{
			`$ echo "autoload -U compinit; compinit" >> ~/.zshrc`,
			"$ " + appName + ` completion zsh > "${fpath[1]}/_` + appName + `"`,
		},
		gen: func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	},
	{
		name: "fish",
		install: []string{
			"$ " + appName + " completion fish > ~/.config/fish/completions/" + appName + ".fish",
		},
		gen: func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	},
	{
		name: "powershell",
		install: []string{
			"PS> " + appName + " completion powershell | Out-String | Invoke-Expression",
		},
		gen: func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) },
	},
}

func completionHelp() string {
	var b strings.Builder
	b.WriteString("Generate shell completion scripts for " + appName + ".\n\n")
	b.WriteString("Besides subcommands and flags, the scripts complete --encoder values,\n")
	b.WriteString("GeoTIFF paths for inspect and --bounding-box, databases for --db-results,\n")
	b.WriteString("and the four positional arguments of animate.\n")
	for _, s := range shells {
		fmt.Fprintf(&b, "\n%s:\n", s.name)
		for _, line := range s.install {
			b.WriteString("  " + line + "\n")
		}
	}
	return b.String()
}

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	names := make([]string, len(shells))
	for i, s := range shells {
		names[i] = s.name
	}
	return &cobra.Command{
		Use:                   "completion [" + strings.Join(names, "|") + "]",
		Short:                 "Generate shell completion scripts",
		Long:                  completionHelp(),
		DisableFlagsInUseLine: true,
		ValidArgs:             names,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range shells {
				if s.name == args[0] {
					return s.gen(cmd.Root(), out)
				}
			}
			return nil
		},
	}
}

// rasterArgs completes GeoTIFF file names.
func rasterArgs(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return []string{"tif", "tiff"}, cobra.ShellCompDirectiveFilterFileExt
}

// databaseArgs completes compiled results databases.
func databaseArgs(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return []string{"db", "sqlite"}, cobra.ShellCompDirectiveFilterFileExt
}

// animateArgs completes the study area file, the results directory, the
// indicator config and the output directory, in that order.
func animateArgs(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return []string{"json"}, cobra.ShellCompDirectiveFilterFileExt
	case 1, 3:
		return nil, cobra.ShellCompDirectiveFilterDirs
	case 2:
		return []string{"toml", "json"}, cobra.ShellCompDirectiveFilterFileExt
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}
