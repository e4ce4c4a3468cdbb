package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gcbmanimation/pkg/layer"
)

const histogramBuckets = 10

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "inspect <raster>...",
		Short:             "Print raster metadata and a value histogram",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: rasterArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, path := range args {
				if i > 0 {
					printNewline()
				}
				report, err := inspectRaster(cmd.Context(), path)
				if err != nil {
					return err
				}
				fmt.Fprint(out, report)
			}
			return nil
		},
	}
}

// inspectRaster renders the metadata table and histogram of one raster.
func inspectRaster(ctx context.Context, path string) (string, error) {
	l := layer.New(nil, path, 0, layer.WithLogger(loggerFromContext(ctx)))
	info, err := l.Info()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(StyleTitle.Render(path))
	b.WriteString("\n")

	rows := [][]string{
		{"Size", fmt.Sprintf("%d x %d", info.Width, info.Height)},
		{"CRS", info.CRS.String()},
		{"Pixel size", fmt.Sprintf("%.2f m", info.PixelSize)},
		{"NoData", strconv.FormatFloat(info.NoData, 'g', -1, 64)},
		{"Type", info.Type.String()},
		{"Min", strconv.FormatFloat(info.Min, 'g', 6, 64)},
		{"Max", strconv.FormatFloat(info.Max, 'g', 6, 64)},
		{"Valid pixels", strconv.Itoa(info.ValidCount)},
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Property", "Value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			if col == 1 {
				return StyleValue
			}
			return lipgloss.NewStyle().Foreground(colorGray)
		})
	b.WriteString(t.Render())
	b.WriteString("\n")

	if info.ValidCount == 0 {
		b.WriteString(StyleDim.Render("no valid pixels"))
		b.WriteString("\n")
		return b.String(), nil
	}
	counts, err := l.Histogram(ctx, info.Min, info.Max, histogramBuckets)
	if err != nil {
		return "", err
	}
	b.WriteString(renderHistogram(counts, info.Min, info.Max, barWidth))
	return b.String(), nil
}

// renderHistogram draws one line per bucket: its range, a bar scaled to the
// fullest bucket, and the count.
func renderHistogram(counts []int, lo, hi float64, width int) string {
	peak := 0
	for _, n := range counts {
		peak = max(peak, n)
	}
	step := (hi - lo) / float64(len(counts))
	labels := make([]string, len(counts))
	labelWidth := 0
	for i := range counts {
		from := lo + float64(i)*step
		labels[i] = fmt.Sprintf("%.4g .. %.4g", from, from+step)
		labelWidth = max(labelWidth, len(labels[i]))
	}

	var b strings.Builder
	for i, n := range counts {
		filled := 0
		if peak > 0 {
			filled = n * width / peak
		}
		fmt.Fprintf(&b, "%s  %s%s %s\n",
			StyleDim.Render(fmt.Sprintf("%*s", labelWidth, labels[i])),
			styleBar.Render(strings.Repeat("█", filled)),
			strings.Repeat(" ", width-filled),
			StyleNumber.Render(strconv.Itoa(n)))
	}
	return b.String()
}
