// Package chart draws the yearly indicator graph: the whole time series
// with the current year highlighted, one PNG per year.
package chart

import (
	"context"
	"image/color"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/frame"
	"github.com/matzehuels/gcbmanimation/pkg/provider"
	"github.com/matzehuels/gcbmanimation/pkg/units"
	"github.com/matzehuels/gcbmanimation/pkg/workspace"
)

// Renderer turns an annual series into one graph frame per year.
type Renderer interface {
	Render(ctx context.Context, ws *workspace.Workspace, title string, u units.Units, series provider.Series) ([]*frame.Frame, error)
}

var (
	darkGray  = color.RGBA{R: 169, G: 169, B: 169, A: 255}
	navy      = color.RGBA{B: 128, A: 255}
	blue      = color.RGBA{B: 255, A: 255}
	bandGreen = color.NRGBA{G: 128, A: 128}
	gainsboro = color.RGBA{R: 220, G: 220, B: 220, A: 255}
)

// Line draws the series as a dashed line graph. The zero value renders
// 10x5 inch images.
type Line struct {
	Width, Height vg.Length
}

// Render implements Renderer.
func (l *Line) Render(ctx context.Context, ws *workspace.Workspace, title string, u units.Units, series provider.Series) ([]*frame.Frame, error) {
	if len(series) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no results to plot for %s", title)
	}
	width, height := l.Width, l.Height
	if width == 0 || height == 0 {
		width, height = 10*vg.Inch, 5*vg.Inch
	}

	frames := make([]*frame.Frame, 0, len(series))
	for i, pt := range series {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := plotYear(title, u, series, i)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeRuntime, err, "plot %s %d", title, pt.Year)
		}
		path := ws.FramePath()
		if err := p.Save(width, height, path); err != nil {
			return nil, errors.Wrap(errors.ErrCodeIO, err, "save graph %s", path)
		}
		frames = append(frames, frame.New(pt.Year, path))
	}
	return frames, nil
}

// plotYear builds the graph for series[current].
func plotYear(title string, u units.Units, series provider.Series, current int) (*plot.Plot, error) {
	first, last := series[0].Year, series[len(series)-1].Year
	lo, hi := series.Range()
	yMin, yMax := lo-0.1, hi+0.1
	xMin, xMax := float64(first)-0.5, float64(last)+0.5

	p := plot.New()
	p.X.Label.Text = "Years"
	p.Y.Label.Text = title
	if u.Label != "" {
		p.Y.Label.Text += " (" + u.Label + ")"
	}
	p.X.Min, p.X.Max = xMin, xMax
	p.Y.Min, p.Y.Max = yMin, yMax
	p.X.Tick.Marker = plot.TickerFunc(yearTicks)
	for _, axis := range []*plot.Axis{&p.X, &p.Y} {
		axis.Label.TextStyle.Font.Size = vg.Points(14)
		axis.Tick.Label.Font.Size = vg.Points(12)
	}

	pts := make(plotter.XYs, len(series))
	for i, pt := range series {
		pts[i] = plotter.XY{X: float64(pt.Year), Y: pt.Value}
	}

	// Area under the series up to the current year.
	area := make(plotter.XYs, 0, current+3)
	area = append(area, pts[:current+1]...)
	area = append(area, plotter.XY{X: pts[current].X, Y: 0}, plotter.XY{X: pts[0].X, Y: 0})
	fill, err := plotter.NewPolygon(area)
	if err != nil {
		return nil, err
	}
	fill.Color = gainsboro
	fill.LineStyle.Width = 0

	year := pts[current].X
	bandLo, bandHi := year, year+0.2
	if current == len(series)-1 {
		bandLo, bandHi = year-0.2, year
	}
	band, err := plotter.NewPolygon(plotter.XYs{
		{X: bandLo, Y: yMin}, {X: bandHi, Y: yMin}, {X: bandHi, Y: yMax}, {X: bandLo, Y: yMax},
	})
	if err != nil {
		return nil, err
	}
	band.Color = bandGreen
	band.LineStyle.Width = 0

	zero, err := plotter.NewLine(plotter.XYs{{X: xMin, Y: 0}, {X: xMax, Y: 0}})
	if err != nil {
		return nil, err
	}
	zero.Color = darkGray
	zero.Width = vg.Points(1)

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, err
	}
	line.Color = navy
	line.Width = vg.Points(1.5)
	line.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
	points.Shape = draw.CircleGlyph{}
	points.Color = navy
	points.Radius = vg.Points(3)

	marker, err := plotter.NewScatter(plotter.XYs{pts[current]})
	if err != nil {
		return nil, err
	}
	marker.Shape = draw.CircleGlyph{}
	marker.Color = blue
	marker.Radius = vg.Points(7.5)

	p.Add(fill, band, zero, line, points, marker)
	return p, nil
}

// yearTicks labels whole years, thinning the labels to at most ten.
func yearTicks(from, to float64) []plot.Tick {
	lo, hi := int(math.Ceil(from)), int(math.Floor(to))
	if hi < lo {
		return nil
	}
	step := 1
	for (hi-lo)/step >= 10 {
		step++
	}
	var ticks []plot.Tick
	for y := lo; y <= hi; y++ {
		t := plot.Tick{Value: float64(y)}
		if (y-lo)%step == 0 {
			t.Label = strconv.Itoa(y)
		}
		ticks = append(ticks, t)
	}
	return ticks
}
