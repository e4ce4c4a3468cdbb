// Package layout arranges four frames into one image: two upper and two
// lower quadrants inside a margin, an optional centered title, a label above
// each quadrant, and an optional scale bar on map quadrants.
//
// Text sizes are found by growing the font from size 1 until it no longer
// fits, so identical inputs always produce byte-identical PNGs.
package layout

import (
	"context"
	"fmt"
	"image/color"

	"github.com/fogleman/gg"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/fonts"
	"github.com/matzehuels/gcbmanimation/pkg/frame"
	"github.com/matzehuels/gcbmanimation/pkg/workspace"
)

// Default output size when none is requested.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// Quadrant is the rectangle reserved for one frame.
type Quadrant struct {
	X, Y          int
	Width, Height int
	Title         string
	ScaleBar      bool
}

// Layout holds the quadrant proportions, as percent of the canvas width and
// height, and the margin as a fraction of the output size.
type Layout struct {
	Percent   [4][2]float64
	Margin    float64
	ScaleBars [4]bool
}

// Default returns the standard layout: two taller quadrants on top, two
// shorter ones below, 5% margin, and a scale bar on the upper right map.
func Default() *Layout {
	return &Layout{
		Percent:   [4][2]float64{{50, 60}, {50, 60}, {50, 40}, {50, 40}},
		Margin:    0.05,
		ScaleBars: [4]bool{false, true, false, false},
	}
}

// Quadrants computes the quadrant rectangles for a width x height output
// whose title occupies titleHeight pixels (0 for no title).
func (l *Layout) Quadrants(width, height, titleHeight int) [4]Quadrant {
	canvasW := int(float64(width) * (1 - l.Margin))
	canvasH := int(float64(height) * (1 - l.Margin))
	xMin := (width - canvasW) / 2
	xMax := width - (width-canvasW)/2
	yMin := height - canvasH
	yMax := canvasH

	canvasH -= titleHeight / 2
	yMin += titleHeight / 2

	cw, ch := float64(canvasW), float64(canvasH)
	margin := float64(height) * l.Margin
	pw := func(i int) float64 { return l.Percent[i][0] / 100 * cw }
	ph := func(i int) float64 { return l.Percent[i][1] / 100 * ch }

	q := [4]Quadrant{
		{X: xMin, Y: yMin},
		{X: int(float64(xMax) - pw(1)), Y: yMin},
		{X: xMin, Y: int(float64(yMax) - ph(2) + margin)},
		{X: int(float64(xMax) - pw(3)), Y: int(float64(yMax) - ph(3) + margin)},
	}
	for i := range q {
		q[i].Width, q[i].Height = int(pw(i)), int(ph(i))
		q[i].ScaleBar = l.ScaleBars[i]
	}
	return q
}

// Render draws the four frames (nil frames leave their quadrant empty) with
// their labels and title onto a white width x height image. The result takes
// the year of the first non-nil frame, normally q1's.
func (l *Layout) Render(ctx context.Context, ws *workspace.Workspace, frames [4]*frame.Frame, labels [4]string, title string, width, height int) (*frame.Frame, error) {
	if width == 0 && height == 0 {
		width, height = DefaultWidth, DefaultHeight
	}
	if err := errors.ValidateDimensions(width, height); err != nil {
		return nil, err
	}
	var first *frame.Frame
	for _, f := range frames {
		if f != nil {
			first = f
			break
		}
	}
	if first == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "layout needs at least one frame")
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()

	titleHeight := 0
	if title != "" {
		th, err := l.drawTitle(dc, title, width, height)
		if err != nil {
			return nil, err
		}
		titleHeight = th
	}

	quads := l.Quadrants(width, height, titleHeight)
	canvasW := int(float64(width) * (1 - l.Margin))
	canvasH := int(float64(height)*(1-l.Margin)) - titleHeight/2

	labelSize := 0
	if longest := longestLabel(labels); longest != "" {
		size, _, _, err := fonts.Fit(fonts.Regular, longest, canvasW/8, int(float64(canvasH)*l.Margin))
		if err != nil {
			return nil, err
		}
		labelSize = size
	}

	for i, f := range frames {
		if f == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		quads[i].Title = labels[i]
		if err := l.renderQuadrant(dc, ws, quads[i], f, labelSize, height); err != nil {
			return nil, err
		}
	}

	return frame.Save(ws, dc.Image(), first.Year(), 0)
}

func (l *Layout) drawTitle(dc *gg.Context, title string, width, height int) (int, error) {
	canvasW := int(float64(width) * (1 - l.Margin))
	size, tw, th, err := fonts.Fit(fonts.Regular, title, canvasW, int(float64(height)*l.Margin))
	if err != nil {
		return 0, err
	}
	face, err := fonts.Face(fonts.Regular, float64(size))
	if err != nil {
		return 0, err
	}
	total := th + int(float64(height)*0.01)
	x := width/2 - tw/2
	y := int(float64(height)*l.Margin/2) - total/2

	dc.SetFontFace(face)
	dc.SetColor(color.Black)
	dc.DrawStringAnchored(title, float64(x), float64(y), 0, 1)
	return total, nil
}

func (l *Layout) renderQuadrant(dc *gg.Context, ws *workspace.Workspace, q Quadrant, f *frame.Frame, labelSize, height int) error {
	titleHeight := 0
	if q.Title != "" && labelSize > 0 {
		face, err := fonts.Face(fonts.Regular, float64(labelSize))
		if err != nil {
			return err
		}
		tw, th := fonts.Measure(face, q.Title)
		titleHeight = th + int(float64(height)*0.01)
		x := int(float64(q.X) + float64(q.Width)/2 - float64(tw)/2)
		y := q.Y + titleHeight

		dc.SetFontFace(face)
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(q.Title, float64(x), float64(y), 0, 1)
	}

	srcW, srcH, err := f.Size()
	if err != nil {
		return err
	}
	maxW := int(float64(q.Width) * (1 - l.Margin*2))
	maxH := int(float64(q.Height-titleHeight) * (1 - l.Margin*2))
	w, h := frame.FitWithin(srcW, srcH, maxW, maxH)
	if w < 1 || h < 1 {
		return nil
	}
	working, err := f.Resize(ws, w, h)
	if err != nil {
		return err
	}
	if q.ScaleBar {
		if working, err = AddScaleBar(ws, working); err != nil {
			return err
		}
	}

	img, err := working.Image()
	if err != nil {
		return err
	}
	x := q.X + (q.Width-w)/2
	y := q.Y + (q.Height-h)/2 + titleHeight
	dc.DrawImage(img, x, y)
	return nil
}

// AddScaleBar draws a quarter-width bar with its length in kilometres in the
// bottom right corner. Frames without a scale are returned unchanged.
func AddScaleBar(ws *workspace.Workspace, f *frame.Frame) (*frame.Frame, error) {
	scale, ok := f.Scale()
	if !ok {
		return f, nil
	}
	img, err := f.Image()
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	length := w / 4
	barHeight := h / 20
	if length < 1 || barHeight < 1 {
		return f, nil
	}

	label := fmt.Sprintf("%.2f km", float64(length)*scale/1000)
	size, lw, lh, err := fonts.Fit(fonts.Regular, label, length, int(float64(barHeight)*0.75))
	if err != nil {
		return nil, err
	}
	face, err := fonts.Face(fonts.Regular, float64(size))
	if err != nil {
		return nil, err
	}

	dc := gg.NewContextForImage(img)
	dc.SetColor(color.NRGBA{A: 128})
	dc.SetFontFace(face)
	dc.DrawStringAnchored(label, float64(w-lw), float64(h-lh), 0, 1)
	if lineWidth := barHeight - lh; lineWidth > 0 {
		dc.SetLineWidth(float64(lineWidth))
		dc.DrawLine(float64(w-length), float64(h-barHeight), float64(w), float64(h-barHeight))
		dc.Stroke()
	}
	return frame.Save(ws, dc.Image(), f.Year(), scale)
}

func longestLabel(labels [4]string) string {
	longest := ""
	for _, l := range labels {
		if len(l) > len(longest) {
			longest = l
		}
	}
	return longest
}
