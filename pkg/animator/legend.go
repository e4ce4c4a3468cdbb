package animator

import (
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"github.com/matzehuels/gcbmanimation/pkg/fonts"
	"github.com/matzehuels/gcbmanimation/pkg/frame"
	"github.com/matzehuels/gcbmanimation/pkg/legend"
	"github.com/matzehuels/gcbmanimation/pkg/workspace"
)

// legendPanel is one titled block of swatches in the legend quadrant.
type legendPanel struct {
	Title   string
	Entries legend.Legend
}

var swatchBorder = color.RGBA{R: 96, G: 96, B: 96, A: 255}

// renderLegend draws each non-empty panel and merges them left to right. It
// returns nil when every panel is empty.
//
// fontSize is the label size in pixels. Titles are set in bold at the same
// size.
func renderLegend(ws *workspace.Workspace, panels []legendPanel, fontSize float64) (*frame.Frame, error) {
	var frames []*frame.Frame
	for _, p := range panels {
		if len(p.Entries) == 0 {
			continue
		}
		f, err := renderPanel(ws, p, fontSize)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	if len(frames) == 0 {
		return nil, nil
	}
	return frames[0].MergeHorizontal(ws, frames[1:]...)
}

func renderPanel(ws *workspace.Workspace, p legendPanel, fontSize float64) (*frame.Frame, error) {
	titleFace, err := fonts.Face(fonts.Bold, fontSize)
	if err != nil {
		return nil, err
	}
	labelFace, err := fonts.Face(fonts.Regular, fontSize)
	if err != nil {
		return nil, err
	}

	pad := math.Ceil(fontSize / 2)
	swatch := math.Ceil(fontSize)
	row := math.Ceil(fontSize * 1.5)

	titleW, titleH := fonts.Measure(titleFace, p.Title)
	width := float64(titleW)
	for _, e := range p.Entries {
		w, _ := fonts.Measure(labelFace, e.Label)
		width = max(width, swatch+pad+float64(w))
	}
	width += 2 * pad
	height := 2*pad + float64(titleH) + pad/2 + row*float64(len(p.Entries))

	dc := gg.NewContext(int(math.Ceil(width)), int(math.Ceil(height)))
	dc.SetColor(color.White)
	dc.Clear()

	dc.SetColor(color.Black)
	dc.SetFontFace(titleFace)
	dc.DrawStringAnchored(p.Title, pad, pad, 0, 1)

	dc.SetFontFace(labelFace)
	y := pad + float64(titleH) + pad/2
	for _, e := range p.Entries {
		top := y + (row-swatch)/2
		dc.DrawRectangle(pad, top, swatch, swatch)
		dc.SetColor(e.Color)
		dc.FillPreserve()
		dc.SetColor(swatchBorder)
		dc.SetLineWidth(1)
		dc.Stroke()

		dc.SetColor(color.Black)
		dc.DrawStringAnchored(e.Label, pad+swatch+pad, y+row/2, 0, 0.35)
		y += row
	}
	return frame.Save(ws, dc.Image(), 0, 0)
}
