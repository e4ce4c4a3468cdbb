// Package fonts provides the embedded Go fonts used for titles, labels and
// legends, and a deterministic search for the largest size that fits a box.
//
// The font data ships with golang.org/x/image, so the binary needs no system
// fonts and renders identically everywhere.
package fonts

import (
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Style selects a typeface.
type Style int

const (
	Regular Style = iota
	Bold
)

var (
	parsed    [2]*truetype.Font
	parseOnce sync.Once
	parseErr  error
)

func load() error {
	parseOnce.Do(func() {
		for i, data := range [][]byte{goregular.TTF, gobold.TTF} {
			f, err := truetype.Parse(data)
			if err != nil {
				parseErr = err
				return
			}
			parsed[i] = f
		}
	})
	return parseErr
}

// Face returns a new face at the given point size (72 DPI, so points equal
// pixels). Faces are not safe for concurrent use; create one per goroutine.
func Face(style Style, size float64) (font.Face, error) {
	if err := load(); err != nil {
		return nil, err
	}
	return truetype.NewFace(parsed[style], &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}

// Measure returns the pixel width and line height of text set in face.
func Measure(face font.Face, text string) (width, height int) {
	return font.MeasureString(face, text).Ceil(), face.Metrics().Height.Ceil()
}

// Fit returns the largest integer size whose rendering of text stays strictly
// inside maxWidth x maxHeight, together with the measured extent. The search
// grows from size 1, so the result is fully deterministic. Size 1 is returned
// when nothing fits.
func Fit(style Style, text string, maxWidth, maxHeight int) (size, width, height int, err error) {
	size = 1
	face, err := Face(style, 1)
	if err != nil {
		return 0, 0, 0, err
	}
	width, height = Measure(face, text)
	for {
		next, err := Face(style, float64(size+1))
		if err != nil {
			return 0, 0, 0, err
		}
		w, h := Measure(next, text)
		if w >= maxWidth || h >= maxHeight {
			return size, width, height, nil
		}
		size, width, height = size+1, w, h
	}
}
