// Package frame provides immutable handles to rendered PNG images and the
// compositing operations used to assemble animation frames.
//
// Every operation writes a new PNG into the workspace and returns a new Frame;
// the receiver is never modified.
package frame

import (
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/workspace"
)

// Frame is a presentation image for one year. Year 0 marks a year-independent
// frame such as a legend.
type Frame struct {
	year  int
	path  string
	scale float64
}

// New wraps an existing image file.
func New(year int, path string) *Frame {
	return &Frame{year: year, path: path}
}

// NewScaled wraps an existing map image whose pixels are scale metres wide.
func NewScaled(year int, path string, scale float64) *Frame {
	return &Frame{year: year, path: path, scale: scale}
}

// Year returns the year the frame applies to.
func (f *Frame) Year() int { return f.year }

// Path returns the image file path.
func (f *Frame) Path() string { return f.path }

// Scale returns metres per pixel, if the frame is a map.
func (f *Frame) Scale() (float64, bool) { return f.scale, f.scale > 0 }

// WithYear returns a frame pointing at the same image for another year.
func (f *Frame) WithYear(year int) *Frame {
	return &Frame{year: year, path: f.path, scale: f.scale}
}

// Size reads the image dimensions without decoding pixels.
func (f *Frame) Size() (width, height int, err error) {
	file, err := os.Open(f.path)
	if err != nil {
		return 0, 0, errors.Wrap(errors.ErrCodeIO, err, "open frame %s", f.path)
	}
	defer file.Close()
	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, errors.Wrap(errors.ErrCodeIO, err, "read frame header %s", f.path)
	}
	return cfg.Width, cfg.Height, nil
}

// Image decodes the frame.
func (f *Frame) Image() (image.Image, error) {
	return Load(f.path)
}

// Load decodes a PNG from disk.
func Load(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "open image %s", path)
	}
	defer file.Close()
	img, err := png.Decode(file)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "decode image %s", path)
	}
	return img, nil
}

// Save writes img as a PNG to a new workspace path and returns it as a Frame.
func Save(ws *workspace.Workspace, img image.Image, year int, scale float64) (*Frame, error) {
	path := ws.FramePath()
	if err := WritePNG(path, img); err != nil {
		return nil, err
	}
	return NewScaled(year, path, scale), nil
}

// WritePNG encodes img to path.
func WritePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create %s", path)
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return errors.Wrap(errors.ErrCodeIO, err, "encode %s", path)
	}
	if err := file.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "close %s", path)
	}
	return nil
}

// Composite alpha-composites other over this frame, or this frame over other
// when sendToBottom is set. Both images must have the same size. The result
// keeps this frame's year and scale.
func (f *Frame) Composite(ws *workspace.Workspace, other *Frame, sendToBottom bool) (*Frame, error) {
	top, err := f.Image()
	if err != nil {
		return nil, err
	}
	bottom, err := other.Image()
	if err != nil {
		return nil, err
	}
	if !sendToBottom {
		top, bottom = bottom, top
	}
	if top.Bounds().Size() != bottom.Bounds().Size() {
		return nil, errors.New(errors.ErrCodeRuntime, "cannot composite %v over %v: sizes differ",
			top.Bounds().Size(), bottom.Bounds().Size())
	}

	out := image.NewRGBA(image.Rectangle{Max: bottom.Bounds().Size()})
	draw.Draw(out, out.Bounds(), bottom, bottom.Bounds().Min, draw.Src)
	draw.Draw(out, out.Bounds(), top, top.Bounds().Min, draw.Over)
	return Save(ws, out, f.year, f.scale)
}

// MergeHorizontal places this frame and others left to right, top-aligned, on
// a white canvas.
func (f *Frame) MergeHorizontal(ws *workspace.Workspace, others ...*Frame) (*Frame, error) {
	images := make([]image.Image, 0, len(others)+1)
	width, height := 0, 0
	for _, fr := range append([]*Frame{f}, others...) {
		img, err := fr.Image()
		if err != nil {
			return nil, err
		}
		images = append(images, img)
		width += img.Bounds().Dx()
		height = max(height, img.Bounds().Dy())
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	x := 0
	for _, img := range images {
		b := img.Bounds()
		draw.Draw(out, image.Rect(x, 0, x+b.Dx(), b.Dy()), img, b.Min, draw.Src)
		x += b.Dx()
	}
	return Save(ws, out, f.year, 0)
}

// Resize scales the frame to exactly width x height. A map scale is adjusted
// by the horizontal size ratio.
func (f *Frame) Resize(ws *workspace.Workspace, width, height int) (*Frame, error) {
	if err := errors.ValidateDimensions(width, height); err != nil {
		return nil, err
	}
	src, err := f.Image()
	if err != nil {
		return nil, err
	}
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(out, out.Bounds(), src, src.Bounds(), draw.Src, nil)

	scale := f.scale
	if scale > 0 {
		scale *= float64(src.Bounds().Dx()) / float64(width)
	}
	return Save(ws, out, f.year, scale)
}

// FitWithin returns the largest size with the image's aspect ratio that fits
// inside maxW x maxH.
func FitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	ratio := min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	return max(1, int(float64(w)*ratio)), max(1, int(float64(h)*ratio))
}
