package layout

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"testing"

	"github.com/matzehuels/gcbmanimation/pkg/frame"
	"github.com/matzehuels/gcbmanimation/pkg/workspace"
)

func newWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func solid(t *testing.T, ws *workspace.Workspace, w, h int, c color.RGBA, year int, scale float64) *frame.Frame {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	f, err := frame.Save(ws, img, year, scale)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestQuadrants(t *testing.T) {
	q := Default().Quadrants(640, 480, 0)
	want := [4]Quadrant{
		{X: 16, Y: 24, Width: 304, Height: 273},
		{X: 320, Y: 24, Width: 304, Height: 273, ScaleBar: true},
		{X: 16, Y: 297, Width: 304, Height: 182},
		{X: 320, Y: 297, Width: 304, Height: 182},
	}
	if q != want {
		t.Errorf("Quadrants() =\n%+v\nwant\n%+v", q, want)
	}
}

func TestQuadrantsWithTitle(t *testing.T) {
	q := Default().Quadrants(640, 480, 20)
	if q[0].Y != 34 {
		t.Errorf("q1.Y = %d, want 34", q[0].Y)
	}
	// Canvas height shrinks to 446, 60% of which is 267.6.
	if q[0].Height != 267 {
		t.Errorf("q1.Height = %d, want 267", q[0].Height)
	}
}

func render(t *testing.T, ws *workspace.Workspace, frames [4]*frame.Frame) []byte {
	t.Helper()
	labels := [4]string{"Disturbances", "NPP (tC/ha/yr)", "NPP", ""}
	out, err := Default().Render(context.Background(), ws, frames, labels, "NPP, Year: 2010", 320, 240)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	w, h, err := out.Size()
	if err != nil {
		t.Fatal(err)
	}
	if w != 320 || h != 240 {
		t.Errorf("size = %dx%d, want 320x240", w, h)
	}
	if out.Year() != 2010 {
		t.Errorf("Year = %d, want 2010", out.Year())
	}
	data, err := os.ReadFile(out.Path())
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestRenderIsDeterministic(t *testing.T) {
	ws := newWorkspace(t)
	frames := [4]*frame.Frame{
		solid(t, ws, 40, 30, color.RGBA{200, 0, 0, 255}, 2010, 30),
		solid(t, ws, 40, 30, color.RGBA{0, 200, 0, 255}, 2010, 30),
		solid(t, ws, 100, 50, color.RGBA{0, 0, 200, 255}, 2010, 0),
		solid(t, ws, 60, 20, color.RGBA{90, 90, 90, 255}, 0, 0),
	}
	a := render(t, ws, frames)
	b := render(t, ws, frames)
	if !bytes.Equal(a, b) {
		t.Error("identical inputs produced different images")
	}
}

func TestRenderRequiresAFrame(t *testing.T) {
	ws := newWorkspace(t)
	_, err := Default().Render(context.Background(), ws, [4]*frame.Frame{}, [4]string{}, "", 0, 0)
	if err == nil {
		t.Error("expected an error without frames")
	}
}

func TestRenderTakesFirstYear(t *testing.T) {
	ws := newWorkspace(t)
	frames := [4]*frame.Frame{nil, solid(t, ws, 10, 10, color.RGBA{A: 255}, 2005, 0)}
	out, err := Default().Render(context.Background(), ws, frames, [4]string{}, "", 64, 48)
	if err != nil {
		t.Fatal(err)
	}
	if out.Year() != 2005 {
		t.Errorf("Year = %d, want 2005", out.Year())
	}
}

func TestAddScaleBar(t *testing.T) {
	ws := newWorkspace(t)
	f := solid(t, ws, 200, 100, color.RGBA{255, 255, 255, 255}, 2000, 30)
	out, err := AddScaleBar(ws, f)
	if err != nil {
		t.Fatal(err)
	}
	if out.Path() == f.Path() {
		t.Fatal("expected a new frame")
	}
	img, err := out.Image()
	if err != nil {
		t.Fatal(err)
	}
	// The bar sits at y = h - h/20 across the right quarter.
	c := color.RGBAModel.Convert(img.At(190, 95)).(color.RGBA)
	if c.R == 255 && c.G == 255 && c.B == 255 {
		t.Error("expected the scale bar to darken the bottom right corner")
	}

	unscaled := solid(t, ws, 20, 20, color.RGBA{A: 255}, 2000, 0)
	same, err := AddScaleBar(ws, unscaled)
	if err != nil {
		t.Fatal(err)
	}
	if same != unscaled {
		t.Error("frames without a scale should be returned unchanged")
	}
}
