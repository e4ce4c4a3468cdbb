package video

import (
	"context"
	"image"
	"image/color/palette"
	"image/gif"
	"os"

	"golang.org/x/image/draw"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/frame"
)

// GIF encodes frames as an animated GIF without external tools. Colors are
// reduced to the Plan 9 palette with Floyd-Steinberg dithering.
type GIF struct{}

// Encode implements Encoder.
func (GIF) Encode(ctx context.Context, framePaths []string, fps int, outputBase string) (string, error) {
	if err := validate(framePaths, fps); err != nil {
		return "", err
	}
	delay := max(1, 100/fps)

	anim := &gif.GIF{}
	for _, p := range framePaths {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		img, err := frame.Load(p)
		if err != nil {
			return "", err
		}
		b := img.Bounds()
		pal := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), palette.Plan9)
		draw.FloydSteinberg.Draw(pal, pal.Rect, img, b.Min)
		anim.Image = append(anim.Image, pal)
		anim.Delay = append(anim.Delay, delay)
	}

	out := outputBase + ".gif"
	f, err := os.Create(out)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "create %s", out)
	}
	if err := gif.EncodeAll(f, anim); err != nil {
		f.Close()
		return "", errors.Wrap(errors.ErrCodeIO, err, "encode %s", out)
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "write %s", out)
	}
	return out, nil
}
