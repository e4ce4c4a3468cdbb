// Package video encodes a sequence of PNG frames into an animation file.
package video

import (
	"context"
	"os/exec"
	"strings"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
)

// Encoder writes frames, shown for 1/fps seconds each, to outputBase plus
// the encoder's extension and returns the written path.
type Encoder interface {
	Encode(ctx context.Context, framePaths []string, fps int, outputBase string) (string, error)
}

// Encoder names accepted by New.
const (
	NameFFmpeg = "ffmpeg"
	NameGIF    = "gif"
)

// New returns the encoder called name. "ffmpeg" accepts an optional
// container suffix, e.g. "ffmpeg:wmv". An empty name picks ffmpeg when it is
// installed and GIF otherwise.
func New(name string) (Encoder, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		if Available() {
			return &FFmpeg{}, nil
		}
		return &GIF{}, nil
	}
	base, format, _ := strings.Cut(name, ":")
	switch base {
	case NameFFmpeg:
		if format != "" && format != FormatMP4 && format != FormatWMV {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown ffmpeg format %q (want %s or %s)", format, FormatMP4, FormatWMV)
		}
		return &FFmpeg{Format: format}, nil
	case NameGIF:
		return &GIF{}, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown encoder %q (want %s or %s)", name, NameFFmpeg, NameGIF)
}

// Available reports whether the ffmpeg binary is on PATH.
func Available() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

func validate(framePaths []string, fps int) error {
	if len(framePaths) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "no frames to encode")
	}
	if fps <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "fps must be positive, got %d", fps)
	}
	return nil
}
