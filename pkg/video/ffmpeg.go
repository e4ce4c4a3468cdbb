package video

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
)

// Container formats written by FFmpeg.
const (
	FormatMP4 = "mp4"
	FormatWMV = "wmv"
)

// FFmpeg encodes frames by shelling out to ffmpeg.
// Requires ffmpeg: brew install ffmpeg (macOS), apt install ffmpeg (Linux).
type FFmpeg struct {
	// Format is "mp4" (H.264, the default) or "wmv".
	Format string
}

// Encode implements Encoder.
func (e *FFmpeg) Encode(ctx context.Context, framePaths []string, fps int, outputBase string) (string, error) {
	if err := validate(framePaths, fps); err != nil {
		return "", err
	}
	bin, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", errors.New(errors.ErrCodeUnsupported,
			"video export requires ffmpeg. Install with:\n  macOS:  brew install ffmpeg\n  Linux:  apt install ffmpeg\nor use the gif encoder")
	}

	format := e.Format
	if format == "" {
		format = FormatMP4
	}
	out := outputBase + "." + format

	list, err := os.CreateTemp(filepath.Dir(out), ".frames-*.txt")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "create frame list")
	}
	defer os.Remove(list.Name())
	if _, err := list.WriteString(concatList(framePaths, fps)); err != nil {
		list.Close()
		return "", errors.Wrap(errors.ErrCodeIO, err, "write frame list")
	}
	if err := list.Close(); err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "write frame list")
	}

	args := []string{
		"-y", "-loglevel", "error",
		"-f", "concat", "-safe", "0", "-i", list.Name(),
		// Even dimensions are required by yuv420p.
		"-vf", fmt.Sprintf("fps=%d,pad=ceil(iw/2)*2:ceil(ih/2)*2", fps),
	}
	switch format {
	case FormatWMV:
		args = append(args, "-c:v", "wmv2", "-q:v", "2")
	default:
		args = append(args, "-c:v", "libx264", "-pix_fmt", "yuv420p")
	}
	args = append(args, out)

	cmd := exec.CommandContext(ctx, bin, args...)
	var errBuf bytes.Buffer
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errors.Wrap(errors.ErrCodeRuntime, err, "ffmpeg: %s", strings.TrimSpace(errBuf.String()))
	}
	return out, nil
}

// concatList builds an ffmpeg concat-demuxer script showing each frame for
// 1/fps seconds. The last file is listed twice so its duration is honoured.
func concatList(framePaths []string, fps int) string {
	var b strings.Builder
	b.WriteString("ffconcat version 1.0\n")
	for _, p := range framePaths {
		fmt.Fprintf(&b, "file '%s'\nduration %g\n", quote(p), 1/float64(fps))
	}
	fmt.Fprintf(&b, "file '%s'\n", quote(framePaths[len(framePaths)-1]))
	return b.String()
}

func quote(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return strings.ReplaceAll(path, "'", `'\''`)
}
