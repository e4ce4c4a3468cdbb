package cli

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/observability"
)

// =============================================================================
// Spinner Hooks
// =============================================================================

// spinnerHooks mirrors pipeline progress in a spinner and logs each finished
// indicator with its duration.
type spinnerHooks struct {
	observability.NoopPipelineHooks
	spinner *Spinner
	logger  *log.Logger

	mu       sync.Mutex
	total    int
	rendered int
}

func (h *spinnerHooks) OnIndicatorStart(_ context.Context, indicator string, frames int) {
	h.mu.Lock()
	h.total, h.rendered = frames, 0
	h.mu.Unlock()
	h.spinner.SetMessage("Rendering %s (0/%d frames)", indicator, frames)
}

func (h *spinnerHooks) OnFrameRendered(_ context.Context, indicator string, year int) {
	h.mu.Lock()
	h.rendered++
	rendered, total := h.rendered, h.total
	h.mu.Unlock()
	h.spinner.SetMessage("Rendering %s (%d/%d frames, %d)", indicator, rendered, total, year)
}

func (h *spinnerHooks) OnEncodeStart(_ context.Context, indicator string, frames int) {
	h.spinner.SetMessage("Encoding %s (%d frames)", indicator, frames)
}

func (h *spinnerHooks) OnIndicatorComplete(_ context.Context, indicator string, d time.Duration, err error) {
	if err != nil {
		h.logger.Error("indicator failed", "indicator", indicator, "err", errors.UserMessage(err))
		return
	}
	h.logger.Info("rendered indicator", "indicator", indicator, "elapsed", d.Round(time.Millisecond))
}

// =============================================================================
// TUI Hooks
// =============================================================================

// teaHooks forwards pipeline events to a running bubbletea program.
type teaHooks struct {
	send func(tea.Msg)

	mu     sync.Mutex
	videos map[string]string
}

func newTeaHooks(send func(tea.Msg)) *teaHooks {
	return &teaHooks{send: send, videos: make(map[string]string)}
}

func (h *teaHooks) OnIndicatorStart(_ context.Context, indicator string, frames int) {
	h.send(indicatorStartMsg{name: indicator, frames: frames})
}

func (h *teaHooks) OnFrameRendered(_ context.Context, indicator string, year int) {
	h.send(frameRenderedMsg{name: indicator, year: year})
}

func (h *teaHooks) OnEncodeStart(_ context.Context, indicator string, _ int) {
	h.send(encodeStartMsg{name: indicator})
}

func (h *teaHooks) OnEncodeComplete(_ context.Context, indicator, path string, _ time.Duration, err error) {
	if err != nil {
		return
	}
	h.mu.Lock()
	h.videos[indicator] = path
	h.mu.Unlock()
}

func (h *teaHooks) OnIndicatorComplete(_ context.Context, indicator string, d time.Duration, err error) {
	h.mu.Lock()
	video := h.videos[indicator]
	h.mu.Unlock()
	h.send(indicatorDoneMsg{name: indicator, video: video, elapsed: d, err: err})
}

// teaWriter turns log output into view lines while the TUI owns the screen.
type teaWriter struct {
	send func(tea.Msg)
}

func (w teaWriter) Write(p []byte) (int, error) {
	w.send(logLineMsg(p))
	return len(p), nil
}

// =============================================================================
// Workspace Hooks
// =============================================================================

// purgeHooks logs workspace cleanup between indicators.
type purgeHooks struct {
	logger *log.Logger
}

func (h purgeHooks) OnPurge(_ context.Context, patterns []string, removed int) {
	h.logger.Debug("purged workspace", "patterns", patterns, "removed", removed)
}
