// Package observability provides hooks for progress reporting and metrics.
//
// Libraries emit events through the registered hooks; the binary decides what
// to do with them (the CLI feeds them into its progress view). Nothing here
// depends on a particular backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&progressHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnIndicatorStart(ctx, "NPP", 31)
//	// ... render frames ...
//	observability.Pipeline().OnIndicatorComplete(ctx, "NPP", duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the animation pipeline.
type PipelineHooks interface {
	// Indicator events. frames is the number of quadrant frames to be drawn.
	OnIndicatorStart(ctx context.Context, indicator string, frames int)
	OnIndicatorComplete(ctx context.Context, indicator string, duration time.Duration, err error)

	// OnFrameRendered fires after each composed quadrant frame is written.
	OnFrameRendered(ctx context.Context, indicator string, year int)

	// Encode events
	OnEncodeStart(ctx context.Context, indicator string, frames int)
	OnEncodeComplete(ctx context.Context, indicator, path string, duration time.Duration, err error)
}

// =============================================================================
// Workspace Hooks
// =============================================================================

// WorkspaceHooks receives events from the temp-file workspace.
type WorkspaceHooks interface {
	// OnPurge records files removed from the workspace.
	OnPurge(ctx context.Context, patterns []string, removed int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnIndicatorStart(context.Context, string, int)                          {}
func (NoopPipelineHooks) OnIndicatorComplete(context.Context, string, time.Duration, error)       {}
func (NoopPipelineHooks) OnFrameRendered(context.Context, string, int)                           {}
func (NoopPipelineHooks) OnEncodeStart(context.Context, string, int)                             {}
func (NoopPipelineHooks) OnEncodeComplete(context.Context, string, string, time.Duration, error) {}

// NoopWorkspaceHooks is a no-op implementation of WorkspaceHooks.
type NoopWorkspaceHooks struct{}

func (NoopWorkspaceHooks) OnPurge(context.Context, []string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks  PipelineHooks  = NoopPipelineHooks{}
	workspaceHooks WorkspaceHooks = NoopWorkspaceHooks{}
	hooksMu        sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetWorkspaceHooks registers custom workspace hooks.
func SetWorkspaceHooks(h WorkspaceHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		workspaceHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Workspace returns the registered workspace hooks.
func Workspace() WorkspaceHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return workspaceHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	workspaceHooks = NoopWorkspaceHooks{}
}
