// Package workspace manages the scratch directory that holds intermediate
// rasters and frames produced during a run.
//
// A Workspace is created once per run and passed explicitly to every component
// that needs to write an intermediate file. Components never choose their own
// file names: they ask the workspace for a new unique path, which makes every
// transform write a fresh file and keeps concurrent workers from colliding.
//
//	ws, err := workspace.New(workspace.DefaultRoot())
//	if err != nil { ... }
//	defer ws.Close()
//
//	out := ws.RasterPath()        // <root>/run-xxxx/<uuid>.tif
//	...
//	ws.PurgeRasters(ctx)          // after each indicator
package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/gcbmanimation/pkg/errors"
	"github.com/matzehuels/gcbmanimation/pkg/observability"
)

// RasterPatterns are the globs purged between indicators.
var RasterPatterns = []string{"*.tif", "*.tiff"}

const runPrefix = "run-"

// Workspace owns one run directory below a root.
type Workspace struct {
	dir    string
	logger *log.Logger
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger used for purge diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(w *Workspace) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a fresh run directory below root.
// The root will be created if it doesn't exist.
func New(root string, opts ...Option) (*Workspace, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "create workspace root %s", root)
	}
	dir, err := os.MkdirTemp(root, runPrefix)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "create workspace in %s", root)
	}

	w := &Workspace{dir: dir, logger: log.Default()}
	for _, opt := range opts {
		opt(w)
	}
	w.logger.Debug("workspace created", "dir", dir)
	return w, nil
}

// DefaultRoot returns the XDG cache location used for workspaces.
func DefaultRoot() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "gcbmanimation")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "gcbmanimation")
	}
	return filepath.Join(os.TempDir(), "gcbmanimation")
}

// Dir returns the run directory.
func (w *Workspace) Dir() string { return w.dir }


// Path returns a new unique path with the given extension.
// The file is not created.
func (w *Workspace) Path(ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return filepath.Join(w.dir, uuid.NewString()+"."+ext)
}

// RasterPath returns a new unique path for an intermediate raster.
func (w *Workspace) RasterPath() string { return w.Path("tif") }

// FramePath returns a new unique path for a PNG frame.
func (w *Workspace) FramePath() string { return w.Path("png") }

// Purge removes every file in the run directory matching any of the patterns
// and returns the number of files removed.
func (w *Workspace) Purge(ctx context.Context, patterns ...string) (int, error) {
	removed := 0
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(w.dir, pattern))
		if err != nil {
			return removed, errors.Wrap(errors.ErrCodeInvalidInput, err, "purge pattern %q", pattern)
		}
		for _, m := range matches {
			if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
				return removed, errors.Wrap(errors.ErrCodeIO, err, "remove %s", m)
			}
			removed++
		}
	}
	w.logger.Debug("workspace purged", "patterns", patterns, "removed", removed)
	observability.Workspace().OnPurge(ctx, patterns, removed)
	return removed, nil
}

// PurgeRasters removes all intermediate rasters, keeping frames.
func (w *Workspace) PurgeRasters(ctx context.Context) (int, error) {
	return w.Purge(ctx, RasterPatterns...)
}

// Close removes the run directory and everything in it.
func (w *Workspace) Close() error {
	if err := os.RemoveAll(w.dir); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "remove workspace %s", w.dir)
	}
	return nil
}

// Usage summarizes leftover run directories below a root.
type Usage struct {
	Runs  int
	Files int
	Bytes int64
}

// Inspect reports the run directories currently below root.
// A missing root is reported as empty.
func Inspect(root string) (Usage, error) {
	var u Usage
	runs, err := filepath.Glob(filepath.Join(root, runPrefix+"*"))
	if err != nil {
		return u, err
	}
	for _, run := range runs {
		u.Runs++
		err := filepath.WalkDir(run, func(_ string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			u.Files++
			u.Bytes += info.Size()
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return u, errors.Wrap(errors.ErrCodeIO, err, "inspect %s", run)
		}
	}
	return u, nil
}

// Clean removes every run directory below root, e.g. ones left behind by a
// killed process. It returns the number of runs removed.
func Clean(root string) (int, error) {
	runs, err := filepath.Glob(filepath.Join(root, runPrefix+"*"))
	if err != nil {
		return 0, err
	}
	for i, run := range runs {
		if err := os.RemoveAll(run); err != nil {
			return i, errors.Wrap(errors.ErrCodeIO, err, "remove %s", run)
		}
	}
	return len(runs), nil
}
