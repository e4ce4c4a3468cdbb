package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

// captureOutput redirects status lines for the duration of a test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := out
	out = &buf
	t.Cleanup(func() { out = old })
	return &buf
}

func testCLI(t *testing.T) *CLI {
	t.Helper()
	c := New(&bytes.Buffer{}, log.InfoLevel)
	c.workspaceRoot = t.TempDir()
	return c
}

func TestWorkspaceDirDefault(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	c := New(&bytes.Buffer{}, log.InfoLevel)

	dir := c.workspaceDir()
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, ".cache", appName); dir != want {
		t.Errorf("workspaceDir() = %q, want %q", dir, want)
	}
}

func TestWorkspaceDirXDG(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)
	c := New(&bytes.Buffer{}, log.InfoLevel)

	if dir, want := c.workspaceDir(), filepath.Join(xdg, appName); dir != want {
		t.Errorf("workspaceDir() = %q, want %q", dir, want)
	}
}

func TestWorkspacePath(t *testing.T) {
	buf := captureOutput(t)
	c := testCLI(t)
	root := c.RootCommand()
	root.SetArgs([]string{"workspace", "path"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != c.workspaceRoot {
		t.Errorf("path = %q, want %q", got, c.workspaceRoot)
	}
}

func TestWorkspaceClean(t *testing.T) {
	buf := captureOutput(t)
	c := testCLI(t)
	for _, run := range []string{"run-1", "run-2"} {
		dir := filepath.Join(c.workspaceRoot, run)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "frame.png"), make([]byte, 2048), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	keep := filepath.Join(c.workspaceRoot, "notes.txt")
	if err := os.WriteFile(keep, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	root := c.RootCommand()
	root.SetArgs([]string{"workspace", "clean"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Removed 2 run(s), 2 file(s), 4.0 KiB") {
		t.Errorf("unexpected output %q", buf.String())
	}
	if runs, _ := filepath.Glob(filepath.Join(c.workspaceRoot, "run-*")); len(runs) != 0 {
		t.Errorf("runs left behind: %v", runs)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Error("clean should only remove run directories")
	}

	buf.Reset()
	root = c.RootCommand()
	root.SetArgs([]string{"workspace", "clean"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Workspace is empty") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 << 20, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
