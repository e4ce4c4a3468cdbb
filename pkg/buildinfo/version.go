// Package buildinfo carries version metadata injected at link time.
//
//	go build -ldflags "-X github.com/matzehuels/gcbmanimation/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/gcbmanimation/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/matzehuels/gcbmanimation/pkg/buildinfo.Date=$(date -u +%Y-%m-%d)"
package buildinfo

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns the multi-line build description printed by `--version`.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s\ngo: %s", Version, Commit, Date, runtime.Version())
}

// Template returns the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s (%s, %s)\n", Version, Commit, Date)
}

// UserAgent identifies the tool in generated file metadata.
func UserAgent() string {
	return "gcbmanimation/" + Version
}
