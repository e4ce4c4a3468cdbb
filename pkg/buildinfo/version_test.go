package buildinfo

import (
	"strings"
	"testing"
)

func TestTemplateMentionsVersion(t *testing.T) {
	old := Version
	Version = "v9.9.9"
	defer func() { Version = old }()

	if !strings.Contains(Template(), "v9.9.9") {
		t.Errorf("Template() = %q, want version", Template())
	}
	if !strings.HasPrefix(String(), "version: v9.9.9\n") {
		t.Errorf("String() = %q", String())
	}
	if UserAgent() != "gcbmanimation/v9.9.9" {
		t.Errorf("UserAgent() = %q", UserAgent())
	}
}
