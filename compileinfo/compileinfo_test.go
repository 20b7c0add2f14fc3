package compileinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFromBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.24.0",
		Path:      "github.com/carbocation/widetolong/cmd/widetolong",
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2024-05-01T00:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	c := fromBuildInfo(bi)
	if c.Commit != "0123456789abcdef0123" || !c.Modified || c.GoVersion != "go1.24.0" {
		t.Errorf("unexpected %+v", c)
	}
	if got := c.Version(); got != "0123456789ab+dirty" {
		t.Errorf("Version() = %s", got)
	}
	if !strings.Contains(c.String(), "modified after that commit") {
		t.Errorf("String() = %s", c)
	}
}

func TestVersionWithoutVCS(t *testing.T) {
	if got := (CompileInfo{}).Version(); got != "devel" {
		t.Errorf("Version() = %s", got)
	}
}
