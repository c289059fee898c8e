package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
	"time"
)

func restoreVars() func() {
	v, c, b := Version, GitCommit, BuildTime
	return func() {
		Version, GitCommit, BuildTime = v, c, b
	}
}

func TestGetDefaults(t *testing.T) {
	defer restoreVars()()
	Version, GitCommit, BuildTime = "dev", "", ""

	info := Get()
	if info.Version != "dev" {
		t.Errorf("expected version 'dev', got %q", info.Version)
	}
	if info.IsRelease() {
		t.Error("dev should not be a release")
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("unexpected platform %q", info.Platform)
	}
	if info.GoVersion == "" {
		t.Error("expected a Go version")
	}
}

func TestGetLinkerValues(t *testing.T) {
	defer restoreVars()()
	Version = "1.2.0"
	GitCommit = "abcdef0123456"
	BuildTime = "2026-03-01T10:00:00Z"

	info := Get()
	if info.GitCommit != "abcdef0" {
		t.Errorf("expected truncated commit, got %q", info.GitCommit)
	}
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if !info.BuildDate.Equal(want) {
		t.Errorf("expected build date %v, got %v", want, info.BuildDate)
	}
}

func TestApplyVCSSettings(t *testing.T) {
	info := Info{Version: "dev"}
	applyVCSSettings(&info, []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.modified", Value: "true"},
		{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
	})
	if info.GitCommit != "0123456" {
		t.Errorf("unexpected commit %q", info.GitCommit)
	}
	if !info.IsDirty {
		t.Error("expected dirty")
	}
	if info.BuildTime != "2026-01-02T03:04:05Z" {
		t.Errorf("unexpected build time %q", info.BuildTime)
	}
}

func TestShortAndString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"version only", Info{Version: "1.0.0"}, "1.0.0"},
		{"with commit", Info{Version: "1.0.0", GitCommit: "abc1234"}, "1.0.0-abc1234"},
		{"dirty", Info{Version: "1.0.0", GitCommit: "abc1234", IsDirty: true}, "1.0.0-abc1234-dirty"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.info.Short(); got != tc.want {
				t.Errorf("Short() = %q, want %q", got, tc.want)
			}
			if !strings.HasPrefix(tc.info.String(), "procinvoke "+tc.want) {
				t.Errorf("String() = %q", tc.info.String())
			}
		})
	}

	if (Info{Version: "1.0.0", IsDirty: true}).IsRelease() {
		t.Error("dirty build should not be a release")
	}
}
