package version

import (
	"runtime/debug"
	"testing"

	"github.com/fatih/color"
)

func TestPrettyWithoutColor(t *testing.T) {
	saved, savedNoColor := Version, color.NoColor
	defer func() { Version, color.NoColor = saved, savedNoColor }()
	color.NoColor = true

	cases := []struct {
		version string
		want    string
	}{
		{"0.1.0-dev", "0.1.0-dev"},
		{"1.2.3", "1.2.3"},
		{"nightly", "nightly"},
		{"  ", "dev"},
	}
	for _, tc := range cases {
		Version = tc.version
		if got := Pretty(); got != tc.want {
			t.Fatalf("Pretty(%q) = %q, want %q", tc.version, got, tc.want)
		}
	}
}

func TestPrettyColorsParts(t *testing.T) {
	saved, savedNoColor := Version, color.NoColor
	defer func() { Version, color.NoColor = saved, savedNoColor }()
	color.NoColor = false

	Version = "1.2.3"
	if got := Pretty(); got == "1.2.3" {
		t.Fatalf("expected colored output, got %q", got)
	}
}

func TestFromBuildInfo(t *testing.T) {
	saved := [3]string{Version, GitCommit, BuildDate}
	defer func() { Version, GitCommit, BuildDate = saved[0], saved[1], saved[2] }()

	bi := &debug.BuildInfo{
		GoVersion: "go1.25.1",
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}
	Version, GitCommit, BuildDate = "0.2.0", "", ""
	b := fromBuildInfo(bi, true)
	if b.Commit != "0123456789abcdef0123" || b.Date != "2026-10-01T12:00:00Z" || !b.Modified || b.GoVersion != "go1.25.1" {
		t.Fatalf("vcs fallback = %+v", b)
	}
	if b.ShortCommit() != "0123456789ab" {
		t.Fatalf("short commit = %q", b.ShortCommit())
	}

	GitCommit, BuildDate = "feed", "2026-01-02"
	if b := fromBuildInfo(bi, true); b.Commit != "feed" || b.Date != "2026-01-02" {
		t.Fatalf("ldflags must win: %+v", b)
	}

	Version = ""
	if b := fromBuildInfo(nil, false); b.Version != "dev" || b.GoVersion != "" {
		t.Fatalf("no build info = %+v", b)
	}
}
