package version

import (
	"runtime/debug"
	"strings"
)

// Build is the metadata of the running binary. Values set through ldflags
// win; otherwise the VCS stamp recorded by the Go toolchain is used.
type Build struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Date      string `json:"date,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go,omitempty"`
}

// Current reports the build metadata of this binary.
func Current() Build {
	return fromBuildInfo(debug.ReadBuildInfo())
}

func fromBuildInfo(bi *debug.BuildInfo, ok bool) Build {
	b := Build{
		Version: strings.TrimSpace(Version),
		Commit:  strings.TrimSpace(GitCommit),
		Date:    strings.TrimSpace(BuildDate),
	}
	if b.Version == "" {
		b.Version = "dev"
	}
	if !ok || bi == nil {
		return b
	}
	b.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "" {
				b.Commit = s.Value
			}
		case "vcs.time":
			if b.Date == "" {
				b.Date = s.Value
			}
		case "vcs.modified":
			b.Modified = s.Value == "true"
		}
	}
	return b
}

// ShortCommit trims a full hash to 12 characters.
func (b Build) ShortCommit() string {
	if len(b.Commit) > 12 {
		return b.Commit[:12]
	}
	return b.Commit
}
