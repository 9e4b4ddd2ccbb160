package diagfmt

import (
	"path/filepath"

	"hbind/internal/source"
)

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto renders paths relative to the file set base dir when possible.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always uses absolute paths.
	PathModeAbsolute
	PathModeBasename
)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	PathMode  PathMode
	ShowNotes bool
	// MinSeverity hides diagnostics below it.
	MinSeverity uint8
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	PathMode     PathMode
	Max          int // trims the output, not the bag
	IncludeNotes bool
}

// formatLoc renders loc according to mode. Locations without a file render
// as an empty string.
func formatLoc(fs *source.FileSet, loc source.Loc, mode PathMode) string {
	if fs == nil || !loc.IsValid() {
		return ""
	}
	switch mode {
	case PathModeAbsolute, PathModeBasename:
		path := fs.Path(loc.File)
		if mode == PathModeBasename {
			path = filepath.Base(path)
		} else if abs, err := filepath.Abs(path); err == nil {
			path = filepath.ToSlash(abs)
		}
		tmp := source.NewFileSet()
		return tmp.Format(source.Loc{File: tmp.Add(path), Line: loc.Line, Col: loc.Col})
	default:
		return fs.Format(loc)
	}
}
