package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"fortio.org/safecast"
)

// FileSet interns header paths so locations stay compact.
type FileSet struct {
	paths   []string // paths[0] = "" for NoFileID
	index   map[string]FileID
	baseDir string
}

// NewFileSet creates an empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		paths: []string{""},
		index: make(map[string]FileID),
	}
}

// SetBaseDir sets the directory used to render relative paths.
func (fs *FileSet) SetBaseDir(dir string) {
	fs.baseDir = dir
}

// BaseDir returns the directory used to render relative paths.
func (fs *FileSet) BaseDir() string {
	return fs.baseDir
}

// Add returns the FileID for path, registering it on first use.
func (fs *FileSet) Add(path string) FileID {
	if path == "" {
		return NoFileID
	}
	norm := normalizePath(path)
	if id, ok := fs.index[norm]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(fs.paths))
	if err != nil {
		panic(fmt.Errorf("len paths overflow: %w", err))
	}
	id := FileID(n)
	fs.paths = append(fs.paths, norm)
	fs.index[norm] = id
	return id
}

// Path returns the registered path for id or "" when id is unknown.
func (fs *FileSet) Path(id FileID) string {
	if fs == nil || int(id) >= len(fs.paths) {
		return ""
	}
	return fs.paths[id]
}

// Len returns the number of registered files, NoFileID excluded.
func (fs *FileSet) Len() int {
	return len(fs.paths) - 1
}

// Format renders loc as path:line:col, relative to the base dir when possible.
func (fs *FileSet) Format(loc Loc) string {
	path := fs.Path(loc.File)
	if path == "" {
		path = "<unknown>"
	} else if fs.baseDir != "" {
		if rel, err := filepath.Rel(fs.baseDir, path); err == nil && !strings.HasPrefix(rel, "..") {
			path = filepath.ToSlash(rel)
		}
	}
	switch {
	case loc.Line == 0:
		return path
	case loc.Col == 0:
		return fmt.Sprintf("%s:%d", path, loc.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", path, loc.Line, loc.Col)
	}
}

func normalizePath(path string) string {
	p := filepath.ToSlash(filepath.Clean(path))
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}
