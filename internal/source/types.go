package source

import "fmt"

// FileID identifies a header file inside a FileSet.
type FileID uint32

// NoFileID marks a location without a known file (synthetic entities, CLI input errors).
const NoFileID FileID = 0

// Loc is a position reported by the C front-end.
type Loc struct {
	File FileID
	Line uint32 // 1-based, 0 = unknown
	Col  uint32 // 1-based, 0 = unknown
}

// IsValid reports whether the location points into a known file.
func (l Loc) IsValid() bool {
	return l.File != NoFileID
}

// Before orders locations by file, then line, then column.
func (l Loc) Before(other Loc) bool {
	if l.File != other.File {
		return l.File < other.File
	}
	if l.Line != other.Line {
		return l.Line < other.Line
	}
	return l.Col < other.Col
}

func (l Loc) String() string {
	return fmt.Sprintf("%d:%d:%d", l.File, l.Line, l.Col)
}
