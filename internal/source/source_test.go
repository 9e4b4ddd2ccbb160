package source

import "testing"

func TestFileSetAddDeduplicatesPaths(t *testing.T) {
	fs := NewFileSet()
	a := fs.Add("include/./foo.h")
	b := fs.Add("include/foo.h")
	if a != b {
		t.Fatalf("expected same FileID, got %d and %d", a, b)
	}
	if fs.Add("") != NoFileID {
		t.Fatalf("empty path must map to NoFileID")
	}
	if fs.Len() != 1 {
		t.Fatalf("expected 1 file, got %d", fs.Len())
	}
}

func TestFileSetFormat(t *testing.T) {
	fs := NewFileSet()
	fs.SetBaseDir("/work")
	id := fs.Add("/work/include/foo.h")

	tests := []struct {
		loc  Loc
		want string
	}{
		{Loc{File: id, Line: 3, Col: 7}, "include/foo.h:3:7"},
		{Loc{File: id, Line: 3}, "include/foo.h:3"},
		{Loc{File: id}, "include/foo.h"},
		{Loc{}, "<unknown>"},
	}
	for _, tt := range tests {
		if got := fs.Format(tt.loc); got != tt.want {
			t.Fatalf("Format(%v) = %q, want %q", tt.loc, got, tt.want)
		}
	}
}

func TestLocBefore(t *testing.T) {
	a := Loc{File: 1, Line: 2, Col: 5}
	b := Loc{File: 1, Line: 2, Col: 9}
	c := Loc{File: 2, Line: 1, Col: 1}
	if !a.Before(b) || !b.Before(c) || c.Before(a) {
		t.Fatalf("unexpected ordering")
	}
}
