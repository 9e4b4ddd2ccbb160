package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

const (
	maxSeedBytes = 64 << 10
	maxFuzzInput = 16 << 10
)

// testdataDirs hold the unit fixtures of the packages that run units.
var testdataDirs = []string{
	filepath.Join("..", "driver", "testdata"),
	filepath.Join("..", "pipeline", "testdata"),
}

func addUnitSeeds(f *testing.F) {
	for _, root := range testdataDirs {
		if _, err := os.Stat(root); err != nil {
			continue
		}
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil || d.IsDir() || filepath.Ext(path) != ".toml" {
				return nil
			}
			// #nosec G304 -- path comes from repository testdata walk
			src, err := os.ReadFile(path)
			if err != nil {
				return nil
			}
			f.Add(clampSeed(src))
			return nil
		})
	}
	f.Add([]byte{})
	f.Add([]byte("name = \"min.h\"\n"))
}

var macroSeeds = []string{
	"1",
	"(RED + 2) * 3",
	"-1U >> 1",
	"0x7fffffffffffffffLL + 1",
	"1 ? 2.5 : 3",
	"'a' + 1",
	"\"str\"",
	"10 / 0",
	"1 << 63",
	"(((((1)))))",
	"A",
	"foo(1)",
	"1.0L",
	"sizeof(int)",
	"~0UL",
	"!(1 && 0) || 2",
}

func addMacroSeeds(f *testing.F) {
	for i, s := range macroSeeds {
		f.Add(s, macroSeeds[(i+1)%len(macroSeeds)])
	}
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}
