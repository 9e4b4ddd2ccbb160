package target

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"hbind/internal/types"
)

// fileConfig is the on-disk form of a target override file:
//
//	[target]
//	base = "x86_64-linux-gnu"
//	bitfield-abi = "ms"
//	default-pack = 4
//
//	[sizes]
//	"long" = { size = 4, align = 4 }
type fileConfig struct {
	Target targetSection       `toml:"target"`
	Sizes  map[string]PrimInfo `toml:"sizes"`
}

type targetSection struct {
	Base           string `toml:"base"`
	Triple         string `toml:"triple"`
	PointerSize    int    `toml:"pointer-size"`
	PointerAlign   int    `toml:"pointer-align"`
	Endian         string `toml:"endian"`
	CharSigned     bool   `toml:"char-signed"`
	MinRecordAlign int    `toml:"min-record-align"`
	DefaultPack    int    `toml:"default-pack"`
	BitfieldABI    string `toml:"bitfield-abi"`
	LongDouble     string `toml:"long-double"`
}

// LoadFile reads a target override file.
func LoadFile(path string) (Target, error) {
	var cfg fileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Target{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	t, err := fromConfig(&cfg, meta)
	if err != nil {
		return Target{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Decode parses a target override document held in memory.
func Decode(data string) (Target, error) {
	var cfg fileConfig
	meta, err := toml.Decode(data, &cfg)
	if err != nil {
		return Target{}, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return fromConfig(&cfg, meta)
}

func fromConfig(cfg *fileConfig, meta toml.MetaData) (Target, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return Target{}, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if !meta.IsDefined("target") {
		return Target{}, fmt.Errorf("missing [target]")
	}

	sec := cfg.Target
	base := sec.Base
	if base == "" {
		base = "x86_64-linux-gnu"
	}
	t, ok := Lookup(base)
	if !ok {
		return Target{}, fmt.Errorf("[target].base: unknown preset %q", base)
	}

	if meta.IsDefined("target", "triple") {
		t.Triple = strings.TrimSpace(sec.Triple)
	}
	if meta.IsDefined("target", "pointer-size") {
		t.PtrSize = sec.PointerSize
		if !meta.IsDefined("target", "pointer-align") {
			t.PtrAlign = sec.PointerSize
		}
	}
	if meta.IsDefined("target", "pointer-align") {
		t.PtrAlign = sec.PointerAlign
	}
	if meta.IsDefined("target", "endian") {
		switch strings.ToLower(sec.Endian) {
		case "little":
			t.Endian = LittleEndian
		case "big":
			t.Endian = BigEndian
		default:
			return Target{}, fmt.Errorf("[target].endian: invalid value %q (expected: little|big)", sec.Endian)
		}
	}
	if meta.IsDefined("target", "char-signed") {
		t.CharSigned = sec.CharSigned
	}
	if meta.IsDefined("target", "min-record-align") {
		t.MinRecordAlign = sec.MinRecordAlign
	}
	if meta.IsDefined("target", "default-pack") {
		t.DefaultPack = sec.DefaultPack
	}
	if meta.IsDefined("target", "bitfield-abi") {
		abi, err := ParseBitfieldABI(sec.BitfieldABI)
		if err != nil {
			return Target{}, fmt.Errorf("[target].bitfield-abi: %w", err)
		}
		t.Bitfields = abi
	}
	if meta.IsDefined("target", "long-double") {
		switch strings.ToLower(sec.LongDouble) {
		case "unsupported":
			t.LongDouble = LongDoubleUnsupported
		case "double":
			t.LongDouble = LongDoubleAsDouble
		default:
			return Target{}, fmt.Errorf("[target].long-double: invalid value %q (expected: unsupported|double)", sec.LongDouble)
		}
	}
	for name, info := range cfg.Sizes {
		p, ok := types.ParsePrim(name)
		if !ok {
			return Target{}, fmt.Errorf("[sizes]: unknown primitive %q", name)
		}
		if !meta.IsDefined("sizes", name, "align") {
			info.Align = info.Size
		}
		t.Prims[p] = info
	}
	if err := t.Validate(); err != nil {
		return Target{}, err
	}
	return t, nil
}
