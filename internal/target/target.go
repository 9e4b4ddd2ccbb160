package target

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"

	"hbind/internal/types"
)

// BitfieldABI selects how consecutive bit-fields share storage units.
type BitfieldABI uint8

const (
	// BitfieldSysV packs bit-fields of any declared type into the current
	// unit while they fit without straddling a boundary of their own type's
	// size; a zero-width bit-field aligns to its type. GCC/Clang on Linux.
	BitfieldSysV BitfieldABI = iota + 1
	// BitfieldMS starts a new unit whenever the declared type size changes
	// or the field does not fit; units occupy their full type size. MSVC.
	BitfieldMS
)

func (a BitfieldABI) String() string {
	switch a {
	case BitfieldSysV:
		return "sysv"
	case BitfieldMS:
		return "ms"
	default:
		return "unknown"
	}
}

// ParseBitfieldABI converts a config value into a BitfieldABI.
func ParseBitfieldABI(s string) (BitfieldABI, error) {
	switch strings.ToLower(s) {
	case "sysv", "gcc", "itanium":
		return BitfieldSysV, nil
	case "ms", "msvc":
		return BitfieldMS, nil
	}
	return 0, fmt.Errorf("invalid bit-field ABI %q (expected: sysv|ms)", s)
}

// Endian is the byte order of the target.
type Endian uint8

const (
	LittleEndian Endian = iota + 1
	BigEndian
)

func (e Endian) String() string {
	if e == BigEndian {
		return "big"
	}
	return "little"
}

// LongDoubleMode says whether long double has a stable binding width.
type LongDoubleMode uint8

const (
	LongDoubleUnsupported LongDoubleMode = iota + 1
	LongDoubleAsDouble
)

func (m LongDoubleMode) String() string {
	if m == LongDoubleAsDouble {
		return "double"
	}
	return "unsupported"
}

// PrimInfo is the size and alignment of a primitive, in bytes.
type PrimInfo struct {
	Size  int `toml:"size"`
	Align int `toml:"align"`
}

// Target describes the platform a translation unit is laid out for.
type Target struct {
	Triple         string
	PtrSize        int // bytes
	PtrAlign       int // bytes
	Endian         Endian
	CharSigned     bool
	MinRecordAlign int // lower bound for every record's alignment
	DefaultPack    int // pack(N) applied when a record has none; 0 = natural
	Bitfields      BitfieldABI
	LongDouble     LongDoubleMode
	Prims          map[types.Prim]PrimInfo
}

// Prim returns the size/alignment of p; void reports size 0.
func (t Target) Prim(p types.Prim) (PrimInfo, bool) {
	if p == types.PrimVoid {
		return PrimInfo{Size: 0, Align: 1}, true
	}
	info, ok := t.Prims[p]
	return info, ok
}

// PrimType builds the type descriptor of p for this target.
func (t Target) PrimType(p types.Prim) types.Type {
	info, _ := t.Prim(p)
	signed := p.DefaultSigned()
	if p == types.PrimChar {
		signed = t.CharSigned
	}
	return types.MakePrim(p, types.Width(info.Size*8), signed)
}

// Validate checks the invariants the layout engine relies on.
func (t Target) Validate() error {
	if t.Triple == "" {
		return fmt.Errorf("target: empty triple")
	}
	if t.PtrSize != 2 && t.PtrSize != 4 && t.PtrSize != 8 {
		return fmt.Errorf("target %s: unsupported pointer size %d", t.Triple, t.PtrSize)
	}
	if !isPow2(t.PtrAlign) {
		return fmt.Errorf("target %s: pointer alignment %d is not a power of two", t.Triple, t.PtrAlign)
	}
	if t.MinRecordAlign != 0 && !isPow2(t.MinRecordAlign) {
		return fmt.Errorf("target %s: min record alignment %d is not a power of two", t.Triple, t.MinRecordAlign)
	}
	if t.DefaultPack != 0 && !isPow2(t.DefaultPack) {
		return fmt.Errorf("target %s: default pack %d is not a power of two", t.Triple, t.DefaultPack)
	}
	if t.Bitfields != BitfieldSysV && t.Bitfields != BitfieldMS {
		return fmt.Errorf("target %s: bit-field ABI not set", t.Triple)
	}
	for p, info := range t.Prims {
		if info.Size <= 0 || !isPow2(info.Align) {
			return fmt.Errorf("target %s: bad size/align %d/%d for %s", t.Triple, info.Size, info.Align, p)
		}
	}
	for _, p := range []types.Prim{types.PrimChar, types.PrimShort, types.PrimInt, types.PrimLong, types.PrimLongLong, types.PrimFloat, types.PrimDouble} {
		if _, ok := t.Prims[p]; !ok {
			return fmt.Errorf("target %s: missing size for %s", t.Triple, p)
		}
	}
	return nil
}

func isPow2(n int) bool {
	return n > 0 && bits.OnesCount(uint(n)) == 1
}

// IsPow2 is exported for pack directive validation.
func IsPow2(n int) bool { return isPow2(n) }

func basePrims() map[types.Prim]PrimInfo {
	return map[types.Prim]PrimInfo{
		types.PrimBool:       {1, 1},
		types.PrimChar:       {1, 1},
		types.PrimSChar:      {1, 1},
		types.PrimUChar:      {1, 1},
		types.PrimShort:      {2, 2},
		types.PrimUShort:     {2, 2},
		types.PrimInt:        {4, 4},
		types.PrimUInt:       {4, 4},
		types.PrimLong:       {8, 8},
		types.PrimULong:      {8, 8},
		types.PrimLongLong:   {8, 8},
		types.PrimULongLong:  {8, 8},
		types.PrimInt128:     {16, 16},
		types.PrimUInt128:    {16, 16},
		types.PrimFloat:      {4, 4},
		types.PrimDouble:     {8, 8},
		types.PrimLongDouble: {16, 16},
		types.PrimFloat128:   {16, 16},
		types.PrimHalf:       {2, 2},
		types.PrimChar16:     {2, 2},
		types.PrimChar32:     {4, 4},
		types.PrimWChar:      {4, 4},
	}
}

// X86_64LinuxGNU is the default target.
func X86_64LinuxGNU() Target {
	return Target{
		Triple:         "x86_64-linux-gnu",
		PtrSize:        8,
		PtrAlign:       8,
		Endian:         LittleEndian,
		CharSigned:     true,
		MinRecordAlign: 1,
		Bitfields:      BitfieldSysV,
		LongDouble:     LongDoubleUnsupported,
		Prims:          basePrims(),
	}
}

func AArch64LinuxGNU() Target {
	t := X86_64LinuxGNU()
	t.Triple = "aarch64-linux-gnu"
	t.CharSigned = false
	return t
}

func I386LinuxGNU() Target {
	t := X86_64LinuxGNU()
	t.Triple = "i386-linux-gnu"
	t.PtrSize, t.PtrAlign = 4, 4
	t.Prims[types.PrimLong] = PrimInfo{4, 4}
	t.Prims[types.PrimULong] = PrimInfo{4, 4}
	t.Prims[types.PrimLongLong] = PrimInfo{8, 4}
	t.Prims[types.PrimULongLong] = PrimInfo{8, 4}
	t.Prims[types.PrimDouble] = PrimInfo{8, 4}
	t.Prims[types.PrimLongDouble] = PrimInfo{12, 4}
	delete(t.Prims, types.PrimInt128)
	delete(t.Prims, types.PrimUInt128)
	return t
}

func X86_64WindowsMSVC() Target {
	t := X86_64LinuxGNU()
	t.Triple = "x86_64-windows-msvc"
	t.Prims[types.PrimLong] = PrimInfo{4, 4}
	t.Prims[types.PrimULong] = PrimInfo{4, 4}
	t.Prims[types.PrimLongDouble] = PrimInfo{8, 8}
	t.Prims[types.PrimWChar] = PrimInfo{2, 2}
	t.Bitfields = BitfieldMS
	t.LongDouble = LongDoubleAsDouble
	return t
}

var presets = map[string]func() Target{
	"x86_64-linux-gnu":    X86_64LinuxGNU,
	"aarch64-linux-gnu":   AArch64LinuxGNU,
	"i386-linux-gnu":      I386LinuxGNU,
	"x86_64-windows-msvc": X86_64WindowsMSVC,
}

// Lookup returns a fresh copy of the preset for triple.
func Lookup(triple string) (Target, bool) {
	mk, ok := presets[triple]
	if !ok {
		return Target{}, false
	}
	return mk(), true
}

// Presets lists the known triples in order.
func Presets() []string {
	out := make([]string, 0, len(presets))
	for k := range presets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
