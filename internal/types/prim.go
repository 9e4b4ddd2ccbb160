package types

import "strings"

// Prim enumerates C primitive type spellings.
type Prim uint8

const (
	PrimInvalid Prim = iota
	PrimVoid
	PrimBool
	PrimChar
	PrimSChar
	PrimUChar
	PrimShort
	PrimUShort
	PrimInt
	PrimUInt
	PrimLong
	PrimULong
	PrimLongLong
	PrimULongLong
	PrimInt128
	PrimUInt128
	PrimFloat
	PrimDouble
	PrimLongDouble
	PrimFloat128
	PrimHalf
	PrimChar16
	PrimChar32
	PrimWChar
)

var primNames = [...]string{
	PrimInvalid:    "<invalid>",
	PrimVoid:       "void",
	PrimBool:       "_Bool",
	PrimChar:       "char",
	PrimSChar:      "signed char",
	PrimUChar:      "unsigned char",
	PrimShort:      "short",
	PrimUShort:     "unsigned short",
	PrimInt:        "int",
	PrimUInt:       "unsigned int",
	PrimLong:       "long",
	PrimULong:      "unsigned long",
	PrimLongLong:   "long long",
	PrimULongLong:  "unsigned long long",
	PrimInt128:     "__int128",
	PrimUInt128:    "unsigned __int128",
	PrimFloat:      "float",
	PrimDouble:     "double",
	PrimLongDouble: "long double",
	PrimFloat128:   "__float128",
	PrimHalf:       "__fp16",
	PrimChar16:     "char16_t",
	PrimChar32:     "char32_t",
	PrimWChar:      "wchar_t",
}

func (p Prim) String() string {
	if int(p) < len(primNames) {
		return primNames[p]
	}
	return primNames[PrimInvalid]
}

// primAliases maps accepted spellings (after whitespace normalization) to Prim.
var primAliases = map[string]Prim{
	"void":                   PrimVoid,
	"_Bool":                  PrimBool,
	"bool":                   PrimBool,
	"char":                   PrimChar,
	"signed char":            PrimSChar,
	"unsigned char":          PrimUChar,
	"short":                  PrimShort,
	"short int":              PrimShort,
	"signed short":           PrimShort,
	"unsigned short":         PrimUShort,
	"unsigned short int":     PrimUShort,
	"int":                    PrimInt,
	"signed":                 PrimInt,
	"signed int":             PrimInt,
	"unsigned":               PrimUInt,
	"unsigned int":           PrimUInt,
	"long":                   PrimLong,
	"long int":               PrimLong,
	"signed long":            PrimLong,
	"unsigned long":          PrimULong,
	"unsigned long int":      PrimULong,
	"long long":              PrimLongLong,
	"long long int":          PrimLongLong,
	"signed long long":       PrimLongLong,
	"unsigned long long":     PrimULongLong,
	"unsigned long long int": PrimULongLong,
	"__int128":               PrimInt128,
	"__int128_t":             PrimInt128,
	"unsigned __int128":      PrimUInt128,
	"__uint128_t":            PrimUInt128,
	"float":                  PrimFloat,
	"double":                 PrimDouble,
	"long double":            PrimLongDouble,
	"__float128":             PrimFloat128,
	"_Float128":              PrimFloat128,
	"__fp16":                 PrimHalf,
	"_Float16":               PrimHalf,
	"char16_t":               PrimChar16,
	"char32_t":               PrimChar32,
	"wchar_t":                PrimWChar,
}

// ParsePrim accepts the usual C spellings of a primitive.
func ParsePrim(s string) (Prim, bool) {
	p, ok := primAliases[strings.Join(strings.Fields(s), " ")]
	return p, ok
}

// IsInteger reports whether p is an integer type, bool and characters included.
func (p Prim) IsInteger() bool {
	switch p {
	case PrimBool, PrimChar, PrimSChar, PrimUChar, PrimShort, PrimUShort,
		PrimInt, PrimUInt, PrimLong, PrimULong, PrimLongLong, PrimULongLong,
		PrimInt128, PrimUInt128, PrimChar16, PrimChar32, PrimWChar:
		return true
	}
	return false
}

// IsFloat reports whether p is a floating type.
func (p Prim) IsFloat() bool {
	switch p {
	case PrimFloat, PrimDouble, PrimLongDouble, PrimFloat128, PrimHalf:
		return true
	}
	return false
}

// DefaultSigned is the signedness of p when the target does not override it
// (plain char is target-specific).
func (p Prim) DefaultSigned() bool {
	switch p {
	case PrimBool, PrimUChar, PrimUShort, PrimUInt, PrimULong, PrimULongLong,
		PrimUInt128, PrimChar16, PrimChar32, PrimVoid:
		return false
	}
	return true
}
