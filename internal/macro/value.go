package macro

import (
	"fmt"
	"math"
	"strconv"
)

// CType is the C type of a constant.
type CType uint8

const (
	CInvalid CType = iota
	CBool
	CChar
	CSChar
	CUChar
	CShort
	CUShort
	CInt
	CUInt
	CLong
	CULong
	CLongLong
	CULongLong
	CFloat
	CDouble
	CLongDouble
	CPointer
	CString
)

var ctypeNames = [...]string{
	CInvalid:    "<invalid>",
	CBool:       "_Bool",
	CChar:       "char",
	CSChar:      "signed char",
	CUChar:      "unsigned char",
	CShort:      "short",
	CUShort:     "unsigned short",
	CInt:        "int",
	CUInt:       "unsigned int",
	CLong:       "long",
	CULong:      "unsigned long",
	CLongLong:   "long long",
	CULongLong:  "unsigned long long",
	CFloat:      "float",
	CDouble:     "double",
	CLongDouble: "long double",
	CPointer:    "pointer",
	CString:     "string",
}

func (t CType) String() string {
	if int(t) < len(ctypeNames) {
		return ctypeNames[t]
	}
	return ctypeNames[CInvalid]
}

// IsInteger reports integer types, _Bool and characters included.
func (t CType) IsInteger() bool { return t >= CBool && t <= CULongLong }

// IsFloat reports floating types.
func (t CType) IsFloat() bool { return t >= CFloat && t <= CLongDouble }

// IsArithmetic reports integer or floating types.
func (t CType) IsArithmetic() bool { return t.IsInteger() || t.IsFloat() }

// rank is the integer conversion rank.
func (t CType) rank() int {
	switch t {
	case CBool:
		return 0
	case CChar, CSChar, CUChar:
		return 1
	case CShort, CUShort:
		return 2
	case CInt, CUInt:
		return 3
	case CLong, CULong:
		return 4
	case CLongLong, CULongLong:
		return 5
	}
	return -1
}

func (t CType) unsigned() CType {
	switch t {
	case CChar, CSChar:
		return CUChar
	case CShort:
		return CUShort
	case CInt:
		return CUInt
	case CLong:
		return CULong
	case CLongLong:
		return CULongLong
	}
	return t
}

// Options are the target parameters that give C types their widths.
type Options struct {
	CharSigned   bool
	ShortBits    int
	IntBits      int
	LongBits     int
	LongLongBits int
	PtrBits      int
}

// DefaultOptions is an LP64 target.
func DefaultOptions() Options {
	return Options{CharSigned: true, ShortBits: 16, IntBits: 32, LongBits: 64, LongLongBits: 64, PtrBits: 64}
}

// Bits returns the width of an integer or pointer type.
func (o Options) Bits(t CType) int {
	switch t {
	case CBool:
		return 1
	case CChar, CSChar, CUChar:
		return 8
	case CShort, CUShort:
		return o.ShortBits
	case CInt, CUInt:
		return o.IntBits
	case CLong, CULong:
		return o.LongBits
	case CLongLong, CULongLong:
		return o.LongLongBits
	case CPointer:
		return o.PtrBits
	}
	return 64
}

// Signed reports whether an integer type is signed on this target.
func (o Options) Signed(t CType) bool {
	switch t {
	case CChar:
		return o.CharSigned
	case CSChar, CShort, CInt, CLong, CLongLong:
		return true
	}
	return false
}

// Value is a typed constant. Integers and pointers keep their two's
// complement bits truncated to the type width; floats keep a float64.
type Value struct {
	Type   CType   `json:"type" msgpack:"type"`
	Signed bool    `json:"signed,omitempty" msgpack:"signed,omitempty"`
	Width  int     `json:"width,omitempty" msgpack:"width,omitempty"`
	Bits   uint64  `json:"bits,omitempty" msgpack:"bits,omitempty"`
	Float  float64 `json:"float,omitempty" msgpack:"float,omitempty"`
	Str    string  `json:"str,omitempty" msgpack:"str,omitempty"`
}

// makeInt builds an integer (or pointer) value, truncating to the width.
func (o Options) makeInt(t CType, bits uint64) Value {
	w := o.Bits(t)
	if t == CBool {
		if bits != 0 {
			bits = 1
		}
	} else if w < 64 {
		bits &= (uint64(1) << uint(w)) - 1
	}
	return Value{Type: t, Signed: o.Signed(t), Width: w, Bits: bits}
}

func makeFloat(t CType, f float64) Value {
	if t == CFloat {
		f = float64(float32(f))
	}
	return Value{Type: t, Float: f}
}

func makeString(s string) Value {
	return Value{Type: CString, Str: s}
}

// Int64 returns the value sign-extended from its width.
func (v Value) Int64() int64 {
	if v.Type.IsFloat() {
		return int64(v.Float)
	}
	if v.Signed && v.Width > 0 && v.Width < 64 {
		shift := uint(64 - v.Width)
		return int64(v.Bits<<shift) >> shift
	}
	return int64(v.Bits)
}

// Uint64 returns the raw bits.
func (v Value) Uint64() uint64 {
	if v.Type.IsFloat() {
		if v.Float < 0 {
			return uint64(int64(v.Float))
		}
		return uint64(v.Float)
	}
	return v.Bits
}

// Float64 converts the value to float64.
func (v Value) Float64() float64 {
	if v.Type.IsFloat() {
		return v.Float
	}
	if v.Signed {
		return float64(v.Int64())
	}
	return float64(v.Bits)
}

// IsZero reports a zero scalar.
func (v Value) IsZero() bool {
	if v.Type.IsFloat() {
		return v.Float == 0
	}
	return v.Bits == 0
}

func (v Value) String() string {
	switch {
	case v.Type == CString:
		return strconv.Quote(v.Str)
	case v.Type == CPointer:
		return fmt.Sprintf("0x%x", v.Bits)
	case v.Type == CBool:
		if v.Bits != 0 {
			return "true"
		}
		return "false"
	case v.Type.IsFloat():
		if math.IsInf(v.Float, 0) || math.IsNaN(v.Float) {
			return fmt.Sprint(v.Float)
		}
		bits := 64
		if v.Type == CFloat {
			bits = 32
		}
		return strconv.FormatFloat(v.Float, 'g', -1, bits)
	case v.Signed:
		return strconv.FormatInt(v.Int64(), 10)
	default:
		return strconv.FormatUint(v.Bits, 10)
	}
}
