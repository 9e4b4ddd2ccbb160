package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates the variants of a C type.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindPrim
	KindPointer
	KindArray
	KindFunction
	KindRecordRef
	KindEnumRef
	KindTypedefRef
	KindQualified
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindPrim:
		return "prim"
	case KindPointer:
		return "pointer"
	case KindArray:
		return "array"
	case KindFunction:
		return "function"
	case KindRecordRef:
		return "record"
	case KindEnumRef:
		return "enum"
	case KindTypedefRef:
		return "typedef"
	case KindQualified:
		return "qualified"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Width is a primitive width in bits.
type Width uint16

// ArrayIncomplete marks arrays without a known length (T[]).
const ArrayIncomplete = ^uint64(0)

// Qual is a set of cv-qualifiers.
type Qual uint8

const (
	QualConst Qual = 1 << iota
	QualVolatile
)

func (q Qual) String() string {
	switch q {
	case 0:
		return ""
	case QualConst:
		return "const"
	case QualVolatile:
		return "volatile"
	case QualConst | QualVolatile:
		return "const volatile"
	}
	return fmt.Sprintf("Qual(%d)", uint8(q))
}

// RecordKind distinguishes struct from union.
type RecordKind uint8

const (
	RecordStruct RecordKind = iota + 1
	RecordUnion
)

func (k RecordKind) String() string {
	switch k {
	case RecordStruct:
		return "struct"
	case RecordUnion:
		return "union"
	default:
		return "record"
	}
}

// Type is a compact, comparable descriptor. Equal descriptors intern to the
// same TypeID, so two types are structurally equal iff their IDs are.
//
// RecordRef, EnumRef and TypedefRef carry only a name: they are weak edges
// resolved through the declaration table, which keeps the graph acyclic even
// for self-referential C types.
type Type struct {
	Kind    Kind
	Prim    Prim
	Width   Width // bits, primitives only
	Signed  bool
	Elem    TypeID // pointer, array, qualified
	Count   uint64 // array length or ArrayIncomplete
	Quals   Qual
	Record  RecordKind
	Name    string // record, enum and typedef refs
	Payload uint32 // function side-table slot
}

// MakePrim describes a primitive of the given width.
func MakePrim(p Prim, width Width, signed bool) Type {
	return Type{Kind: KindPrim, Prim: p, Width: width, Signed: signed}
}

// MakePointer describes a pointer to elem.
func MakePointer(elem TypeID) Type {
	return Type{Kind: KindPointer, Elem: elem}
}

// MakeArray describes elem[count]; pass ArrayIncomplete for elem[].
func MakeArray(elem TypeID, count uint64) Type {
	return Type{Kind: KindArray, Elem: elem, Count: count}
}

// MakeRecordRef describes "struct name" or "union name".
func MakeRecordRef(kind RecordKind, name string) Type {
	return Type{Kind: KindRecordRef, Record: kind, Name: name}
}

// MakeEnumRef describes "enum name".
func MakeEnumRef(name string) Type {
	return Type{Kind: KindEnumRef, Name: name}
}

// MakeTypedefRef describes a use of a typedef name.
func MakeTypedefRef(name string) Type {
	return Type{Kind: KindTypedefRef, Name: name}
}

// IsIncompleteArray reports whether t is T[].
func (t Type) IsIncompleteArray() bool {
	return t.Kind == KindArray && t.Count == ArrayIncomplete
}
