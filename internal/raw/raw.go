// Package raw is the boundary with the C front-end: the declarations it hands
// over, exactly as parsed, before any merging or naming.
package raw

// DeclKind is the kind of a raw declaration.
type DeclKind string

const (
	DeclStruct   DeclKind = "struct"
	DeclUnion    DeclKind = "union"
	DeclEnum     DeclKind = "enum"
	DeclTypedef  DeclKind = "typedef"
	DeclFunction DeclKind = "function"
	DeclVariable DeclKind = "variable"
	DeclMacro    DeclKind = "macro"
)

// TypeKind is the kind of a raw type expression.
type TypeKind string

const (
	TypePrim     TypeKind = "prim"
	TypePointer  TypeKind = "pointer"
	TypeArray    TypeKind = "array"
	TypeFunction TypeKind = "function"
	TypeStruct   TypeKind = "struct"
	TypeUnion    TypeKind = "union"
	TypeEnum     TypeKind = "enum"
	TypeTypedef  TypeKind = "typedef"
)

// Pos is a source position as reported by the front-end.
type Pos struct {
	File string `toml:"file" msgpack:"file"`
	Line int    `toml:"line" msgpack:"line"`
	Col  int    `toml:"col" msgpack:"col"`
}

// TypeExpr is a type as spelled in the header.
//
// A struct/union/enum expression with Fields (or Constants) and no Name is an
// anonymous type defined in place; with a Name it is a nested definition
// that gets lifted to the tag namespace.
type TypeExpr struct {
	Kind      TypeKind    `toml:"kind"`
	Prim      string      `toml:"prim,omitempty"`
	Name      string      `toml:"name,omitempty"`
	Elem      *TypeExpr   `toml:"elem,omitempty"`
	Len       *int64      `toml:"len,omitempty"` // nil = incomplete array
	Params    []Param     `toml:"params,omitempty"`
	Result    *TypeExpr   `toml:"result,omitempty"`
	Variadic  bool        `toml:"variadic,omitempty"`
	Fields    []Field     `toml:"fields,omitempty"`
	Constants []EnumConst `toml:"constants,omitempty"`
	Pack      int         `toml:"pack,omitempty"`
	Packed    bool        `toml:"packed,omitempty"`
	Align     int         `toml:"align,omitempty"`
	Const     bool        `toml:"const,omitempty"`
	Volatile  bool        `toml:"volatile,omitempty"`
	Pos       Pos         `toml:"pos,omitempty"`
}

// IsTag reports whether the expression names or defines a struct, union or enum.
func (t *TypeExpr) IsTag() bool {
	return t != nil && (t.Kind == TypeStruct || t.Kind == TypeUnion || t.Kind == TypeEnum)
}

// HasBody reports whether a tag expression defines its members in place.
func (t *TypeExpr) HasBody() bool {
	if t == nil {
		return false
	}
	if t.Kind == TypeEnum {
		return t.Constants != nil
	}
	return t.Fields != nil
}

// Param is a function parameter.
type Param struct {
	Name string    `toml:"name,omitempty"`
	Type *TypeExpr `toml:"type"`
}

// Field is a record member. A field without a name whose type is an anonymous
// struct/union is a C11 anonymous member.
type Field struct {
	Name string    `toml:"name,omitempty"`
	Type *TypeExpr `toml:"type"`
	Bits *int      `toml:"bits,omitempty"` // nil = not a bit-field
	Pos  Pos       `toml:"pos,omitempty"`
}

// EnumConst is an enumerator; Value nil means previous + 1.
type EnumConst struct {
	Name  string `toml:"name"`
	Value *int64 `toml:"value,omitempty"`
	Pos   Pos    `toml:"pos,omitempty"`
}

// Decl is one top-level declaration node.
type Decl struct {
	Kind DeclKind `toml:"kind"`
	Name string   `toml:"name"`
	Pos

	// typedef aliased type, variable type, function signature
	Type *TypeExpr `toml:"type,omitempty"`

	// struct, union
	Fields []Field `toml:"fields,omitempty"`
	Pack   int     `toml:"pack,omitempty"`
	Packed bool    `toml:"packed,omitempty"`
	Align  int     `toml:"align,omitempty"`

	// enum
	Constants  []EnumConst `toml:"constants,omitempty"`
	Underlying string      `toml:"underlying,omitempty"`

	// struct, union, enum, function: has a body
	Definition bool `toml:"definition,omitempty"`

	// variable
	Extern bool `toml:"extern,omitempty"`

	// macro: unexpanded replacement text
	Text         string   `toml:"text,omitempty"`
	Tokens       []string `toml:"tokens,omitempty"`
	FunctionLike bool     `toml:"function-like,omitempty"`
}

// Unit is one translation unit handed over by the front-end.
type Unit struct {
	Name   string `toml:"name"`
	Target string `toml:"target"`
	Decls  []Decl `toml:"decl"`
}
