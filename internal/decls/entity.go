package decls

import (
	"fmt"

	"hbind/internal/raw"
	"hbind/internal/source"
	"hbind/internal/types"
)

// EntityID identifies an entity inside a Table.
type EntityID uint32

// NoEntityID marks the absence of an entity.
const NoEntityID EntityID = 0

// Namespace is one of the disjoint C name spaces.
type Namespace uint8

const (
	// NSTag holds struct, union and enum tags.
	NSTag Namespace = iota + 1
	// NSOrdinary holds variables, functions, typedefs and enumerators.
	NSOrdinary
	// NSMacro holds object- and function-like macros.
	NSMacro
)

func (ns Namespace) String() string {
	switch ns {
	case NSTag:
		return "tag"
	case NSOrdinary:
		return "ordinary"
	case NSMacro:
		return "macro"
	default:
		return fmt.Sprintf("Namespace(%d)", ns)
	}
}

// Kind tags the entity variant.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindRecord
	KindEnum
	KindTypedef
	KindFunction
	KindVariable
	KindMacro
	KindEnumConstant
)

func (k Kind) String() string {
	switch k {
	case KindRecord:
		return "record"
	case KindEnum:
		return "enum"
	case KindTypedef:
		return "typedef"
	case KindFunction:
		return "function"
	case KindVariable:
		return "variable"
	case KindMacro:
		return "macro"
	case KindEnumConstant:
		return "enum constant"
	default:
		return "invalid"
	}
}

// Namespace returns the namespace the kind lives in.
func (k Kind) Namespace() Namespace {
	switch k {
	case KindRecord, KindEnum:
		return NSTag
	case KindMacro:
		return NSMacro
	default:
		return NSOrdinary
	}
}

// Entity is one canonical declaration after merging.
//
// Exactly one of the variant pointers is set, matching Kind. Anonymous
// entities have an empty Name until the namer assigns a synthetic one.
type Entity struct {
	ID        EntityID
	Kind      Kind
	NS        Namespace
	Name      string
	Loc       source.Loc
	Anonymous bool
	// Nested is set for tags defined inside another declaration's type.
	Nested    bool

	Record   *Record
	Enum     *Enum
	Typedef  *Typedef
	Function *Function
	Variable *Variable
	Macro    *Macro
	Constant *EnumConstant

	// Conflicts are redeclarations that were rejected; the entity keeps
	// its first accepted state.
	Conflicts []*ConflictError
	// Invalid is set when naming or type resolution failed for the entity.
	Invalid error
}

func (e *Entity) kindWord() string {
	switch e.Kind {
	case KindRecord:
		return e.Record.Kind.String()
	default:
		return e.Kind.String()
	}
}

// Subject renders the entity for diagnostics: "struct foo", "macro BAR", "f".
func (e *Entity) Subject() string {
	name := e.Name
	if name == "" {
		name = "<anonymous>"
	}
	switch e.Kind {
	case KindRecord:
		return e.Record.Kind.String() + " " + name
	case KindEnum:
		return "enum " + name
	case KindMacro:
		return "macro " + name
	default:
		return name
	}
}

// Complete reports whether a tag entity has a body. Non-tag entities are
// always complete.
func (e *Entity) Complete() bool {
	switch e.Kind {
	case KindRecord:
		return e.Record.Complete
	case KindEnum:
		return e.Enum.Complete
	default:
		return true
	}
}

// Record is a struct or union.
type Record struct {
	Kind     types.RecordKind
	Fields   []Field
	Complete bool
	Pack     int // 0 = none
	Packed   bool
	Align    int // 0 = natural
	body     string
}

// Field is one record member. A Field with a non-nil Group is a C11
// anonymous member: its fields are hoisted into the enclosing record.
type Field struct {
	Name     string
	Raw      *raw.TypeExpr
	Type     types.TypeID
	BitWidth int
	Bitfield bool
	Group    *Record
	Loc      source.Loc
}

// Enum is an enumeration.
type Enum struct {
	Underlying types.Prim // PrimInvalid = target int
	Constants  []EntityID
	Complete   bool
	body       string
}

// Typedef aliases a type.
type Typedef struct {
	Raw     *raw.TypeExpr
	Aliased types.TypeID
}

// Function is a function declaration or definition.
type Function struct {
	Raw       *raw.TypeExpr
	Signature types.TypeID
	Params    []string
	Defined   bool
}

// Variable is a global variable.
type Variable struct {
	Raw    *raw.TypeExpr
	Type   types.TypeID
	Extern bool
}

// Macro keeps the unexpanded replacement text of a #define.
type Macro struct {
	Text         string
	FunctionLike bool
}

// EnumConstant is an enumerator lifted into the ordinary namespace.
type EnumConstant struct {
	Value int64
	Enum  EntityID
}
