package layout

import (
	"fmt"
	"strings"
)

// LayoutErrorKind enumerates types of layout calculation errors.
type LayoutErrorKind uint8

const (
	// LayoutErrIncompleteMember: a member has no size (undefined tag,
	// undeclared typedef, void, a primitive the target lacks, or a member
	// whose own layout failed).
	LayoutErrIncompleteMember LayoutErrorKind = iota + 1
	// LayoutErrRecursive: the record contains itself by value.
	LayoutErrRecursive
	// LayoutErrUnrepresentablePacking: pack or align is not a power of two.
	LayoutErrUnrepresentablePacking
	// LayoutErrBitfieldWidth: negative, oversized or named zero width.
	LayoutErrBitfieldWidth
	// LayoutErrBitfieldType: a bit-field of non-integer type.
	LayoutErrBitfieldType
	// LayoutErrFlexibleArray: an array of unknown length anywhere but the
	// last member of a struct.
	LayoutErrFlexibleArray
)

func (k LayoutErrorKind) String() string {
	switch k {
	case LayoutErrIncompleteMember:
		return "incomplete member"
	case LayoutErrRecursive:
		return "recursive"
	case LayoutErrUnrepresentablePacking:
		return "unrepresentable packing"
	case LayoutErrBitfieldWidth:
		return "bit-field width"
	case LayoutErrBitfieldType:
		return "bit-field type"
	case LayoutErrFlexibleArray:
		return "flexible array"
	default:
		return fmt.Sprintf("LayoutErrorKind(%d)", k)
	}
}

// LayoutError represents an error during memory layout calculation.
type LayoutError struct {
	Kind   LayoutErrorKind
	Record string   // "struct foo"
	Field  string   // offending member, if any
	Detail string   // what is wrong with it
	Cycle  []string // for LayoutErrRecursive
	Value  int      // bit width or pack value
	Cause  *LayoutError
}

func (e *LayoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	where := e.Record
	if e.Field != "" {
		where += "." + e.Field
	}
	switch e.Kind {
	case LayoutErrIncompleteMember:
		if e.Cause != nil {
			return fmt.Sprintf("%s: member has no layout: %v", where, e.Cause)
		}
		return fmt.Sprintf("%s: incomplete member: %s", where, e.Detail)
	case LayoutErrRecursive:
		if len(e.Cycle) == 0 {
			return fmt.Sprintf("%s: recursive record has infinite size", where)
		}
		return fmt.Sprintf("%s: recursive record has infinite size (cycle: %s)", where, strings.Join(e.Cycle, " -> "))
	case LayoutErrUnrepresentablePacking:
		return fmt.Sprintf("%s: %s %d is not a power of two", where, e.Detail, e.Value)
	case LayoutErrBitfieldWidth:
		return fmt.Sprintf("%s: bad bit-field width %d: %s", where, e.Value, e.Detail)
	case LayoutErrBitfieldType:
		return fmt.Sprintf("%s: bit-field has non-integer type %s", where, e.Detail)
	case LayoutErrFlexibleArray:
		return fmt.Sprintf("%s: %s", where, e.Detail)
	default:
		return fmt.Sprintf("%s: layout error kind=%d", where, e.Kind)
	}
}

// Root follows Cause to the innermost error.
func (e *LayoutError) Root() *LayoutError {
	for e != nil && e.Cause != nil {
		e = e.Cause
	}
	return e
}
