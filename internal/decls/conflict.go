package decls

import (
	"errors"
	"fmt"

	"hbind/internal/source"
)

// ErrFrozen is returned by Merge once the table has been frozen.
var ErrFrozen = errors.New("declaration table is frozen")

// ConflictKind classifies a rejected redeclaration.
type ConflictKind uint8

const (
	// ConflictIncompatibleRedeclaration: same namespace, different kind
	// (variable then function, struct then union).
	ConflictIncompatibleRedeclaration ConflictKind = iota + 1
	// ConflictIncompatibleType: same kind, types that do not merge.
	ConflictIncompatibleType
	// ConflictRedefinition: two definitions with different bodies.
	ConflictRedefinition
)

func (k ConflictKind) String() string {
	switch k {
	case ConflictIncompatibleRedeclaration:
		return "incompatible redeclaration"
	case ConflictIncompatibleType:
		return "incompatible type"
	case ConflictRedefinition:
		return "redefinition"
	default:
		return fmt.Sprintf("ConflictKind(%d)", k)
	}
}

// ConflictError describes a redeclaration that was not merged.
type ConflictError struct {
	Kind     ConflictKind
	Name     string
	NS       Namespace
	Existing string // "struct", "variable", ...
	Incoming string
	Loc      source.Loc // the rejected declaration
	Prev     source.Loc // the retained one
	Detail   string
}

func (e *ConflictError) Error() string {
	switch e.Kind {
	case ConflictIncompatibleRedeclaration:
		return fmt.Sprintf("%q redeclared as %s, previously declared as %s", e.Name, e.Incoming, e.Existing)
	case ConflictIncompatibleType:
		if e.Detail != "" {
			return fmt.Sprintf("conflicting types for %q: %s", e.Name, e.Detail)
		}
		return fmt.Sprintf("conflicting types for %q", e.Name)
	case ConflictRedefinition:
		return fmt.Sprintf("redefinition of %q with a different body", e.Name)
	default:
		return fmt.Sprintf("conflicting declaration of %q", e.Name)
	}
}
