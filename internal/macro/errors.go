package macro

import "fmt"

// ErrorKind classifies why a macro has no constant value.
type ErrorKind uint8

const (
	// CyclicDefinition: the macro reaches itself through references.
	CyclicDefinition ErrorKind = iota + 1
	// UnresolvedReference: an identifier is neither a macro nor an enumerator.
	UnresolvedReference
	// NotConstant: the text is not a constant expression we model.
	NotConstant
)

func (k ErrorKind) String() string {
	switch k {
	case CyclicDefinition:
		return "cyclic definition"
	case UnresolvedReference:
		return "unresolved reference"
	case NotConstant:
		return "not constant"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// MacroError is returned by Evaluate.
type MacroError struct {
	Kind   ErrorKind
	Name   string // the macro being evaluated
	Ref    string // offending identifier, if any
	Detail string
}

func (e *MacroError) Error() string {
	switch e.Kind {
	case CyclicDefinition:
		if e.Ref != "" && e.Ref != e.Name {
			return fmt.Sprintf("macro %s: cyclic definition through %s", e.Name, e.Ref)
		}
		return fmt.Sprintf("macro %s: cyclic definition", e.Name)
	case UnresolvedReference:
		return fmt.Sprintf("macro %s: undefined identifier %s", e.Name, e.Ref)
	case NotConstant:
		if e.Detail != "" {
			return fmt.Sprintf("macro %s: not a constant: %s", e.Name, e.Detail)
		}
		return fmt.Sprintf("macro %s: not a constant", e.Name)
	default:
		return fmt.Sprintf("macro %s: %s", e.Name, e.Kind)
	}
}

// notConstant is raised while lexing, parsing or folding.
type notConstant struct{ msg string }

func (e *notConstant) Error() string { return e.msg }

func errNotConstant(format string, args ...any) error {
	return &notConstant{msg: fmt.Sprintf(format, args...)}
}
