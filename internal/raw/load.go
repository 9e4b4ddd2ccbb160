package raw

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"hbind/internal/types"
)

// InvalidDeclError describes a malformed node from the front-end.
type InvalidDeclError struct {
	Pos  Pos
	Decl string
	Msg  string
}

func (e *InvalidDeclError) Error() string {
	where := e.Pos.File
	if where == "" {
		where = "<input>"
	}
	if e.Pos.Line > 0 {
		where = fmt.Sprintf("%s:%d", where, e.Pos.Line)
	}
	return fmt.Sprintf("%s: %s: %s", where, e.Decl, e.Msg)
}

// LoadFile reads a declaration unit from a TOML file.
func LoadFile(path string) (*Unit, error) {
	var u Unit
	meta, err := toml.DecodeFile(path, &u)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if err := checkKeys(meta); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if u.Name == "" {
		u.Name = path
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return &u, nil
}

// Decode parses a declaration unit held in memory.
func Decode(data string) (*Unit, error) {
	var u Unit
	meta, err := toml.Decode(data, &u)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if err := checkKeys(meta); err != nil {
		return nil, err
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return &u, nil
}

func checkKeys(meta toml.MetaData) error {
	undecoded := meta.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keys := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
}

// Validate checks every declaration and returns all problems joined.
func (u *Unit) Validate() error {
	var errs []error
	for i := range u.Decls {
		errs = append(errs, u.Decls[i].validate()...)
	}
	return errors.Join(errs...)
}

// Subject renders "struct foo", "macro BAR" and the like.
func (d *Decl) Subject() string {
	name := d.Name
	if name == "" {
		name = "<anonymous>"
	}
	switch d.Kind {
	case DeclStruct, DeclUnion, DeclEnum:
		return string(d.Kind) + " " + name
	case DeclMacro:
		return "macro " + name
	default:
		return name
	}
}

// MacroText returns the replacement text, joining tokens when no text was given.
func (d *Decl) MacroText() string {
	if d.Text != "" || len(d.Tokens) == 0 {
		return d.Text
	}
	return strings.Join(d.Tokens, " ")
}

func (d *Decl) invalid(msg string, args ...any) error {
	return &InvalidDeclError{Pos: d.Pos, Decl: d.Subject(), Msg: fmt.Sprintf(msg, args...)}
}

func (d *Decl) validate() []error {
	var errs []error
	switch d.Kind {
	case DeclStruct, DeclUnion:
		if d.Pack < 0 {
			errs = append(errs, d.invalid("negative pack %d", d.Pack))
		}
		for i := range d.Fields {
			if err := validateField(&d.Fields[i]); err != nil {
				errs = append(errs, d.invalid("field %d: %v", i, err))
			}
		}
	case DeclEnum:
		if d.Underlying != "" {
			if p, ok := types.ParsePrim(d.Underlying); !ok || !p.IsInteger() {
				errs = append(errs, d.invalid("underlying type %q is not an integer type", d.Underlying))
			}
		}
	case DeclTypedef, DeclVariable:
		if d.Name == "" {
			errs = append(errs, d.invalid("missing name"))
		}
		if err := validateType(d.Type); err != nil {
			errs = append(errs, d.invalid("%v", err))
		}
	case DeclFunction:
		if d.Name == "" {
			errs = append(errs, d.invalid("missing name"))
		}
		if d.Type == nil || d.Type.Kind != TypeFunction {
			errs = append(errs, d.invalid("function needs a type of kind %q", TypeFunction))
		} else if err := validateType(d.Type); err != nil {
			errs = append(errs, d.invalid("%v", err))
		}
	case DeclMacro:
		if d.Name == "" {
			errs = append(errs, d.invalid("missing name"))
		}
	default:
		errs = append(errs, d.invalid("unknown declaration kind %q", d.Kind))
	}
	return errs
}

func validateField(f *Field) error {
	if f.Bits != nil && *f.Bits < 0 {
		return fmt.Errorf("negative bit-field width %d", *f.Bits)
	}
	if f.Name == "" && f.Bits == nil && (f.Type == nil || !f.Type.IsTag() || f.Type.Name != "" || !f.Type.HasBody()) {
		return fmt.Errorf("unnamed field must be an anonymous struct or union")
	}
	return validateType(f.Type)
}

func validateType(t *TypeExpr) error {
	if t == nil {
		return fmt.Errorf("missing type")
	}
	switch t.Kind {
	case TypePrim:
		if _, ok := types.ParsePrim(t.Prim); !ok {
			return fmt.Errorf("unknown primitive %q", t.Prim)
		}
	case TypePointer:
		return validateType(t.Elem)
	case TypeArray:
		if t.Len != nil && *t.Len < 0 {
			return fmt.Errorf("negative array length %d", *t.Len)
		}
		return validateType(t.Elem)
	case TypeFunction:
		if t.Result == nil {
			return fmt.Errorf("function type without result")
		}
		for i := range t.Params {
			if err := validateType(t.Params[i].Type); err != nil {
				return fmt.Errorf("param %d: %w", i, err)
			}
		}
		return validateType(t.Result)
	case TypeStruct, TypeUnion:
		if t.Name == "" && t.Fields == nil {
			return fmt.Errorf("anonymous %s without fields", t.Kind)
		}
		for i := range t.Fields {
			if err := validateField(&t.Fields[i]); err != nil {
				return fmt.Errorf("%s field %d: %w", t.Kind, i, err)
			}
		}
	case TypeEnum:
		if t.Name == "" && t.Constants == nil {
			return fmt.Errorf("anonymous enum without constants")
		}
	case TypeTypedef:
		if t.Name == "" {
			return fmt.Errorf("typedef reference without name")
		}
	default:
		return fmt.Errorf("unknown type kind %q", t.Kind)
	}
	return nil
}
