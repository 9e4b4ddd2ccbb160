package naming

import (
	"errors"
	"fmt"
	"strconv"

	"hbind/internal/decls"
	"hbind/internal/raw"
)

// Assign names every anonymous entity of tbl, walking entities in creation
// order so the result does not depend on scheduling. unit is the
// translation unit used as naming context.
//
// A failure stops the walk of one entity only. Failures are returned joined,
// each as a *decls.EntityError naming the entity that could not be named.
func Assign(tbl *decls.Table, n *Namer, unit string) error {
	a := &assigner{tbl: tbl, n: n, unit: unit, ordinals: make(map[string]int)}
	var errs []error
	for _, e := range tbl.Entities() {
		a.owner = e.ID
		if err := a.entity(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type assigner struct {
	tbl      *decls.Table
	n        *Namer
	unit     string
	ordinals map[string]int
	owner    decls.EntityID
}

func (a *assigner) entity(e *decls.Entity) error {
	if e.Anonymous && e.Nested {
		// reached through its owner's type
		return nil
	}
	if e.Anonymous {
		tag := "enum"
		if e.Kind == decls.KindRecord {
			tag = e.Record.Kind.String()
		}
		a.ordinals[tag]++
		name := a.n.NameFor(Node{Kind: NodeTopLevel, Tag: tag, Context: a.unit, Ordinal: a.ordinals[tag]})
		if err := a.tbl.AssignName(e.ID, name); err != nil {
			return &decls.EntityError{Entity: e.ID, Err: err}
		}
		if e.Kind == decls.KindRecord {
			return a.fields(e.Record, Path{name})
		}
		return nil
	}
	path := Path{e.Name}
	switch e.Kind {
	case decls.KindRecord:
		return a.fields(e.Record, path)
	case decls.KindTypedef:
		return a.typ(e.Typedef.Raw, path, NodeTypedef)
	case decls.KindVariable:
		return a.typ(e.Variable.Raw, path, NodeVariable)
	case decls.KindFunction:
		return a.signature(e.Function.Raw, path)
	}
	return nil
}

func (a *assigner) fields(r *decls.Record, owner Path) error {
	for i := range r.Fields {
		f := &r.Fields[i]
		if f.Group != nil {
			// C11 anonymous member: no extra path segment
			if err := a.fields(f.Group, owner); err != nil {
				return err
			}
			continue
		}
		name := f.Name
		if name == "" {
			name = "x" + strconv.Itoa(i)
		}
		if err := a.typ(f.Raw, owner.Child(name), NodeField); err != nil {
			return err
		}
	}
	return nil
}

// typ looks through pointers and arrays for an anonymous body reached at
// path in the given role.
func (a *assigner) typ(x *raw.TypeExpr, path Path, kind NodeKind) error {
	for x != nil && (x.Kind == raw.TypePointer || x.Kind == raw.TypeArray) {
		x = x.Elem
	}
	if x == nil {
		return nil
	}
	if x.Kind == raw.TypeFunction {
		return a.signature(x, path)
	}
	if !x.IsTag() || x.Name != "" || !x.HasBody() {
		return nil
	}
	id, ok := a.tbl.AnonymousFor(x)
	if !ok {
		return &decls.EntityError{Entity: a.owner, Err: fmt.Errorf("%s: anonymous %s was not adopted by the table", path, x.Kind)}
	}
	name := a.n.NameFor(Node{Path: path, Kind: kind, Tag: string(x.Kind), Context: a.unit})
	if err := a.tbl.AssignName(id, name); err != nil {
		return &decls.EntityError{Entity: id, Err: fmt.Errorf("%s: %w", path, err)}
	}
	if x.Kind == raw.TypeEnum {
		return nil
	}
	return a.fields(a.tbl.Entity(id).Record, path)
}

func (a *assigner) signature(fn *raw.TypeExpr, owner Path) error {
	if fn == nil || fn.Kind != raw.TypeFunction {
		return nil
	}
	if err := a.typ(fn.Result, owner.Child("return"), NodeReturn); err != nil {
		return err
	}
	for i := range fn.Params {
		if err := a.typ(fn.Params[i].Type, owner.Child("x"+strconv.Itoa(i)), NodeParam); err != nil {
			return err
		}
	}
	return nil
}
