package decls

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"hbind/internal/raw"
	"hbind/internal/target"
	"hbind/internal/types"
)

// ResolveTypes interns the type of every entity and field. Every anonymous
// entity must have been named first. Typedef and tag references stay weak:
// whether they resolve is decided later by the layout engine and classifier.
//
// A failure leaves the affected type unresolved and is returned as an
// *EntityError; the remaining entities are still resolved. Entities already
// marked Invalid are not reported again.
func (t *Table) ResolveTypes(in *types.Interner, tgt *target.Target) error {
	if t.frozen {
		return ErrFrozen
	}
	r := &resolver{t: t, in: in, tgt: tgt}
	for _, e := range t.Entities() {
		r.cur = e
		if e.Anonymous && e.Name == "" {
			if e.Invalid == nil {
				r.fail(fmt.Errorf("anonymous %s was never named", e.kindWord()))
			}
			continue
		}
		switch e.Kind {
		case KindRecord:
			r.fields(e.Record)
		case KindTypedef:
			e.Typedef.Aliased = r.typeOf(e.Typedef.Raw)
		case KindFunction:
			e.Function.Signature = r.typeOf(e.Function.Raw)
		case KindVariable:
			e.Variable.Type = r.typeOf(e.Variable.Raw)
		}
	}
	return errors.Join(r.errs...)
}

type resolver struct {
	t    *Table
	in   *types.Interner
	tgt  *target.Target
	cur  *Entity
	errs []error
}

func (r *resolver) fail(err error) {
	r.errs = append(r.errs, &EntityError{Entity: r.cur.ID, Err: err})
}

func (r *resolver) fields(rec *Record) {
	for i := range rec.Fields {
		f := &rec.Fields[i]
		if f.Group != nil {
			r.fields(f.Group)
			continue
		}
		f.Type = r.typeOf(f.Raw)
	}
}

func (r *resolver) typeOf(x *raw.TypeExpr) types.TypeID {
	if x == nil {
		return types.NoTypeID
	}
	var id types.TypeID
	switch x.Kind {
	case raw.TypePrim:
		p, ok := types.ParsePrim(x.Prim)
		if !ok {
			r.fail(fmt.Errorf("unknown primitive %q", x.Prim))
			return types.NoTypeID
		}
		id = r.in.Intern(r.tgt.PrimType(p))
	case raw.TypePointer:
		id = r.in.Intern(types.MakePointer(r.typeOf(x.Elem)))
	case raw.TypeArray:
		count := types.ArrayIncomplete
		if x.Len != nil {
			n, err := safecast.Conv[uint64](*x.Len)
			if err != nil {
				r.fail(fmt.Errorf("array length %d: %w", *x.Len, err))
				return types.NoTypeID
			}
			count = n
		}
		id = r.in.Intern(types.MakeArray(r.typeOf(x.Elem), count))
	case raw.TypeFunction:
		params := make([]types.TypeID, len(x.Params))
		for i := range x.Params {
			params[i] = r.param(x.Params[i].Type)
		}
		id = r.in.RegisterFn(params, r.typeOf(x.Result), x.Variadic)
	case raw.TypeStruct, raw.TypeUnion:
		id = r.in.Intern(types.MakeRecordRef(recordKind(raw.DeclKind(x.Kind)), r.tagName(x)))
	case raw.TypeEnum:
		id = r.in.Intern(types.MakeEnumRef(r.tagName(x)))
	case raw.TypeTypedef:
		id = r.in.Intern(types.MakeTypedefRef(Key(x.Name)))
	default:
		r.fail(fmt.Errorf("unknown type kind %q", x.Kind))
		return types.NoTypeID
	}
	return r.in.Qualify(id, quals(x))
}

// param resolves a parameter type without its top-level qualifiers.
func (r *resolver) param(x *raw.TypeExpr) types.TypeID {
	id := r.typeOf(x)
	if tt, ok := r.in.Lookup(id); ok && tt.Kind == types.KindQualified {
		return tt.Elem
	}
	return id
}

func (r *resolver) tagName(x *raw.TypeExpr) string {
	if x.Name != "" {
		return Key(x.Name)
	}
	id, ok := r.t.anon[x]
	if !ok {
		r.fail(fmt.Errorf("anonymous %s body was never adopted", x.Kind))
		return ""
	}
	name := r.t.entities[id].Name
	if name == "" {
		r.fail(fmt.Errorf("refers to unnamed anonymous %s (entity %d)", x.Kind, id))
	}
	return name
}
