package classify

import (
	"strconv"

	"hbind/internal/decls"
	"hbind/internal/target"
	"hbind/internal/types"
)

// checkType classifies a type held by value. scc is the component of the
// record being classified (0 outside records); references back into it
// are settled by the component walk in record.
func (c *Classifier) checkType(id types.TypeID, scc int) Classification {
	if id == types.NoTypeID {
		return undeclared("unresolved type")
	}
	resolved, status := types.Resolve(c.in, id, c.tbl)
	switch status {
	case types.UndeclaredTypedef:
		name := c.in.MustLookup(resolved).Name
		return Classification{Tag: Undeclared, Reason: "undeclared typedef " + name, Typedef: name}
	case types.CyclicTypedef:
		return undeclared("cyclic typedef %s", types.Label(c.in, resolved))
	}
	tt, ok := c.in.Lookup(resolved)
	if !ok {
		return undeclared("unknown type #%d", resolved)
	}
	switch tt.Kind {
	case types.KindPrim:
		return c.prim(tt.Prim)
	case types.KindPointer:
		return c.pointee(tt.Elem, scc)
	case types.KindArray:
		return c.checkType(tt.Elem, scc)
	case types.KindFunction:
		return unsupported("function type %s used as a value", types.Label(c.in, resolved))
	case types.KindRecordRef:
		return c.recordRef(tt, scc)
	case types.KindEnumRef:
		return c.enumRef(tt.Name)
	}
	return Classification{}
}

func (c *Classifier) prim(p types.Prim) Classification {
	switch p {
	case types.PrimInt128, types.PrimUInt128, types.PrimFloat128, types.PrimHalf, types.PrimChar16, types.PrimWChar:
		return unsupported("%s", p)
	case types.PrimLongDouble:
		if c.tgt.LongDouble != target.LongDoubleAsDouble {
			return unsupported("%s", p)
		}
	case types.PrimVoid:
		return Classification{}
	}
	if _, ok := c.tgt.Prim(p); !ok {
		return unsupported("%s on %s", p, c.tgt.Triple)
	}
	return Classification{}
}

// pointee follows a pointer only when it points to a function.
func (c *Classifier) pointee(elem types.TypeID, scc int) Classification {
	resolved, status := types.Resolve(c.in, elem, c.tbl)
	if status != types.Resolved {
		return Classification{}
	}
	if tt, ok := c.in.Lookup(resolved); ok && tt.Kind == types.KindFunction {
		return c.function(resolved, true, scc)
	}
	return Classification{}
}

// function checks a signature. pointer is set when it is the target of a
// function pointer.
func (c *Classifier) function(id types.TypeID, pointer bool, scc int) Classification {
	info, ok := c.in.FnInfo(id)
	if !ok {
		return undeclared("unresolved function type")
	}
	if pointer && info.Variadic && len(info.Params) > 0 {
		return unsupported("variadic function pointer %s", types.Label(c.in, id))
	}
	if cl := c.checkType(info.Result, scc); cl.Tag != Supported {
		return taint(cl, "return type")
	}
	for i, p := range info.Params {
		var cl Classification
		if fn, ok := c.asFunction(p); ok {
			// a parameter of function type is adjusted to a pointer
			cl = c.function(fn, true, scc)
		} else {
			cl = c.checkType(p, scc)
		}
		if cl.Tag != Supported {
			return taint(cl, "parameter "+strconv.Itoa(i))
		}
	}
	return Classification{}
}

func (c *Classifier) asFunction(id types.TypeID) (types.TypeID, bool) {
	resolved, status := types.Resolve(c.in, id, c.tbl)
	if status != types.Resolved {
		return id, false
	}
	tt, ok := c.in.Lookup(resolved)
	return resolved, ok && tt.Kind == types.KindFunction
}

func (c *Classifier) recordRef(tt types.Type, scc int) Classification {
	ent, ok := c.tbl.Lookup(decls.NSTag, tt.Name)
	if !ok || ent.Kind != decls.KindRecord {
		return undeclared("%s %s is never declared", tt.Record, tt.Name)
	}
	if !ent.Record.Complete {
		return undeclared("%s is never defined", ent.Subject())
	}
	if scc != 0 && c.scc[ent.ID] == scc {
		return Classification{}
	}
	cl := c.Classify(ent.ID)
	if cl.Tag == Supported {
		return cl
	}
	return Classification{Tag: Unsupported, Reason: ent.Subject() + " (" + cl.Reason + ")", Typedef: cl.Typedef}
}

func (c *Classifier) enumRef(name string) Classification {
	ent, ok := c.tbl.Lookup(decls.NSTag, name)
	if !ok || ent.Kind != decls.KindEnum {
		return undeclared("enum %s is never declared", name)
	}
	if !ent.Enum.Complete && ent.Enum.Underlying == types.PrimInvalid {
		return undeclared("enum %s is never defined", name)
	}
	if ent.Enum.Underlying != types.PrimInvalid {
		if cl := c.prim(ent.Enum.Underlying); cl.Tag != Supported {
			return taint(cl, "enum "+name)
		}
	}
	return Classification{}
}
