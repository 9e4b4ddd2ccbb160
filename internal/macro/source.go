package macro

import (
	"hbind/internal/decls"
	"hbind/internal/target"
	"hbind/internal/types"
)

// TargetOptions derives integer widths from a target description.
func TargetOptions(t *target.Target) Options {
	bits := func(p types.Prim, def int) int {
		if info, ok := t.Prim(p); ok {
			return info.Size * 8
		}
		return def
	}
	return Options{
		CharSigned:   t.CharSigned,
		ShortBits:    bits(types.PrimShort, 16),
		IntBits:      bits(types.PrimInt, 32),
		LongBits:     bits(types.PrimLong, 64),
		LongLongBits: bits(types.PrimLongLong, 64),
		PtrBits:      t.PtrSize * 8,
	}
}

// TableSource serves macros, enumerators and typedefs from a frozen
// declaration table whose types have been resolved.
type TableSource struct {
	tbl  *decls.Table
	in   *types.Interner
	opts Options
}

// NewTableSource wraps tbl.
func NewTableSource(tbl *decls.Table, in *types.Interner, opts Options) *TableSource {
	return &TableSource{tbl: tbl, in: in, opts: opts}
}

func (s *TableSource) MacroText(name string) (string, bool, bool) {
	e, ok := s.tbl.Lookup(decls.NSMacro, name)
	if !ok || e.Kind != decls.KindMacro {
		return "", false, false
	}
	return e.Macro.Text, e.Macro.FunctionLike, true
}

// Constant types an enumerator as int, or long long when it does not fit.
func (s *TableSource) Constant(name string) (Value, bool) {
	e, ok := s.tbl.Lookup(decls.NSOrdinary, name)
	if !ok || e.Kind != decls.KindEnumConstant {
		return Value{}, false
	}
	v := e.Constant.Value
	t := CInt
	if s.opts.IntBits < 64 && (v > int64(1)<<(s.opts.IntBits-1)-1 || v < -(int64(1)<<(s.opts.IntBits-1))) {
		t = CLongLong
	}
	return s.opts.makeInt(t, uint64(v)), true
}

func (s *TableSource) TypeName(name string) (CType, bool) {
	e, ok := s.tbl.Lookup(decls.NSOrdinary, name)
	if !ok || e.Kind != decls.KindTypedef || e.Typedef.Aliased == types.NoTypeID {
		return CInvalid, false
	}
	id, status := types.Resolve(s.in, e.Typedef.Aliased, s.tbl)
	if status != types.Resolved {
		return CInvalid, false
	}
	t, ok := s.in.Lookup(id)
	if !ok {
		return CInvalid, false
	}
	return scalarOf(t)
}

// Names lists the macros in declaration order.
func (s *TableSource) Names() []string {
	var out []string
	for _, e := range s.tbl.Entities() {
		if e.Kind == decls.KindMacro {
			out = append(out, e.Name)
		}
	}
	return out
}

var primScalars = map[types.Prim]CType{
	types.PrimBool:       CBool,
	types.PrimChar:       CChar,
	types.PrimSChar:      CSChar,
	types.PrimUChar:      CUChar,
	types.PrimShort:      CShort,
	types.PrimUShort:     CUShort,
	types.PrimInt:        CInt,
	types.PrimUInt:       CUInt,
	types.PrimLong:       CLong,
	types.PrimULong:      CULong,
	types.PrimLongLong:   CLongLong,
	types.PrimULongLong:  CULongLong,
	types.PrimFloat:      CFloat,
	types.PrimDouble:     CDouble,
	types.PrimLongDouble: CLongDouble,
	types.PrimChar16:     CUShort,
	types.PrimChar32:     CUInt,
	types.PrimWChar:      CInt,
}

func scalarOf(t types.Type) (CType, bool) {
	switch t.Kind {
	case types.KindPrim:
		c, ok := primScalars[t.Prim]
		return c, ok
	case types.KindPointer:
		return CPointer, true
	case types.KindEnumRef:
		return CInt, true
	}
	return CInvalid, false
}
