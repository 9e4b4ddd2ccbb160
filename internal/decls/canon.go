package decls

import (
	"strconv"
	"strings"

	"hbind/internal/raw"
	"hbind/internal/types"
)

// maxTypedefDepth bounds typedef expansion; deeper chains are cyclic.
const maxTypedefDepth = 64

type canonWriter struct {
	t      *Table // nil: no typedef expansion
	b      strings.Builder
	depth  int
	expand bool
}

// Canon renders a type expression in a form where two compatible
// declarations compare equal: typedef names are expanded through the table,
// primitive spellings are normalized, parameter names and top-level
// parameter qualifiers are dropped, and parameter arrays decay to pointers.
func (t *Table) Canon(x *raw.TypeExpr) string {
	w := &canonWriter{t: t, expand: true}
	w.typ(x, 0, false)
	return w.b.String()
}

// Spell renders a type expression without typedef expansion.
func Spell(x *raw.TypeExpr) string {
	w := &canonWriter{}
	w.typ(x, 0, false)
	return w.b.String()
}

func quals(x *raw.TypeExpr) types.Qual {
	var q types.Qual
	if x.Const {
		q |= types.QualConst
	}
	if x.Volatile {
		q |= types.QualVolatile
	}
	return q
}

// typ writes x; outer carries qualifiers applied to a typedef that expands
// to x, dropQuals strips qualifiers at this level.
func (w *canonWriter) typ(x *raw.TypeExpr, outer types.Qual, dropQuals bool) {
	if x == nil {
		w.b.WriteString("?")
		return
	}
	q := outer | quals(x)
	if x.Kind == raw.TypeTypedef && w.expand && w.t != nil && w.depth < maxTypedefDepth {
		if e, ok := w.t.Lookup(NSOrdinary, x.Name); ok && e.Kind == KindTypedef {
			w.depth++
			w.typ(e.Typedef.Raw, q, dropQuals)
			w.depth--
			return
		}
	}
	if q != 0 && !dropQuals {
		w.b.WriteString(q.String())
		w.b.WriteByte(' ')
	}
	switch x.Kind {
	case raw.TypePrim:
		if p, ok := types.ParsePrim(x.Prim); ok {
			w.b.WriteString(p.String())
		} else {
			w.b.WriteString(x.Prim)
		}
	case raw.TypePointer:
		w.b.WriteString("*(")
		w.typ(x.Elem, 0, false)
		w.b.WriteByte(')')
	case raw.TypeArray:
		w.b.WriteByte('[')
		if x.Len != nil {
			w.b.WriteString(strconv.FormatInt(*x.Len, 10))
		}
		w.b.WriteByte(']')
		w.typ(x.Elem, 0, false)
	case raw.TypeFunction:
		w.b.WriteString("fn(")
		for i := range x.Params {
			if i > 0 {
				w.b.WriteByte(',')
			}
			p := x.Params[i].Type
			if p != nil && p.Kind == raw.TypeArray {
				w.b.WriteString("*(")
				w.typ(p.Elem, 0, false)
				w.b.WriteByte(')')
				continue
			}
			w.typ(p, 0, true)
		}
		if x.Variadic {
			w.b.WriteString(",...")
		}
		w.b.WriteString(")->")
		w.typ(x.Result, 0, true)
	case raw.TypeStruct, raw.TypeUnion, raw.TypeEnum:
		w.b.WriteString(string(x.Kind))
		if x.Name != "" {
			w.b.WriteByte(' ')
			w.b.WriteString(Key(x.Name))
			return
		}
		if x.Kind == raw.TypeEnum {
			w.b.WriteString(enumBody(x.Constants, ""))
			return
		}
		w.body(x.Fields, x.Pack, x.Packed, x.Align)
	case raw.TypeTypedef:
		w.b.WriteString(Key(x.Name))
	default:
		w.b.WriteString(string(x.Kind))
	}
}

func (w *canonWriter) body(fields []raw.Field, pack int, packed bool, align int) {
	w.b.WriteByte('{')
	for i := range fields {
		f := &fields[i]
		w.b.WriteString(Key(f.Name))
		w.b.WriteByte(':')
		w.typ(f.Type, 0, false)
		if f.Bits != nil {
			w.b.WriteByte(':')
			w.b.WriteString(strconv.Itoa(*f.Bits))
		}
		w.b.WriteByte(';')
	}
	w.b.WriteByte('}')
	if pack != 0 {
		w.b.WriteString(" pack(" + strconv.Itoa(pack) + ")")
	}
	if packed {
		w.b.WriteString(" packed")
	}
	if align != 0 {
		w.b.WriteString(" align(" + strconv.Itoa(align) + ")")
	}
}

// recordBody is the spelled form of a definition; two definitions of one tag
// must match token for token, typedef names included.
func (t *Table) recordBody(fields []raw.Field, pack int, packed bool, align int) string {
	w := &canonWriter{}
	w.body(fields, pack, packed, align)
	return w.b.String()
}

func enumBody(consts []raw.EnumConst, underlying string) string {
	var b strings.Builder
	if underlying != "" {
		b.WriteString(":")
		if p, ok := types.ParsePrim(underlying); ok {
			b.WriteString(p.String())
		} else {
			b.WriteString(underlying)
		}
	}
	b.WriteByte('{')
	next := int64(0)
	for i := range consts {
		c := &consts[i]
		v := next
		if c.Value != nil {
			v = *c.Value
		}
		next = v + 1
		b.WriteString(Key(c.Name))
		b.WriteByte('=')
		b.WriteString(strconv.FormatInt(v, 10))
		b.WriteByte(';')
	}
	b.WriteByte('}')
	return b.String()
}
