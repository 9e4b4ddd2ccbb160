package types

import (
	"strconv"
	"strings"
)

// Label renders id in C spelling, e.g. "const char*" or "int(*)(int, ...)".
func Label(in *Interner, id TypeID) string {
	return declarator(in, id, "", 0)
}

// declarator renders id around an inner declarator, C style.
func declarator(in *Interner, id TypeID, inner string, depth int) string {
	if depth > 16 {
		return "..." + inner
	}
	tt, ok := in.Lookup(id)
	if !ok {
		return "?" + inner
	}
	switch tt.Kind {
	case KindPrim:
		return joinSpec(tt.Prim.String(), inner)
	case KindRecordRef:
		return joinSpec(tt.Record.String()+" "+tt.Name, inner)
	case KindEnumRef:
		return joinSpec("enum "+tt.Name, inner)
	case KindTypedefRef:
		return joinSpec(tt.Name, inner)
	case KindQualified:
		if elem, ok := in.Lookup(tt.Elem); ok && elem.Kind == KindPointer {
			return declarator(in, tt.Elem, " "+tt.Quals.String()+inner, depth+1)
		}
		return tt.Quals.String() + " " + declarator(in, tt.Elem, inner, depth+1)
	case KindPointer:
		if elem, ok := in.Lookup(tt.Elem); ok && (elem.Kind == KindFunction || elem.Kind == KindArray) {
			return declarator(in, tt.Elem, "(*"+inner+")", depth+1)
		}
		return declarator(in, tt.Elem, "*"+inner, depth+1)
	case KindArray:
		n := ""
		if tt.Count != ArrayIncomplete {
			n = strconv.FormatUint(tt.Count, 10)
		}
		return declarator(in, tt.Elem, inner+"["+n+"]", depth+1)
	case KindFunction:
		info, ok := in.FnInfo(id)
		if !ok {
			return "?" + inner
		}
		params := make([]string, 0, len(info.Params)+1)
		for _, p := range info.Params {
			params = append(params, declarator(in, p, "", depth+1))
		}
		if info.Variadic {
			params = append(params, "...")
		}
		if len(params) == 0 {
			params = append(params, "void")
		}
		return declarator(in, info.Result, inner+"("+strings.Join(params, ", ")+")", depth+1)
	}
	return "?" + inner
}

func joinSpec(spec, inner string) string {
	return spec + inner
}
