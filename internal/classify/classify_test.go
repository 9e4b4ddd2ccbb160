package classify_test

import (
	"strconv"
	"strings"
	"sync"
	"testing"

	"hbind/internal/classify"
	"hbind/internal/decls"
	"hbind/internal/layout"
	"hbind/internal/macro"
	"hbind/internal/naming"
	"hbind/internal/raw"
	"hbind/internal/target"
	"hbind/internal/types"
)

func prim(name string) *raw.TypeExpr { return &raw.TypeExpr{Kind: raw.TypePrim, Prim: name} }

func ptr(elem *raw.TypeExpr) *raw.TypeExpr { return &raw.TypeExpr{Kind: raw.TypePointer, Elem: elem} }

func structRef(name string) *raw.TypeExpr { return &raw.TypeExpr{Kind: raw.TypeStruct, Name: name} }

func typedefRef(name string) *raw.TypeExpr { return &raw.TypeExpr{Kind: raw.TypeTypedef, Name: name} }

func fn(result *raw.TypeExpr, variadic bool, params ...*raw.TypeExpr) *raw.TypeExpr {
	t := &raw.TypeExpr{Kind: raw.TypeFunction, Result: result, Variadic: variadic}
	for _, p := range params {
		t.Params = append(t.Params, raw.Param{Type: p})
	}
	return t
}

func field(name string, typ *raw.TypeExpr) raw.Field { return raw.Field{Name: name, Type: typ} }

func structDef(name string, fields ...raw.Field) raw.Decl {
	return raw.Decl{Kind: raw.DeclStruct, Name: name, Definition: true, Fields: fields}
}

type fixture struct {
	tbl *decls.Table
	c   *classify.Classifier
}

func build(t *testing.T, tgt target.Target, ds ...raw.Decl) *fixture {
	t.Helper()
	tbl := decls.New(nil)
	for _, d := range ds {
		if _, err := tbl.Merge(d); err != nil {
			t.Fatalf("Merge(%s): %v", d.Subject(), err)
		}
	}
	if err := naming.Assign(tbl, naming.New(tbl), "test.h"); err != nil {
		t.Fatalf("naming: %v", err)
	}
	in := types.NewInterner()
	if err := tbl.ResolveTypes(in, &tgt); err != nil {
		t.Fatalf("ResolveTypes: %v", err)
	}
	tbl.Freeze()
	le := layout.New(&tgt, in, tbl)
	ev := macro.New(macro.NewTableSource(tbl, in, macro.TargetOptions(&tgt)), macro.TargetOptions(&tgt))
	return &fixture{tbl: tbl, c: classify.New(tbl, in, &tgt, le, ev)}
}

func (f *fixture) class(t *testing.T, ns decls.Namespace, name string) classify.Classification {
	t.Helper()
	ent, ok := f.tbl.Lookup(ns, name)
	if !ok {
		t.Fatalf("no entity %s", name)
	}
	return f.c.Classify(ent.ID)
}

func TestRecordClassification(t *testing.T) {
	f := build(t, target.X86_64LinuxGNU(),
		raw.Decl{Kind: raw.DeclStruct, Name: "opaque"},
		structDef("plain", field("a", prim("int")), field("p", ptr(structRef("opaque")))),
		structDef("wide", field("v", prim("__int128"))),
		structDef("holder", field("w", structRef("wide"))),
		structDef("byValue", field("o", structRef("opaque"))),
		structDef("cb", field("f", ptr(fn(prim("void"), true, prim("int"))))),
		structDef("cb0", field("f", ptr(fn(prim("void"), true)))),
		structDef("pwide", field("w", ptr(structRef("wide")))),
		structDef("ld", field("x", prim("long double"))),
		structDef("bad", field("x", typedefRef("nowhere_t"))),
	)
	cases := []struct {
		name   string
		tag    classify.Tag
		reason string
	}{
		{"opaque", classify.Supported, ""},
		{"plain", classify.Supported, ""},
		{"wide", classify.Unsupported, "__int128"},
		{"holder", classify.Unsupported, "struct wide"},
		{"byValue", classify.Undeclared, "opaque"},
		{"cb", classify.Unsupported, "variadic"},
		{"cb0", classify.Supported, ""},
		{"pwide", classify.Supported, ""},
		{"ld", classify.Unsupported, "long double"},
		{"bad", classify.Undeclared, "nowhere_t"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cl := f.class(t, decls.NSTag, tc.name)
			if cl.Tag != tc.tag {
				t.Fatalf("tag = %s (%s), want %s", cl.Tag, cl.Reason, tc.tag)
			}
			if !strings.Contains(cl.Reason, tc.reason) {
				t.Fatalf("reason %q does not mention %q", cl.Reason, tc.reason)
			}
		})
	}
	if cl := f.class(t, decls.NSTag, "bad"); cl.Typedef != "nowhere_t" {
		t.Fatalf("bad: typedef = %q", cl.Typedef)
	}
	if cl := f.class(t, decls.NSTag, "opaque"); !cl.Opaque {
		t.Fatalf("opaque: %+v", cl)
	}
}

func TestLongDoubleAsDouble(t *testing.T) {
	f := build(t, target.X86_64WindowsMSVC(),
		structDef("ld", field("x", prim("long double"))),
		raw.Decl{Kind: raw.DeclMacro, Name: "HALF", Text: "0.5L"},
	)
	if cl := f.class(t, decls.NSTag, "ld"); cl.Tag != classify.Supported {
		t.Fatalf("ld: %+v", cl)
	}
	if cl := f.class(t, decls.NSMacro, "HALF"); cl.Tag != classify.Supported {
		t.Fatalf("HALF: %+v", cl)
	}

	f = build(t, target.X86_64LinuxGNU(), raw.Decl{Kind: raw.DeclMacro, Name: "HALF", Text: "0.5L"})
	if cl := f.class(t, decls.NSMacro, "HALF"); cl.Tag != classify.Unsupported {
		t.Fatalf("HALF on linux: %+v", cl)
	}
}

func TestFunctionsVariablesAndTypedefs(t *testing.T) {
	f := build(t, target.X86_64LinuxGNU(),
		raw.Decl{Kind: raw.DeclStruct, Name: "handle"},
		raw.Decl{Kind: raw.DeclTypedef, Name: "handle_t", Type: structRef("handle")},
		raw.Decl{Kind: raw.DeclTypedef, Name: "handler_t", Type: fn(prim("int"), false, prim("int"))},
		raw.Decl{Kind: raw.DeclTypedef, Name: "wide_t", Type: prim("unsigned __int128")},
		raw.Decl{Kind: raw.DeclFunction, Name: "printf_like", Type: fn(prim("int"), true, ptr(prim("char")))},
		raw.Decl{Kind: raw.DeclFunction, Name: "take", Type: fn(prim("void"), false, ptr(structRef("handle")))},
		raw.Decl{Kind: raw.DeclFunction, Name: "ret_wide", Type: fn(typedefRef("wide_t"), false)},
		raw.Decl{Kind: raw.DeclFunction, Name: "by_value", Type: fn(prim("void"), false, structRef("handle"))},
		raw.Decl{Kind: raw.DeclFunction, Name: "with_cb", Type: fn(prim("void"), false, fn(prim("void"), true, prim("int")))},
		raw.Decl{Kind: raw.DeclVariable, Name: "counter", Type: prim("long"), Extern: true},
		raw.Decl{Kind: raw.DeclVariable, Name: "wch", Type: prim("wchar_t"), Extern: true},
		raw.Decl{Kind: raw.DeclVariable, Name: "missing", Type: typedefRef("gone_t"), Extern: true},
	)
	cases := []struct {
		name string
		tag  classify.Tag
	}{
		{"handle_t", classify.Supported},
		{"handler_t", classify.Supported},
		{"wide_t", classify.Unsupported},
		{"printf_like", classify.Supported},
		{"take", classify.Supported},
		{"ret_wide", classify.Unsupported},
		{"by_value", classify.Undeclared},
		{"with_cb", classify.Unsupported},
		{"counter", classify.Supported},
		{"wch", classify.Unsupported},
		{"missing", classify.Undeclared},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if cl := f.class(t, decls.NSOrdinary, tc.name); cl.Tag != tc.tag {
				t.Fatalf("tag = %s (%s), want %s", cl.Tag, cl.Reason, tc.tag)
			}
		})
	}
	if cl := f.class(t, decls.NSOrdinary, "handle_t"); !cl.Opaque {
		t.Fatalf("handle_t should be an opaque alias: %+v", cl)
	}
}

func TestFunctionTypeAsValue(t *testing.T) {
	f := build(t, target.X86_64LinuxGNU(),
		raw.Decl{Kind: raw.DeclTypedef, Name: "cb_t", Type: fn(prim("void"), false)},
		raw.Decl{Kind: raw.DeclVariable, Name: "v", Type: typedefRef("cb_t"), Extern: true},
	)
	cl := f.class(t, decls.NSOrdinary, "v")
	if cl.Tag != classify.Unsupported || !strings.Contains(cl.Reason, "function type") {
		t.Fatalf("v: %+v", cl)
	}
}

func TestMacrosAndEnums(t *testing.T) {
	f := build(t, target.X86_64LinuxGNU(),
		raw.Decl{Kind: raw.DeclEnum, Name: "color", Definition: true, Constants: []raw.EnumConst{{Name: "RED"}, {Name: "GREEN"}}},
		raw.Decl{Kind: raw.DeclEnum, Name: "huge", Definition: true, Underlying: "__int128", Constants: []raw.EnumConst{{Name: "H0"}}},
		raw.Decl{Kind: raw.DeclMacro, Name: "MAX", Text: "(GREEN + 10)"},
		raw.Decl{Kind: raw.DeclMacro, Name: "CALL", Text: "foo(1)"},
		raw.Decl{Kind: raw.DeclMacro, Name: "UNDEF", Text: "NOPE + 1"},
		raw.Decl{Kind: raw.DeclMacro, Name: "LOOP", Text: "LOOP"},
	)
	tagged := []struct {
		ns     decls.Namespace
		name   string
		tag    classify.Tag
		reason string
	}{
		{decls.NSTag, "color", classify.Supported, ""},
		{decls.NSTag, "huge", classify.Unsupported, "__int128"},
		{decls.NSOrdinary, "GREEN", classify.Supported, ""},
		{decls.NSOrdinary, "H0", classify.Unsupported, "enum huge"},
		{decls.NSMacro, "MAX", classify.Supported, ""},
		{decls.NSMacro, "CALL", classify.Unsupported, "not a constant"},
		{decls.NSMacro, "UNDEF", classify.Unsupported, "NOPE"},
		{decls.NSMacro, "LOOP", classify.Unsupported, "cyclic"},
	}
	for _, tc := range tagged {
		t.Run(tc.name, func(t *testing.T) {
			cl := f.class(t, tc.ns, tc.name)
			if cl.Tag != tc.tag || !strings.Contains(cl.Reason, tc.reason) {
				t.Fatalf("got %s (%q), want %s mentioning %q", cl.Tag, cl.Reason, tc.tag, tc.reason)
			}
		})
	}
}

func TestCallbackCyclesTerminate(t *testing.T) {
	// a and b reach each other only through function pointers.
	f := build(t, target.X86_64LinuxGNU(),
		structDef("a", field("f", ptr(fn(prim("void"), false, structRef("b"))))),
		structDef("b", field("g", ptr(fn(structRef("a"), false))), field("x", prim("int"))),
		structDef("c", field("f", ptr(fn(prim("void"), false, structRef("d"))))),
		structDef("d", field("g", ptr(fn(structRef("c"), false))), field("x", prim("__float128"))),
	)
	for _, name := range []string{"a", "b"} {
		if cl := f.class(t, decls.NSTag, name); cl.Tag != classify.Supported {
			t.Fatalf("%s: %+v", name, cl)
		}
	}
	for _, name := range []string{"c", "d"} {
		if cl := f.class(t, decls.NSTag, name); cl.Tag != classify.Unsupported {
			t.Fatalf("%s: %+v", name, cl)
		}
	}
}

func TestRecursiveRecordIsUnsupported(t *testing.T) {
	f := build(t, target.X86_64LinuxGNU(),
		structDef("node", field("v", prim("int")), field("next", structRef("node"))),
	)
	cl := f.class(t, decls.NSTag, "node")
	if cl.Tag != classify.Unsupported || !strings.Contains(cl.Reason, "layout") {
		t.Fatalf("node: %+v", cl)
	}
}

func TestConcurrentClassification(t *testing.T) {
	ds := []raw.Decl{structDef("s0", field("v", prim("__int128")))}
	for i := 1; i < 64; i++ {
		ds = append(ds, structDef("s"+strconv.Itoa(i), field("prev", structRef("s"+strconv.Itoa(i-1)))))
	}
	f := build(t, target.X86_64LinuxGNU(), ds...)
	ents := f.tbl.Entities()

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := range ents {
				ent := ents[(i*7+g)%len(ents)]
				if cl := f.c.Classify(ent.ID); cl.Tag != classify.Unsupported {
					t.Errorf("%s: %+v", ent.Subject(), cl)
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestMessage(t *testing.T) {
	cl := classify.Classification{Tag: classify.Unsupported, Reason: "field v: __int128"}
	if got, want := cl.Message("struct wide"), "skipping struct wide: unsupported type usage: field v: __int128"; got != want {
		t.Fatalf("Message = %q, want %q", got, want)
	}
	cl = classify.Classification{Tag: classify.Undeclared, Reason: "undeclared typedef t"}
	if got := cl.Message("f"); !strings.HasPrefix(got, "skipping f: incomplete type usage") {
		t.Fatalf("Message = %q", got)
	}
}
