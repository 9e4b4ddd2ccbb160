package layout_test

import (
	"errors"
	"sync"
	"testing"

	"hbind/internal/decls"
	"hbind/internal/layout"
	"hbind/internal/naming"
	"hbind/internal/raw"
	"hbind/internal/target"
	"hbind/internal/types"
)

func prim(name string) *raw.TypeExpr { return &raw.TypeExpr{Kind: raw.TypePrim, Prim: name} }

func ptr(elem *raw.TypeExpr) *raw.TypeExpr { return &raw.TypeExpr{Kind: raw.TypePointer, Elem: elem} }

func structRef(name string) *raw.TypeExpr { return &raw.TypeExpr{Kind: raw.TypeStruct, Name: name} }

func field(name string, typ *raw.TypeExpr) raw.Field { return raw.Field{Name: name, Type: typ} }

func bits(name, typ string, width int) raw.Field {
	return raw.Field{Name: name, Type: prim(typ), Bits: &width}
}

func length(n int64) *int64 { return &n }

func structDef(name string, fields ...raw.Field) raw.Decl {
	return raw.Decl{Kind: raw.DeclStruct, Name: name, Definition: true, Fields: fields}
}

// build merges, names and resolves decls, then returns an engine over the
// frozen table.
func build(t *testing.T, tgt target.Target, ds ...raw.Decl) *layout.Engine {
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
	return layout.New(&tgt, in, tbl)
}

func layoutError(t *testing.T, err error) *layout.LayoutError {
	t.Helper()
	var lerr *layout.LayoutError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected *layout.LayoutError, got %T (%v)", err, err)
	}
	return lerr
}

func TestLayoutEngine_RecursiveStructReportsError(t *testing.T) {
	le := build(t, target.X86_64LinuxGNU(),
		structDef("node", field("v", prim("int")), field("next", structRef("node"))),
		structDef("a", field("b", structRef("b"))),
		structDef("b", field("a", &raw.TypeExpr{Kind: raw.TypeArray, Elem: structRef("a"), Len: length(2)})),
		structDef("holder", field("a", structRef("a"))),
	)
	le.Prepare()

	_, err := le.RecordLayout("node")
	lerr := layoutError(t, err)
	if lerr.Kind != layout.LayoutErrRecursive {
		t.Fatalf("expected LayoutErrRecursive, got %s (%v)", lerr.Kind, lerr)
	}
	if len(lerr.Cycle) != 2 || lerr.Cycle[0] != "struct node" {
		t.Fatalf("unexpected cycle %v", lerr.Cycle)
	}

	for _, name := range []string{"a", "b", "holder"} {
		_, err := le.RecordLayout(name)
		lerr := layoutError(t, err)
		if root := lerr.Root(); root.Kind != layout.LayoutErrRecursive || len(root.Cycle) == 0 {
			t.Fatalf("%s: expected a recursive root cause, got %v", name, lerr)
		}
	}
}

func TestLayoutEngine_SelfPointerIsSized(t *testing.T) {
	le := build(t, target.X86_64LinuxGNU(),
		structDef("list", field("next", ptr(structRef("list"))), field("v", prim("int"))),
	)
	l, err := le.RecordLayout("list")
	if err != nil {
		t.Fatalf("RecordLayout: %v", err)
	}
	if l.Size != 16 || l.Align != 8 {
		t.Fatalf("size/align = %d/%d, want 16/8", l.Size, l.Align)
	}
}

func TestLayoutEngine_IncompleteMemberPropagates(t *testing.T) {
	le := build(t, target.X86_64LinuxGNU(),
		raw.Decl{Kind: raw.DeclStruct, Name: "opaque"},
		structDef("byValue", field("o", structRef("opaque"))),
		structDef("byPointer", field("o", ptr(structRef("opaque")))),
		structDef("outer", field("inner", structRef("byValue"))),
		structDef("unknown", field("x", &raw.TypeExpr{Kind: raw.TypeTypedef, Name: "nowhere_t"})),
	)

	if _, err := le.RecordLayout("byPointer"); err != nil {
		t.Fatalf("pointer to an incomplete struct must be sized: %v", err)
	}
	_, err := le.RecordLayout("byValue")
	lerr := layoutError(t, err)
	if lerr.Kind != layout.LayoutErrIncompleteMember || lerr.Field != "o" {
		t.Fatalf("byValue: %+v", lerr)
	}
	_, err = le.RecordLayout("outer")
	lerr = layoutError(t, err)
	if lerr.Kind != layout.LayoutErrIncompleteMember || lerr.Cause == nil {
		t.Fatalf("outer: expected a wrapped cause, got %+v", lerr)
	}
	_, err = le.RecordLayout("opaque")
	if lerr := layoutError(t, err); lerr.Kind != layout.LayoutErrIncompleteMember {
		t.Fatalf("opaque: %+v", lerr)
	}
	_, err = le.RecordLayout("unknown")
	if lerr := layoutError(t, err); lerr.Kind != layout.LayoutErrIncompleteMember {
		t.Fatalf("unknown: %+v", lerr)
	}
}

func TestLayoutEngine_ConcurrentCallersShareOneLayout(t *testing.T) {
	ds := []raw.Decl{structDef("leaf", field("x", prim("double")))}
	names := []string{"leaf"}
	prev := "leaf"
	for _, name := range []string{"l1", "l2", "l3", "l4", "l5", "l6", "l7", "l8"} {
		ds = append(ds, structDef(name, field("c", prim("char")), field("next", structRef(prev))))
		names = append(names, name)
		prev = name
	}
	le := build(t, target.X86_64LinuxGNU(), ds...)
	le.Prepare()

	var wg sync.WaitGroup
	results := make([][]layout.Layout, 8)
	for g := range results {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := range names {
				l, err := le.RecordLayout(names[(i+g)%len(names)])
				if err != nil {
					t.Errorf("RecordLayout: %v", err)
					return
				}
				results[g] = append(results[g], l)
			}
		}(g)
	}
	wg.Wait()

	l8, err := le.RecordLayout("l8")
	if err != nil {
		t.Fatalf("l8: %v", err)
	}
	if l8.Size != 8+8*8 {
		t.Fatalf("l8 size = %d, want %d", l8.Size, 8+8*8)
	}
	if got := le.Cached(); got != len(names) {
		t.Fatalf("cached %d layouts, want %d", got, len(names))
	}
}
