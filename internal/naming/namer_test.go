package naming

import (
	"fmt"
	"sync"
	"testing"

	"hbind/internal/decls"
	"hbind/internal/raw"
)

func prim(name string) *raw.TypeExpr { return &raw.TypeExpr{Kind: raw.TypePrim, Prim: name} }

func anonStruct(fields ...raw.Field) *raw.TypeExpr {
	return &raw.TypeExpr{Kind: raw.TypeStruct, Fields: fields}
}

func field(name string, t *raw.TypeExpr) raw.Field { return raw.Field{Name: name, Type: t} }

func structDef(name string, fields ...raw.Field) raw.Decl {
	return raw.Decl{Kind: raw.DeclStruct, Name: name, Definition: true, Fields: fields}
}

func assign(t *testing.T, ds ...raw.Decl) (*decls.Table, *Namer) {
	t.Helper()
	tbl := decls.New(nil)
	for _, d := range ds {
		if _, err := tbl.Merge(d); err != nil {
			t.Fatalf("Merge(%s): %v", d.Subject(), err)
		}
	}
	n := New(tbl)
	if err := Assign(tbl, n, "test.h"); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	return tbl, n
}

func nameOf(t *testing.T, tbl *decls.Table, x *raw.TypeExpr) string {
	t.Helper()
	id, ok := tbl.AnonymousFor(x)
	if !ok {
		t.Fatalf("no entity for anonymous body")
	}
	return tbl.Entity(id).Name
}

func TestMemberAndGroupNaming(t *testing.T) {
	member := anonStruct(field("a", prim("int")))
	deep := anonStruct(field("z", prim("int")))
	inner := anonStruct(field("k", prim("int")))
	mid := anonStruct(field("inner", inner))
	group := &raw.TypeExpr{Kind: raw.TypeUnion, Fields: []raw.Field{field("i", prim("int")), field("deep", deep)}}
	tbl, _ := assign(t, structDef("Outer",
		field("field", member),
		raw.Field{Type: group},
		field("mid", &raw.TypeExpr{Kind: raw.TypePointer, Elem: mid}),
	))
	cases := []struct {
		x    *raw.TypeExpr
		want string
	}{
		{member, "Outer_field"},
		{deep, "Outer_deep"},
		{mid, "Outer_mid"},
		{inner, "Outer_mid_inner"},
	}
	for _, tc := range cases {
		if got := nameOf(t, tbl, tc.x); got != tc.want {
			t.Fatalf("name = %q, want %q", got, tc.want)
		}
	}
	if _, ok := tbl.AnonymousFor(group); ok {
		t.Fatalf("anonymous member must stay an inline group")
	}
}

func TestIdenticalShapesInUnrelatedContextsGetDistinctNames(t *testing.T) {
	a := anonStruct(field("x", prim("int")))
	b := anonStruct(field("x", prim("int")))
	tbl, _ := assign(t,
		structDef("A", field("p", a)),
		structDef("B", field("p", b)),
	)
	na, nb := nameOf(t, tbl, a), nameOf(t, tbl, b)
	if na == nb {
		t.Fatalf("shared name %q", na)
	}
	if na != "A_p" || nb != "B_p" {
		t.Fatalf("names = %q, %q", na, nb)
	}
}

func TestTypedefVariableAndFunctionPointerParts(t *testing.T) {
	td := anonStruct(field("x", prim("int")))
	v := anonStruct(field("y", prim("int")))
	ret := anonStruct(field("r", prim("int")))
	arg := anonStruct(field("q", prim("int")))
	cb := &raw.TypeExpr{Kind: raw.TypePointer, Elem: &raw.TypeExpr{
		Kind:   raw.TypeFunction,
		Result: ret,
		Params: []raw.Param{{Name: "p", Type: &raw.TypeExpr{Kind: raw.TypePointer, Elem: arg}}},
	}}
	tbl, _ := assign(t,
		raw.Decl{Kind: raw.DeclTypedef, Name: "T", Type: td},
		raw.Decl{Kind: raw.DeclVariable, Name: "config", Type: v},
		raw.Decl{Kind: raw.DeclTypedef, Name: "cb", Type: cb},
	)
	want := map[*raw.TypeExpr]string{td: "T", v: "config", ret: "cb_return", arg: "cb_x0"}
	for x, name := range want {
		if got := nameOf(t, tbl, x); got != name {
			t.Fatalf("name = %q, want %q", got, name)
		}
	}
}

func TestCollisionsGetSuffix(t *testing.T) {
	member := anonStruct(field("a", prim("int")))
	tbl, n := assign(t,
		structDef("Outer_field", field("real", prim("int"))),
		structDef("Outer", field("field", member)),
	)
	if got := nameOf(t, tbl, member); got != "Outer_field_1" {
		t.Fatalf("name = %q, want Outer_field_1", got)
	}
	cs := n.Collisions()
	if len(cs) != 1 || cs[0].Base != "Outer_field" || cs[0].Node.Path.String() != "Outer.field" {
		t.Fatalf("collisions = %+v", cs)
	}
}

func TestTopLevelAnonymousEnums(t *testing.T) {
	enum := func(c string) raw.Decl {
		return raw.Decl{Kind: raw.DeclEnum, Definition: true, Constants: []raw.EnumConst{{Name: c}}}
	}
	tbl, _ := assign(t, enum("A"), enum("B"))
	for i, want := range []string{"anon_enum_1", "anon_enum_2"} {
		e := tbl.Entity(decls.EntityID(1 + 2*i))
		if e == nil || e.Kind != decls.KindEnum || e.Name != want {
			t.Fatalf("entity %d = %+v, want %s", 1+2*i, e, want)
		}
	}
}

type fixedTags map[string]bool

func (f fixedTags) HasTag(name string) bool { return f[name] }

func TestNameForIsComputedOnceUnderConcurrency(t *testing.T) {
	n := New(fixedTags{"S_f": true})
	nodes := make([]Node, 8)
	for i := range nodes {
		nodes[i] = Node{Path: Path{"S", "f"}, Kind: NodeField, Context: fmt.Sprintf("unit%d.h", i)}
	}
	results := make([][]string, 32)
	var wg sync.WaitGroup
	for w := range results {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			out := make([]string, len(nodes))
			for i, node := range nodes {
				out[i] = n.NameFor(node)
			}
			results[w] = out
		}(w)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := range nodes {
		name := results[0][i]
		for w := range results {
			if results[w][i] != name {
				t.Fatalf("node %d named %q and %q", i, name, results[w][i])
			}
		}
		if seen[name] || name == "S_f" {
			t.Fatalf("name %q reused", name)
		}
		seen[name] = true
	}
	if n.Len() != len(nodes) {
		t.Fatalf("memo holds %d names, want %d", n.Len(), len(nodes))
	}
}
