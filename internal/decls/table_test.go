package decls

import (
	"errors"
	"testing"

	"hbind/internal/raw"
	"hbind/internal/target"
	"hbind/internal/types"
)

func prim(name string) *raw.TypeExpr { return &raw.TypeExpr{Kind: raw.TypePrim, Prim: name} }

func ptr(elem *raw.TypeExpr) *raw.TypeExpr { return &raw.TypeExpr{Kind: raw.TypePointer, Elem: elem} }

func tdef(name string) *raw.TypeExpr { return &raw.TypeExpr{Kind: raw.TypeTypedef, Name: name} }

func fn(result *raw.TypeExpr, params ...raw.Param) *raw.TypeExpr {
	return &raw.TypeExpr{Kind: raw.TypeFunction, Result: result, Params: params}
}

func intField(name string) raw.Field { return raw.Field{Name: name, Type: prim("int")} }

func structDef(name string, fields ...raw.Field) raw.Decl {
	return raw.Decl{Kind: raw.DeclStruct, Name: name, Definition: true, Fields: fields}
}

func mustMerge(t *testing.T, tbl *Table, d raw.Decl) EntityID {
	t.Helper()
	id, err := tbl.Merge(d)
	if err != nil {
		t.Fatalf("Merge(%s): %v", d.Subject(), err)
	}
	return id
}

func conflictKind(t *testing.T, err error) ConflictKind {
	t.Helper()
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConflictError, got %v", err)
	}
	return ce.Kind
}

func TestForwardAndDefinitionMergeInEitherOrder(t *testing.T) {
	fwd := raw.Decl{Kind: raw.DeclStruct, Name: "foo"}
	def := structDef("foo", intField("x"))
	cases := []struct {
		name     string
		decls    []raw.Decl
		complete bool
	}{
		{"fwd+fwd", []raw.Decl{fwd, fwd}, false},
		{"fwd+def", []raw.Decl{fwd, def}, true},
		{"def+fwd", []raw.Decl{def, fwd}, true},
		{"def+def", []raw.Decl{def, def}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tbl := New(nil)
			first := mustMerge(t, tbl, tc.decls[0])
			second := mustMerge(t, tbl, tc.decls[1])
			if first != second {
				t.Fatalf("expected one entity, got %d and %d", first, second)
			}
			if tbl.Len() != 1 {
				t.Fatalf("expected 1 entity, got %d", tbl.Len())
			}
			e := tbl.Entity(first)
			if e.Complete() != tc.complete {
				t.Fatalf("complete = %v, want %v", e.Complete(), tc.complete)
			}
			if tc.complete && len(e.Record.Fields) != 1 {
				t.Fatalf("definition body not attached: %+v", e.Record)
			}
		})
	}
}

func TestConflicts(t *testing.T) {
	variable := raw.Decl{Kind: raw.DeclVariable, Name: "foo", Type: prim("int")}
	function := raw.Decl{Kind: raw.DeclFunction, Name: "foo", Type: fn(prim("void"))}
	cases := []struct {
		name  string
		first raw.Decl
		next  raw.Decl
		want  ConflictKind
	}{
		{"variable then function", variable, function, ConflictIncompatibleRedeclaration},
		{"struct then union", structDef("bar", intField("a")), raw.Decl{Kind: raw.DeclUnion, Name: "bar"}, ConflictIncompatibleRedeclaration},
		{"struct then enum", raw.Decl{Kind: raw.DeclStruct, Name: "bar"}, raw.Decl{Kind: raw.DeclEnum, Name: "bar"}, ConflictIncompatibleRedeclaration},
		{"different bodies", structDef("bar", intField("a")), structDef("bar", intField("b")), ConflictRedefinition},
		{"typedef retarget", raw.Decl{Kind: raw.DeclTypedef, Name: "T", Type: prim("int")}, raw.Decl{Kind: raw.DeclTypedef, Name: "T", Type: prim("long")}, ConflictIncompatibleType},
		{"variable retype", variable, raw.Decl{Kind: raw.DeclVariable, Name: "foo", Type: prim("char")}, ConflictIncompatibleType},
		{"macro redefined", raw.Decl{Kind: raw.DeclMacro, Name: "M", Text: "1"}, raw.Decl{Kind: raw.DeclMacro, Name: "M", Text: "2"}, ConflictRedefinition},
		{"two function bodies", raw.Decl{Kind: raw.DeclFunction, Name: "f", Type: fn(prim("int")), Definition: true}, raw.Decl{Kind: raw.DeclFunction, Name: "f", Type: fn(prim("int")), Definition: true}, ConflictRedefinition},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tbl := New(nil)
			first := mustMerge(t, tbl, tc.first)
			id, err := tbl.Merge(tc.next)
			if got := conflictKind(t, err); got != tc.want {
				t.Fatalf("conflict kind = %v, want %v", got, tc.want)
			}
			if id != first {
				t.Fatalf("conflict reported against %d, want %d", id, first)
			}
			e := tbl.Entity(first)
			if len(e.Conflicts) != 1 {
				t.Fatalf("expected conflict recorded on entity, got %d", len(e.Conflicts))
			}
			if tbl.Len() != 1 {
				t.Fatalf("rejected declaration must not create an entity")
			}
		})
	}
}

func TestFirstDeclarationIsRetained(t *testing.T) {
	tbl := New(nil)
	id := mustMerge(t, tbl, raw.Decl{Kind: raw.DeclVariable, Name: "foo", Type: prim("int")})
	if _, err := tbl.Merge(raw.Decl{Kind: raw.DeclFunction, Name: "foo", Type: fn(prim("int"))}); err == nil {
		t.Fatalf("expected conflict")
	}
	e := tbl.Entity(id)
	if e.Kind != KindVariable || e.Variable == nil || e.Function != nil {
		t.Fatalf("entity overwritten: %+v", e)
	}
}

func TestCrossNamespaceReuseIsSilent(t *testing.T) {
	tbl := New(nil)
	tag := mustMerge(t, tbl, structDef("foo", intField("a")))
	variable := mustMerge(t, tbl, raw.Decl{Kind: raw.DeclVariable, Name: "foo", Type: &raw.TypeExpr{Kind: raw.TypeStruct, Name: "foo"}})
	macro := mustMerge(t, tbl, raw.Decl{Kind: raw.DeclMacro, Name: "foo", Text: "1"})
	if tag == variable || variable == macro {
		t.Fatalf("namespaces must be disjoint")
	}
	if e, ok := tbl.Lookup(NSTag, "foo"); !ok || e.ID != tag {
		t.Fatalf("tag lookup failed")
	}
	if e, ok := tbl.Lookup(NSOrdinary, "foo"); !ok || e.ID != variable {
		t.Fatalf("ordinary lookup failed")
	}
}

func TestFunctionRedeclarationMerges(t *testing.T) {
	tbl := New(nil)
	mustMerge(t, tbl, raw.Decl{Kind: raw.DeclTypedef, Name: "myint", Type: prim("int")})
	first := raw.Decl{Kind: raw.DeclFunction, Name: "f", Type: fn(prim("int"),
		raw.Param{Name: "a", Type: tdef("myint")},
		raw.Param{Type: ptr(prim("char"))},
	)}
	constParam := &raw.TypeExpr{Kind: raw.TypePrim, Prim: "signed int", Const: true}
	second := raw.Decl{Kind: raw.DeclFunction, Name: "f", Definition: true, Type: fn(prim("int"),
		raw.Param{Name: "x", Type: constParam},
		raw.Param{Name: "s", Type: ptr(prim("char"))},
	)}
	id := mustMerge(t, tbl, first)
	if got := mustMerge(t, tbl, second); got != id {
		t.Fatalf("expected merge into %d, got %d", id, got)
	}
	f := tbl.Entity(id).Function
	if !f.Defined {
		t.Fatalf("definition not recorded")
	}
	if f.Params[0] != "a" || f.Params[1] != "s" {
		t.Fatalf("param names = %v, want [a s]", f.Params)
	}
}

func TestIncompleteArrayCompletesVariable(t *testing.T) {
	tbl := New(nil)
	n := int64(16)
	incomplete := &raw.TypeExpr{Kind: raw.TypeArray, Elem: prim("int")}
	complete := &raw.TypeExpr{Kind: raw.TypeArray, Elem: prim("int"), Len: &n}
	id := mustMerge(t, tbl, raw.Decl{Kind: raw.DeclVariable, Name: "tbl", Type: incomplete, Extern: true})
	mustMerge(t, tbl, raw.Decl{Kind: raw.DeclVariable, Name: "tbl", Type: complete})
	v := tbl.Entity(id).Variable
	if v.Raw.Len == nil || *v.Raw.Len != 16 || v.Extern {
		t.Fatalf("composite type not taken: %+v", v)
	}
}

func TestNestedRecordsAndEnumConstantsAreLifted(t *testing.T) {
	tbl := New(nil)
	inner := &raw.TypeExpr{Kind: raw.TypeStruct, Name: "inner", Fields: []raw.Field{intField("v")}}
	seven := int64(7)
	color := &raw.TypeExpr{Kind: raw.TypeEnum, Constants: []raw.EnumConst{{Name: "RED"}, {Name: "GREEN", Value: &seven}, {Name: "BLUE"}}}
	mustMerge(t, tbl, structDef("outer",
		raw.Field{Name: "in", Type: inner},
		raw.Field{Name: "c", Type: color},
	))
	e, ok := tbl.Lookup(NSTag, "inner")
	if !ok || !e.Complete() || !e.Nested {
		t.Fatalf("nested struct not lifted: %+v", e)
	}
	want := map[string]int64{"RED": 0, "GREEN": 7, "BLUE": 8}
	for name, v := range want {
		c, ok := tbl.Lookup(NSOrdinary, name)
		if !ok || c.Kind != KindEnumConstant || c.Constant.Value != v {
			t.Fatalf("%s: got %+v, want value %d", name, c, v)
		}
	}
	id, ok := tbl.AnonymousFor(color)
	if !ok {
		t.Fatalf("anonymous enum body has no entity")
	}
	if anon := tbl.Entity(id); !anon.Anonymous || anon.Name != "" || len(anon.Enum.Constants) != 3 {
		t.Fatalf("unexpected anonymous entity: %+v", anon)
	}
}

func TestGroupsAreInlineNotEntities(t *testing.T) {
	tbl := New(nil)
	group := &raw.TypeExpr{Kind: raw.TypeUnion, Fields: []raw.Field{intField("i"), {Name: "f", Type: prim("float")}}}
	id := mustMerge(t, tbl, structDef("s", intField("tag"), raw.Field{Type: group}))
	if tbl.Len() != 1 {
		t.Fatalf("group must not create an entity, have %d", tbl.Len())
	}
	f := tbl.Entity(id).Record.Fields[1]
	if f.Group == nil || f.Group.Kind != types.RecordUnion || len(f.Group.Fields) != 2 {
		t.Fatalf("group not built: %+v", f)
	}
}

func TestKeysAreNFCNormalized(t *testing.T) {
	tbl := New(nil)
	composed := mustMerge(t, tbl, raw.Decl{Kind: raw.DeclVariable, Name: "caf\u00e9", Type: prim("int")})
	decomposed := mustMerge(t, tbl, raw.Decl{Kind: raw.DeclVariable, Name: "cafe\u0301", Type: prim("int")})
	if composed != decomposed {
		t.Fatalf("NFC-equal names must merge")
	}
}

func TestFreezeAndResolve(t *testing.T) {
	tbl := New(nil)
	anon := &raw.TypeExpr{Kind: raw.TypeStruct, Fields: []raw.Field{intField("x")}}
	td := mustMerge(t, tbl, raw.Decl{Kind: raw.DeclTypedef, Name: "T", Type: anon})
	v := mustMerge(t, tbl, raw.Decl{Kind: raw.DeclVariable, Name: "p", Type: ptr(&raw.TypeExpr{Kind: raw.TypeStruct, Name: "node"})})

	in := types.NewInterner()
	tgt := target.X86_64LinuxGNU()
	if err := tbl.ResolveTypes(in, &tgt); err == nil {
		t.Fatalf("expected error for unnamed anonymous entity")
	}
	id, _ := tbl.AnonymousFor(anon)
	if err := tbl.AssignName(id, "T"); err != nil {
		t.Fatalf("AssignName: %v", err)
	}
	if err := tbl.ResolveTypes(in, &tgt); err != nil {
		t.Fatalf("ResolveTypes: %v", err)
	}
	aliased := in.MustLookup(tbl.Entity(td).Typedef.Aliased)
	if aliased.Kind != types.KindRecordRef || aliased.Name != "T" {
		t.Fatalf("typedef aliases %+v", aliased)
	}
	if got := types.Label(in, tbl.Entity(v).Variable.Type); got != "struct node*" {
		t.Fatalf("variable type = %q", got)
	}
	tbl.Freeze()
	if _, err := tbl.Merge(raw.Decl{Kind: raw.DeclMacro, Name: "LATE", Text: "1"}); !errors.Is(err, ErrFrozen) {
		t.Fatalf("expected ErrFrozen, got %v", err)
	}
}

func TestCompletedArrayKeepsFirstElement(t *testing.T) {
	tbl := New(nil)
	body := func() *raw.TypeExpr {
		return &raw.TypeExpr{Kind: raw.TypeStruct, Fields: []raw.Field{intField("a")}}
	}
	n := int64(4)
	first := &raw.TypeExpr{Kind: raw.TypeArray, Elem: body()}
	id := mustMerge(t, tbl, raw.Decl{Kind: raw.DeclVariable, Name: "tbl", Extern: true, Type: first})
	mustMerge(t, tbl, raw.Decl{Kind: raw.DeclVariable, Name: "tbl", Type: &raw.TypeExpr{Kind: raw.TypeArray, Elem: body(), Len: &n}})

	v := tbl.Entity(id).Variable
	if v.Raw.Len == nil || *v.Raw.Len != 4 || v.Extern {
		t.Fatalf("variable not completed: %+v", v)
	}
	if v.Raw.Elem != first.Elem {
		t.Fatalf("element expression replaced")
	}
	if first.Len != nil {
		t.Fatalf("input expression was modified")
	}
	var anon []EntityID
	for _, e := range tbl.Entities() {
		if e.Anonymous {
			anon = append(anon, e.ID)
		}
	}
	if len(anon) != 1 {
		t.Fatalf("expected one anonymous entity, got %v", anon)
	}
	if got, ok := tbl.AnonymousFor(v.Raw.Elem); !ok || got != anon[0] {
		t.Fatalf("anonymous element not reachable from the variable")
	}
	if err := tbl.AssignName(anon[0], "tbl"); err != nil {
		t.Fatalf("AssignName: %v", err)
	}
	in := types.NewInterner()
	tgt := target.X86_64LinuxGNU()
	if err := tbl.ResolveTypes(in, &tgt); err != nil {
		t.Fatalf("ResolveTypes: %v", err)
	}
	arr := in.MustLookup(tbl.Entity(id).Variable.Type)
	if arr.Kind != types.KindArray || arr.Count != 4 {
		t.Fatalf("variable type = %+v", arr)
	}
}

func TestRepeatedDeclarationLiftsTagBodies(t *testing.T) {
	ref := func() *raw.TypeExpr { return &raw.TypeExpr{Kind: raw.TypeStruct, Name: "S"} }
	def := func() *raw.TypeExpr {
		return &raw.TypeExpr{Kind: raw.TypeStruct, Name: "S", Fields: []raw.Field{intField("a")}}
	}
	two := int64(2)
	cases := []struct {
		name  string
		decls []raw.Decl
		anon  int
	}{
		{"typedef", []raw.Decl{
			{Kind: raw.DeclTypedef, Name: "T", Type: ref()},
			{Kind: raw.DeclTypedef, Name: "T", Type: def()},
		}, 0},
		{"variable", []raw.Decl{
			{Kind: raw.DeclVariable, Name: "v", Extern: true, Type: ref()},
			{Kind: raw.DeclVariable, Name: "v", Type: def()},
		}, 0},
		{"function", []raw.Decl{
			{Kind: raw.DeclFunction, Name: "f", Type: fn(prim("void"), raw.Param{Name: "p", Type: ptr(ref())})},
			{Kind: raw.DeclFunction, Name: "f", Type: fn(prim("void"), raw.Param{Type: ptr(def())})},
		}, 0},
		{"completed array", []raw.Decl{
			{Kind: raw.DeclVariable, Name: "tbl", Extern: true, Type: &raw.TypeExpr{Kind: raw.TypeArray, Elem: ref()}},
			{Kind: raw.DeclVariable, Name: "tbl", Type: &raw.TypeExpr{Kind: raw.TypeArray, Elem: def(), Len: &two}},
		}, 0},
		{"inside anonymous body", []raw.Decl{
			{Kind: raw.DeclVariable, Name: "w", Extern: true, Type: &raw.TypeExpr{Kind: raw.TypeStruct, Fields: []raw.Field{{Name: "s", Type: ptr(ref())}}}},
			{Kind: raw.DeclVariable, Name: "w", Type: &raw.TypeExpr{Kind: raw.TypeStruct, Fields: []raw.Field{{Name: "s", Type: ptr(def())}}}},
		}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tbl := New(nil)
			for _, d := range tc.decls {
				mustMerge(t, tbl, d)
			}
			s, ok := tbl.Lookup(NSTag, "S")
			if !ok {
				t.Fatalf("struct S was dropped")
			}
			if !s.Complete() || len(s.Record.Fields) != 1 {
				t.Fatalf("struct S body not attached: %+v", s.Record)
			}
			anon := 0
			for _, e := range tbl.Entities() {
				if e.Anonymous {
					anon++
				}
			}
			if anon != tc.anon {
				t.Fatalf("anonymous entities = %d, want %d", anon, tc.anon)
			}
		})
	}
}

func TestResolveReportsPerEntity(t *testing.T) {
	tbl := New(nil)
	bad := mustMerge(t, tbl, raw.Decl{Kind: raw.DeclVariable, Name: "bad", Type: prim("quad")})
	good := mustMerge(t, tbl, raw.Decl{Kind: raw.DeclVariable, Name: "good", Type: prim("int")})
	orphan := mustMerge(t, tbl, raw.Decl{Kind: raw.DeclStruct, Definition: true, Fields: []raw.Field{intField("x")}})

	in := types.NewInterner()
	tgt := target.X86_64LinuxGNU()
	err := tbl.ResolveTypes(in, &tgt)
	per, rest := EntityErrors(err)
	if len(rest) != 0 {
		t.Fatalf("unexpected errors without an entity: %v", rest)
	}
	got := make(map[EntityID]bool)
	for _, ee := range per {
		got[ee.Entity] = true
	}
	if len(per) != 2 || !got[bad] || !got[orphan] {
		t.Fatalf("per-entity errors = %v", per)
	}
	if tbl.Entity(good).Variable.Type == types.NoTypeID {
		t.Fatalf("unrelated variable was not resolved")
	}

	if err := tbl.Invalidate(orphan, errors.New("could not be named")); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	per, _ = EntityErrors(tbl.ResolveTypes(in, &tgt))
	if len(per) != 1 || per[0].Entity != bad {
		t.Fatalf("invalidated entity reported again: %v", per)
	}
	tbl.Freeze()
	if err := tbl.Invalidate(bad, errors.New("late")); !errors.Is(err, ErrFrozen) {
		t.Fatalf("expected ErrFrozen, got %v", err)
	}
}
