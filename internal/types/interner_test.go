package types

import "testing"

func TestInternerDeduplicatesDescriptors(t *testing.T) {
	in := NewInterner()
	i32 := in.Intern(MakePrim(PrimInt, 32, true))
	if again := in.Intern(MakePrim(PrimInt, 32, true)); again != i32 {
		t.Fatalf("primitive not deduplicated: %d vs %d", i32, again)
	}
	p1 := in.Intern(MakePointer(i32))
	p2 := in.Intern(MakePointer(i32))
	if p1 != p2 {
		t.Fatalf("pointer types should be deduplicated")
	}
	if in.Intern(MakeArray(i32, 4)) == in.Intern(MakeArray(i32, ArrayIncomplete)) {
		t.Fatalf("complete and incomplete arrays must differ")
	}
}

func TestRecordRefIsNameBased(t *testing.T) {
	in := NewInterner()
	a := in.Intern(MakeRecordRef(RecordStruct, "node"))
	b := in.Intern(MakeRecordRef(RecordStruct, "node"))
	u := in.Intern(MakeRecordRef(RecordUnion, "node"))
	if a != b {
		t.Fatalf("same tag must intern to one id")
	}
	if a == u {
		t.Fatalf("struct and union refs must differ")
	}
}

func TestRegisterFnVariadicAffectsIdentity(t *testing.T) {
	in := NewInterner()
	i32 := in.Intern(MakePrim(PrimInt, 32, true))
	f1 := in.RegisterFn([]TypeID{i32}, i32, false)
	f2 := in.RegisterFn([]TypeID{i32}, i32, false)
	f3 := in.RegisterFn([]TypeID{i32}, i32, true)
	if f1 != f2 {
		t.Fatalf("identical signatures must dedupe")
	}
	if f1 == f3 {
		t.Fatalf("variadic signature must differ")
	}
	info, ok := in.FnInfo(f3)
	if !ok || !info.Variadic || len(info.Params) != 1 {
		t.Fatalf("unexpected fn info: %+v", info)
	}
}

func TestQualifyMerges(t *testing.T) {
	in := NewInterner()
	ch := in.Intern(MakePrim(PrimChar, 8, true))
	c := in.Qualify(ch, QualConst)
	cv := in.Qualify(c, QualVolatile)
	tt := in.MustLookup(cv)
	if tt.Elem != ch || tt.Quals != QualConst|QualVolatile {
		t.Fatalf("qualifiers not merged: %+v", tt)
	}
	if in.Qualify(ch, 0) != ch {
		t.Fatalf("empty qualifier must be identity")
	}
}

func TestLabel(t *testing.T) {
	in := NewInterner()
	i32 := in.Intern(MakePrim(PrimInt, 32, true))
	ch := in.Intern(MakePrim(PrimChar, 8, true))
	cstr := in.Intern(MakePointer(in.Qualify(ch, QualConst)))
	fn := in.RegisterFn([]TypeID{i32}, i32, true)
	fp := in.Intern(MakePointer(fn))
	arr := in.Intern(MakeArray(in.Intern(MakePointer(i32)), 4))
	node := in.Intern(MakePointer(in.Intern(MakeRecordRef(RecordStruct, "node"))))
	void := in.Intern(MakePrim(PrimVoid, 0, false))
	noargs := in.RegisterFn(nil, void, false)

	tests := []struct {
		id   TypeID
		want string
	}{
		{cstr, "const char*"},
		{fp, "int(*)(int, ...)"},
		{arr, "int*[4]"},
		{node, "struct node*"},
		{noargs, "void(void)"},
		{in.Qualify(cstr, QualConst), "const char* const"},
	}
	for _, tt := range tests {
		if got := Label(in, tt.id); got != tt.want {
			t.Fatalf("Label = %q, want %q", got, tt.want)
		}
	}
}

type mapResolver map[string]TypeID

func (m mapResolver) TypedefTarget(name string) (TypeID, bool) {
	id, ok := m[name]
	return id, ok
}

func TestResolveTypedefChain(t *testing.T) {
	in := NewInterner()
	i32 := in.Intern(MakePrim(PrimInt, 32, true))
	intT := in.Intern(MakeTypedefRef("INT"))
	myT := in.Intern(MakeTypedefRef("MYINT"))
	r := mapResolver{"INT": i32, "MYINT": in.Qualify(intT, QualConst)}

	if got, st := Resolve(in, myT, r); got != i32 || st != Resolved {
		t.Fatalf("Resolve = %d/%d, want %d", got, st, i32)
	}
	missing := in.Intern(MakeTypedefRef("NOPE"))
	if _, st := Resolve(in, missing, r); st != UndeclaredTypedef {
		t.Fatalf("expected UndeclaredTypedef, got %d", st)
	}
	a := in.Intern(MakeTypedefRef("A"))
	b := in.Intern(MakeTypedefRef("B"))
	cyc := mapResolver{"A": b, "B": a}
	if _, st := Resolve(in, a, cyc); st != CyclicTypedef {
		t.Fatalf("expected CyclicTypedef, got %d", st)
	}
}

func TestParsePrim(t *testing.T) {
	tests := map[string]Prim{
		"unsigned   long long": PrimULongLong,
		"__int128":             PrimInt128,
		"long double":          PrimLongDouble,
		"unsigned":             PrimUInt,
	}
	for s, want := range tests {
		if got, ok := ParsePrim(s); !ok || got != want {
			t.Fatalf("ParsePrim(%q) = %v, want %v", s, got, want)
		}
	}
	if _, ok := ParsePrim("quad"); ok {
		t.Fatalf("unknown spelling accepted")
	}
}
