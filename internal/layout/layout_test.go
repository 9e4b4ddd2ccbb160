package layout_test

import (
	"testing"

	"hbind/internal/layout"
	"hbind/internal/raw"
	"hbind/internal/target"
)

func mustLayout(t *testing.T, le *layout.Engine, name string) layout.Layout {
	t.Helper()
	l, err := le.RecordLayout(name)
	if err != nil {
		t.Fatalf("RecordLayout(%s): %v", name, err)
	}
	return l
}

func offsetOf(t *testing.T, l layout.Layout, name string) int {
	t.Helper()
	f, ok := l.Field(name)
	if !ok {
		t.Fatalf("%s has no member %s", l.Name, name)
	}
	return f.Offset
}

func bitOffsetOf(t *testing.T, l layout.Layout, name string) int {
	t.Helper()
	f, ok := l.Field(name)
	if !ok {
		t.Fatalf("%s has no member %s", l.Name, name)
	}
	return f.BitOffset
}

func TestPackCapsFieldAlignment(t *testing.T) {
	fields := []raw.Field{field("c", prim("char")), field("i", prim("int"))}
	cases := []struct {
		name   string
		decl   raw.Decl
		offset int
		size   int
		align  int
	}{
		{"natural", raw.Decl{Kind: raw.DeclStruct, Name: "s", Definition: true, Fields: fields}, 4, 8, 4},
		{"pack1", raw.Decl{Kind: raw.DeclStruct, Name: "s", Definition: true, Fields: fields, Pack: 1}, 1, 5, 1},
		{"pack2", raw.Decl{Kind: raw.DeclStruct, Name: "s", Definition: true, Fields: fields, Pack: 2}, 2, 6, 2},
		{"pack8", raw.Decl{Kind: raw.DeclStruct, Name: "s", Definition: true, Fields: fields, Pack: 8}, 4, 8, 4},
		{"packed", raw.Decl{Kind: raw.DeclStruct, Name: "s", Definition: true, Fields: fields, Packed: true}, 1, 5, 1},
		{"aligned", raw.Decl{Kind: raw.DeclStruct, Name: "s", Definition: true, Fields: fields, Align: 16}, 4, 16, 16},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := mustLayout(t, build(t, target.X86_64LinuxGNU(), tc.decl), "s")
			if got := offsetOf(t, l, "i"); got != tc.offset {
				t.Fatalf("offset of i = %d, want %d", got, tc.offset)
			}
			if l.Size != tc.size || l.Align != tc.align {
				t.Fatalf("size/align = %d/%d, want %d/%d", l.Size, l.Align, tc.size, tc.align)
			}
		})
	}
}

func TestTargetDefaultPackAndMinAlign(t *testing.T) {
	tgt := target.X86_64LinuxGNU()
	tgt.DefaultPack = 2
	tgt.MinRecordAlign = 4
	l := mustLayout(t, build(t, tgt,
		structDef("s", field("c", prim("char")), field("d", prim("double"))),
	), "s")
	if got := offsetOf(t, l, "d"); got != 2 {
		t.Fatalf("offset of d = %d, want 2", got)
	}
	if l.Align != 4 || l.Size != 12 {
		t.Fatalf("size/align = %d/%d, want 12/4", l.Size, l.Align)
	}
}

func TestTargetPrimitiveSizes(t *testing.T) {
	decl := structDef("s", field("c", prim("char")), field("l", prim("long")), field("d", prim("double")))
	cases := []struct {
		tgt       target.Target
		lOff      int
		dOff      int
		size      int
		structAln int
	}{
		{target.X86_64LinuxGNU(), 8, 16, 24, 8},
		{target.I386LinuxGNU(), 4, 8, 16, 4},
		{target.X86_64WindowsMSVC(), 4, 8, 16, 8},
	}
	for _, tc := range cases {
		t.Run(tc.tgt.Triple, func(t *testing.T) {
			l := mustLayout(t, build(t, tc.tgt, decl), "s")
			if offsetOf(t, l, "l") != tc.lOff || offsetOf(t, l, "d") != tc.dOff {
				t.Fatalf("offsets l=%d d=%d, want %d %d", offsetOf(t, l, "l"), offsetOf(t, l, "d"), tc.lOff, tc.dOff)
			}
			if l.Size != tc.size || l.Align != tc.structAln {
				t.Fatalf("size/align = %d/%d, want %d/%d", l.Size, l.Align, tc.size, tc.structAln)
			}
		})
	}
}

func TestSysVBitfieldsShareStorageUnits(t *testing.T) {
	le := build(t, target.X86_64LinuxGNU(),
		structDef("four", bits("a", "int", 6), bits("b", "int", 6), bits("c", "int", 6), bits("d", "int", 6)),
		structDef("five", bits("a", "int", 6), bits("b", "int", 6), bits("c", "int", 6), bits("d", "int", 6), bits("e", "int", 9)),
		structDef("straddle", bits("a", "char", 7), bits("b", "char", 2)),
		structDef("mixed", bits("a", "char", 4), bits("b", "int", 4)),
		structDef("zero", bits("a", "char", 3), bits("", "int", 0), bits("b", "char", 2)),
	)

	four := mustLayout(t, le, "four")
	if four.Size != 4 {
		t.Fatalf("four: size = %d, want 4", four.Size)
	}
	for i, name := range []string{"a", "b", "c", "d"} {
		if got := bitOffsetOf(t, four, name); got != 6*i {
			t.Fatalf("four.%s at bit %d, want %d", name, got, 6*i)
		}
	}

	five := mustLayout(t, le, "five")
	if got := bitOffsetOf(t, five, "e"); got != 32 {
		t.Fatalf("five.e at bit %d, want 32", got)
	}
	if got := offsetOf(t, five, "e"); got != 4 {
		t.Fatalf("five.e offset %d, want 4", got)
	}
	if five.Size != 8 {
		t.Fatalf("five: size = %d, want 8", five.Size)
	}

	straddle := mustLayout(t, le, "straddle")
	if got := bitOffsetOf(t, straddle, "b"); got != 8 || straddle.Size != 2 {
		t.Fatalf("straddle.b at bit %d, size %d", got, straddle.Size)
	}

	mixed := mustLayout(t, le, "mixed")
	if got := bitOffsetOf(t, mixed, "b"); got != 4 || mixed.Size != 4 {
		t.Fatalf("mixed.b at bit %d, size %d", got, mixed.Size)
	}

	zero := mustLayout(t, le, "zero")
	if got := bitOffsetOf(t, zero, "b"); got != 32 {
		t.Fatalf("zero.b at bit %d, want 32", got)
	}
}

func TestMSBitfieldsSplitOnTypeChange(t *testing.T) {
	le := build(t, target.X86_64WindowsMSVC(),
		structDef("mixed", bits("a", "char", 4), bits("b", "int", 4)),
		structDef("five", bits("a", "int", 6), bits("b", "int", 6), bits("c", "int", 6), bits("d", "int", 6), bits("e", "int", 9)),
		structDef("zero", bits("a", "int", 3), bits("", "int", 0), bits("b", "int", 2)),
	)
	mixed := mustLayout(t, le, "mixed")
	if got := bitOffsetOf(t, mixed, "b"); got != 32 {
		t.Fatalf("mixed.b at bit %d, want 32", got)
	}
	if mixed.Size != 8 || mixed.Align != 4 {
		t.Fatalf("mixed: size/align = %d/%d, want 8/4", mixed.Size, mixed.Align)
	}
	five := mustLayout(t, le, "five")
	if got := bitOffsetOf(t, five, "e"); got != 32 || five.Size != 8 {
		t.Fatalf("five.e at bit %d, size %d", got, five.Size)
	}
	zero := mustLayout(t, le, "zero")
	if got := bitOffsetOf(t, zero, "b"); got != 32 {
		t.Fatalf("zero.b at bit %d, want 32", got)
	}
}

func TestBitfieldErrors(t *testing.T) {
	cases := []struct {
		name string
		f    raw.Field
		kind layout.LayoutErrorKind
	}{
		{"too wide", bits("a", "int", 33), layout.LayoutErrBitfieldWidth},
		{"bool", bits("a", "_Bool", 2), layout.LayoutErrBitfieldWidth},
		{"named zero", bits("a", "int", 0), layout.LayoutErrBitfieldWidth},
		{"negative", bits("a", "int", -1), layout.LayoutErrBitfieldWidth},
		{"float", bits("a", "float", 3), layout.LayoutErrBitfieldType},
		{"pointer", raw.Field{Name: "a", Type: ptr(prim("int")), Bits: new(int)}, layout.LayoutErrBitfieldType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			le := build(t, target.X86_64LinuxGNU(), structDef("s", tc.f))
			_, err := le.RecordLayout("s")
			lerr := layoutError(t, err)
			if lerr.Kind != tc.kind || lerr.Field != "a" {
				t.Fatalf("got %s on %q (%v), want %s", lerr.Kind, lerr.Field, lerr, tc.kind)
			}
		})
	}
}

func TestUnrepresentablePacking(t *testing.T) {
	le := build(t, target.X86_64LinuxGNU(),
		raw.Decl{Kind: raw.DeclStruct, Name: "p3", Definition: true, Fields: []raw.Field{field("i", prim("int"))}, Pack: 3},
		raw.Decl{Kind: raw.DeclStruct, Name: "a6", Definition: true, Fields: []raw.Field{field("i", prim("int"))}, Align: 6},
	)
	for _, name := range []string{"p3", "a6"} {
		_, err := le.RecordLayout(name)
		if lerr := layoutError(t, err); lerr.Kind != layout.LayoutErrUnrepresentablePacking {
			t.Fatalf("%s: %v", name, lerr)
		}
	}
}

func TestUnionMembersShareOffsetZero(t *testing.T) {
	le := build(t, target.X86_64LinuxGNU(), raw.Decl{
		Kind: raw.DeclUnion, Name: "u", Definition: true,
		Fields: []raw.Field{
			field("c", prim("char")),
			field("d", prim("double")),
			field("i", &raw.TypeExpr{Kind: raw.TypeArray, Elem: prim("int"), Len: length(3)}),
			bits("b", "int", 3),
		},
	})
	l := mustLayout(t, le, "u")
	for _, f := range l.Fields {
		if f.Offset != 0 {
			t.Fatalf("u.%s at %d", f.Name, f.Offset)
		}
	}
	if l.Size != 16 || l.Align != 8 {
		t.Fatalf("size/align = %d/%d, want 16/8", l.Size, l.Align)
	}
}

func TestAnonymousGroupsAreHoisted(t *testing.T) {
	group := &raw.TypeExpr{Kind: raw.TypeUnion, Fields: []raw.Field{
		field("i", prim("int")),
		field("f", prim("float")),
		{Type: &raw.TypeExpr{Kind: raw.TypeStruct, Fields: []raw.Field{
			field("lo", prim("short")),
			field("hi", prim("short")),
		}}},
	}}
	le := build(t, target.X86_64LinuxGNU(), structDef("s",
		field("tag", prim("char")),
		raw.Field{Type: group},
		field("c", prim("char")),
	))
	l := mustLayout(t, le, "s")
	want := []struct {
		name   string
		offset int
	}{{"tag", 0}, {"i", 4}, {"f", 4}, {"lo", 4}, {"hi", 6}, {"c", 8}}
	if len(l.Fields) != len(want) {
		t.Fatalf("fields = %+v", l.Fields)
	}
	for i, w := range want {
		if l.Fields[i].Name != w.name || l.Fields[i].Offset != w.offset {
			t.Fatalf("field %d = %s@%d, want %s@%d", i, l.Fields[i].Name, l.Fields[i].Offset, w.name, w.offset)
		}
	}
	if l.Size != 12 || l.Align != 4 {
		t.Fatalf("size/align = %d/%d, want 12/4", l.Size, l.Align)
	}
}

func TestFlexibleArrayMembers(t *testing.T) {
	flex := func() *raw.TypeExpr { return &raw.TypeExpr{Kind: raw.TypeArray, Elem: prim("char")} }
	le := build(t, target.X86_64LinuxGNU(),
		structDef("buf", field("n", prim("int")), field("data", flex())),
		structDef("first", field("data", flex()), field("n", prim("int"))),
		structDef("nest", field("b", structRef("buf")), field("x", prim("int"))),
		raw.Decl{Kind: raw.DeclUnion, Name: "u", Definition: true, Fields: []raw.Field{field("data", flex())}},
	)
	buf := mustLayout(t, le, "buf")
	if !buf.Flexible || buf.Size != 4 || offsetOf(t, buf, "data") != 4 {
		t.Fatalf("buf = %+v", buf)
	}
	for _, name := range []string{"first", "nest", "u"} {
		_, err := le.RecordLayout(name)
		if lerr := layoutError(t, err); lerr.Kind != layout.LayoutErrFlexibleArray {
			t.Fatalf("%s: %v", name, lerr)
		}
	}
}

func TestEnumAndTypedefMembers(t *testing.T) {
	le := build(t, target.X86_64LinuxGNU(),
		raw.Decl{Kind: raw.DeclEnum, Name: "e", Definition: true, Constants: []raw.EnumConst{{Name: "A"}}},
		raw.Decl{Kind: raw.DeclEnum, Name: "small", Definition: true, Underlying: "unsigned char", Constants: []raw.EnumConst{{Name: "B"}}},
		raw.Decl{Kind: raw.DeclTypedef, Name: "u64", Type: prim("unsigned long long")},
		structDef("s",
			field("c", prim("char")),
			field("v", &raw.TypeExpr{Kind: raw.TypeEnum, Name: "e"}),
			field("w", &raw.TypeExpr{Kind: raw.TypeEnum, Name: "small"}),
			field("n", &raw.TypeExpr{Kind: raw.TypeTypedef, Name: "u64"}),
		),
	)
	l := mustLayout(t, le, "s")
	if offsetOf(t, l, "v") != 4 || offsetOf(t, l, "w") != 8 || offsetOf(t, l, "n") != 16 {
		t.Fatalf("fields = %+v", l.Fields)
	}
	if l.Size != 24 {
		t.Fatalf("size = %d, want 24", l.Size)
	}
}
