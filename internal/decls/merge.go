package decls

import (
	"fmt"

	"hbind/internal/raw"
	"hbind/internal/types"
)

// Merge adds one raw declaration to the table.
//
// A declaration compatible with what the table already holds is folded into
// the existing entity. An incompatible one is rejected: the entity keeps its
// first state, the conflict is recorded on it and returned as *ConflictError.
// The returned id is the entity the declaration was merged into or rejected
// by.
func (t *Table) Merge(d raw.Decl) (EntityID, error) {
	if t.frozen {
		return NoEntityID, ErrFrozen
	}
	switch d.Kind {
	case raw.DeclStruct, raw.DeclUnion:
		return t.mergeRecord(&d)
	case raw.DeclEnum:
		return t.mergeEnum(&d)
	case raw.DeclTypedef:
		return t.mergeTypedef(&d)
	case raw.DeclFunction:
		return t.mergeFunction(&d)
	case raw.DeclVariable:
		return t.mergeVariable(&d)
	case raw.DeclMacro:
		return t.mergeMacro(&d)
	default:
		return NoEntityID, fmt.Errorf("%s: unknown declaration kind %q", d.Subject(), d.Kind)
	}
}

func recordKind(k raw.DeclKind) types.RecordKind {
	if k == raw.DeclUnion {
		return types.RecordUnion
	}
	return types.RecordStruct
}

func (t *Table) mergeRecord(d *raw.Decl) (EntityID, error) {
	kind := recordKind(d.Kind)
	loc := t.Loc(d.Pos)
	if d.Name == "" {
		// struct { ... }; without a declarator
		e := t.newEntity(KindRecord, "", loc)
		e.Anonymous = true
		e.Record = &Record{Kind: kind}
		t.defineRecord(e.Record, d.Fields, d.Pack, d.Packed, d.Align)
		return e.ID, nil
	}
	id, ok := t.names[NSTag][Key(d.Name)]
	if !ok {
		e := t.insert(KindRecord, d.Name, loc)
		e.Record = &Record{Kind: kind}
		if d.Definition {
			t.defineRecord(e.Record, d.Fields, d.Pack, d.Packed, d.Align)
		}
		return e.ID, nil
	}
	e := t.entities[id]
	if e.Kind != KindRecord || e.Record.Kind != kind {
		return id, t.conflict(e, ConflictIncompatibleRedeclaration, kind.String(), loc, "")
	}
	if !d.Definition {
		return id, nil
	}
	if !e.Record.Complete {
		t.defineRecord(e.Record, d.Fields, d.Pack, d.Packed, d.Align)
		e.Loc = loc
		return id, nil
	}
	if e.Record.body == t.recordBody(d.Fields, d.Pack, d.Packed, d.Align) {
		return id, nil
	}
	return id, t.conflict(e, ConflictRedefinition, kind.String(), loc, "")
}

func (t *Table) defineRecord(r *Record, fields []raw.Field, pack int, packed bool, align int) {
	r.Complete = true
	r.Pack = pack
	r.Packed = packed
	r.Align = align
	r.body = t.recordBody(fields, pack, packed, align)
	r.Fields = t.buildFields(fields)
}

func (t *Table) buildFields(fields []raw.Field) []Field {
	out := make([]Field, 0, len(fields))
	for i := range fields {
		f := &fields[i]
		nf := Field{Name: f.Name, Raw: f.Type, Loc: t.Loc(f.Pos)}
		if f.Bits != nil {
			nf.Bitfield = true
			nf.BitWidth = *f.Bits
		}
		if isGroup(f) {
			g := &Record{Kind: recordKind(raw.DeclKind(f.Type.Kind))}
			t.defineRecord(g, f.Type.Fields, f.Type.Pack, f.Type.Packed, f.Type.Align)
			nf.Group = g
		} else {
			t.adopt(f.Type)
		}
		out = append(out, nf)
	}
	return out
}

// isGroup reports a C11 anonymous member: no name, no width, anonymous body.
func isGroup(f *raw.Field) bool {
	return f.Name == "" && f.Bits == nil && f.Type != nil &&
		(f.Type.Kind == raw.TypeStruct || f.Type.Kind == raw.TypeUnion) &&
		f.Type.Name == "" && f.Type.HasBody()
}

// adopt walks a type expression accepted into the table: named tag bodies
// are lifted to their own entities, anonymous bodies get an unnamed entity
// for the namer.
func (t *Table) adopt(x *raw.TypeExpr) {
	if x == nil {
		return
	}
	switch x.Kind {
	case raw.TypePointer, raw.TypeArray:
		t.adopt(x.Elem)
	case raw.TypeFunction:
		for i := range x.Params {
			t.adopt(x.Params[i].Type)
		}
		t.adopt(x.Result)
	case raw.TypeStruct, raw.TypeUnion, raw.TypeEnum:
		if !x.HasBody() {
			return
		}
		if x.Name != "" {
			t.liftNested(x)
			return
		}
		t.anonymous(x)
	}
}

// liftTags lifts the named tag bodies of a type expression that merged
// into an existing entity. The entity keeps its first expression, so the
// anonymous bodies of the incoming one are walked but never adopted.
func (t *Table) liftTags(x *raw.TypeExpr) {
	if x == nil {
		return
	}
	switch x.Kind {
	case raw.TypePointer, raw.TypeArray:
		t.liftTags(x.Elem)
	case raw.TypeFunction:
		for i := range x.Params {
			t.liftTags(x.Params[i].Type)
		}
		t.liftTags(x.Result)
	case raw.TypeStruct, raw.TypeUnion, raw.TypeEnum:
		if !x.HasBody() {
			return
		}
		if x.Name != "" {
			t.liftNested(x)
			return
		}
		for i := range x.Fields {
			t.liftTags(x.Fields[i].Type)
		}
	}
}

// liftNested merges "struct inner { ... }" found inside another declaration
// as a top-level tag definition.
func (t *Table) liftNested(x *raw.TypeExpr) {
	d := raw.Decl{
		Kind:       raw.DeclKind(x.Kind),
		Name:       x.Name,
		Pos:        x.Pos,
		Fields:     x.Fields,
		Pack:       x.Pack,
		Packed:     x.Packed,
		Align:      x.Align,
		Constants:  x.Constants,
		Definition: true,
	}
	_, existed := t.names[NSTag][Key(x.Name)]
	// Conflicts stay recorded on the entity that rejected the body.
	var id EntityID
	if d.Kind == raw.DeclEnum {
		id, _ = t.mergeEnum(&d)
	} else {
		id, _ = t.mergeRecord(&d)
	}
	if !existed {
		t.entities[id].Nested = true
	}
}

func (t *Table) anonymous(x *raw.TypeExpr) EntityID {
	if id, ok := t.anon[x]; ok {
		return id
	}
	loc := t.Loc(x.Pos)
	var e *Entity
	if x.Kind == raw.TypeEnum {
		e = t.newEntity(KindEnum, "", loc)
		e.Enum = &Enum{}
		t.anon[x] = e.ID
		t.defineEnum(e, x.Constants, "")
	} else {
		e = t.newEntity(KindRecord, "", loc)
		e.Record = &Record{Kind: recordKind(raw.DeclKind(x.Kind))}
		t.anon[x] = e.ID
		t.defineRecord(e.Record, x.Fields, x.Pack, x.Packed, x.Align)
	}
	e.Anonymous = true
	e.Nested = true
	return e.ID
}

func (t *Table) mergeEnum(d *raw.Decl) (EntityID, error) {
	loc := t.Loc(d.Pos)
	if d.Name == "" {
		e := t.newEntity(KindEnum, "", loc)
		e.Anonymous = true
		e.Enum = &Enum{}
		t.defineEnum(e, d.Constants, d.Underlying)
		return e.ID, nil
	}
	id, ok := t.names[NSTag][Key(d.Name)]
	if !ok {
		e := t.insert(KindEnum, d.Name, loc)
		e.Enum = &Enum{}
		if d.Definition || d.Constants != nil {
			t.defineEnum(e, d.Constants, d.Underlying)
		}
		return e.ID, nil
	}
	e := t.entities[id]
	if e.Kind != KindEnum {
		return id, t.conflict(e, ConflictIncompatibleRedeclaration, "enum", loc, "")
	}
	if !d.Definition && d.Constants == nil {
		return id, nil
	}
	if !e.Enum.Complete {
		t.defineEnum(e, d.Constants, d.Underlying)
		e.Loc = loc
		return id, nil
	}
	if e.Enum.body == enumBody(d.Constants, d.Underlying) {
		return id, nil
	}
	return id, t.conflict(e, ConflictRedefinition, "enum", loc, "")
}

// defineEnum attaches the body and lifts every enumerator into the ordinary
// namespace. Implicit values continue from the previous one, starting at 0.
func (t *Table) defineEnum(e *Entity, consts []raw.EnumConst, underlying string) {
	e.Enum.Complete = true
	e.Enum.body = enumBody(consts, underlying)
	if underlying != "" {
		if p, ok := types.ParsePrim(underlying); ok {
			e.Enum.Underlying = p
		}
	}
	next := int64(0)
	for i := range consts {
		c := &consts[i]
		v := next
		if c.Value != nil {
			v = *c.Value
		}
		next = v + 1
		if id, ok := t.liftConstant(e, c, v); ok {
			e.Enum.Constants = append(e.Enum.Constants, id)
		}
	}
}

func (t *Table) liftConstant(owner *Entity, c *raw.EnumConst, v int64) (EntityID, bool) {
	loc := t.Loc(c.Pos)
	if !loc.IsValid() {
		loc = owner.Loc
	}
	if id, ok := t.names[NSOrdinary][Key(c.Name)]; ok {
		prev := t.entities[id]
		if prev.Kind == KindEnumConstant && prev.Constant.Value == v {
			return id, true
		}
		kind := ConflictIncompatibleRedeclaration
		if prev.Kind == KindEnumConstant {
			kind = ConflictRedefinition
		}
		t.conflict(prev, kind, KindEnumConstant.String(), loc, "")
		return NoEntityID, false
	}
	e := t.insert(KindEnumConstant, c.Name, loc)
	e.Constant = &EnumConstant{Value: v, Enum: owner.ID}
	return e.ID, true
}

func (t *Table) mergeTypedef(d *raw.Decl) (EntityID, error) {
	loc := t.Loc(d.Pos)
	id, ok := t.names[NSOrdinary][Key(d.Name)]
	if !ok {
		e := t.insert(KindTypedef, d.Name, loc)
		e.Typedef = &Typedef{Raw: d.Type}
		t.adopt(d.Type)
		return e.ID, nil
	}
	e := t.entities[id]
	if e.Kind != KindTypedef {
		return id, t.conflict(e, ConflictIncompatibleRedeclaration, "typedef", loc, "")
	}
	if t.Canon(e.Typedef.Raw) == t.Canon(d.Type) {
		// typedef struct S T; then typedef struct S { ... } T;
		t.liftTags(d.Type)
		return id, nil
	}
	return id, t.conflict(e, ConflictIncompatibleType, "typedef", loc, t.mismatch(e.Typedef.Raw, d.Type))
}

func (t *Table) mergeFunction(d *raw.Decl) (EntityID, error) {
	loc := t.Loc(d.Pos)
	id, ok := t.names[NSOrdinary][Key(d.Name)]
	if !ok {
		e := t.insert(KindFunction, d.Name, loc)
		e.Function = &Function{Raw: d.Type, Params: paramNames(d.Type), Defined: d.Definition}
		t.adopt(d.Type)
		return e.ID, nil
	}
	e := t.entities[id]
	if e.Kind != KindFunction {
		return id, t.conflict(e, ConflictIncompatibleRedeclaration, "function", loc, "")
	}
	if t.Canon(e.Function.Raw) != t.Canon(d.Type) {
		return id, t.conflict(e, ConflictIncompatibleType, "function", loc, t.mismatch(e.Function.Raw, d.Type))
	}
	if d.Definition {
		if e.Function.Defined {
			return id, t.conflict(e, ConflictRedefinition, "function", loc, "")
		}
		e.Function.Defined = true
		e.Loc = loc
	}
	// The first name given to a parameter wins; later ones only fill gaps.
	for i, name := range paramNames(d.Type) {
		if i < len(e.Function.Params) && e.Function.Params[i] == "" {
			e.Function.Params[i] = name
		}
	}
	t.liftTags(d.Type)
	return id, nil
}

func paramNames(fn *raw.TypeExpr) []string {
	if fn == nil {
		return nil
	}
	names := make([]string, len(fn.Params))
	for i := range fn.Params {
		names[i] = fn.Params[i].Name
	}
	return names
}

func (t *Table) mergeVariable(d *raw.Decl) (EntityID, error) {
	loc := t.Loc(d.Pos)
	id, ok := t.names[NSOrdinary][Key(d.Name)]
	if !ok {
		e := t.insert(KindVariable, d.Name, loc)
		e.Variable = &Variable{Raw: d.Type, Extern: d.Extern}
		t.adopt(d.Type)
		return e.ID, nil
	}
	e := t.entities[id]
	if e.Kind != KindVariable {
		return id, t.conflict(e, ConflictIncompatibleRedeclaration, "variable", loc, "")
	}
	v := e.Variable
	switch {
	case t.Canon(v.Raw) == t.Canon(d.Type):
	case t.compositeArray(v.Raw, d.Type):
		// extern int tbl[]; then int tbl[16];
		// Only the length is taken: bodies adopted for the first element
		// expression must stay reachable from the variable.
		if v.Raw.Len == nil {
			merged := *v.Raw
			merged.Len = d.Type.Len
			v.Raw = &merged
		}
	default:
		return id, t.conflict(e, ConflictIncompatibleType, "variable", loc, t.mismatch(v.Raw, d.Type))
	}
	t.liftTags(d.Type)
	if !d.Extern && v.Extern {
		v.Extern = false
		e.Loc = loc
	}
	return id, nil
}

// compositeArray reports T[] against T[N].
func (t *Table) compositeArray(a, b *raw.TypeExpr) bool {
	if a == nil || b == nil || a.Kind != raw.TypeArray || b.Kind != raw.TypeArray {
		return false
	}
	if (a.Len == nil) == (b.Len == nil) {
		return false
	}
	return a.Const == b.Const && a.Volatile == b.Volatile && t.Canon(a.Elem) == t.Canon(b.Elem)
}

func (t *Table) mergeMacro(d *raw.Decl) (EntityID, error) {
	loc := t.Loc(d.Pos)
	text := d.MacroText()
	id, ok := t.names[NSMacro][Key(d.Name)]
	if !ok {
		e := t.insert(KindMacro, d.Name, loc)
		e.Macro = &Macro{Text: text, FunctionLike: d.FunctionLike}
		return e.ID, nil
	}
	e := t.entities[id]
	if e.Macro.FunctionLike == d.FunctionLike && normalizeMacro(e.Macro.Text) == normalizeMacro(text) {
		return id, nil
	}
	return id, t.conflict(e, ConflictRedefinition, "macro", loc, "")
}

func (t *Table) mismatch(a, b *raw.TypeExpr) string {
	return fmt.Sprintf("%s vs %s", Spell(a), Spell(b))
}
