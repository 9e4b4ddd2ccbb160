package layout

import (
	"fmt"
	"math"

	"fortio.org/safecast"

	"hbind/internal/decls"
	"hbind/internal/types"
)

func incomplete(format string, args ...any) *LayoutError {
	return &LayoutError{Kind: LayoutErrIncompleteMember, Detail: fmt.Sprintf(format, args...)}
}

// valueLayout sizes a type held by value. Returned errors are always fresh
// and carry no record context; the caller fills it in.
func (e *Engine) valueLayout(id types.TypeID) (TypeLayout, *LayoutError) {
	if id == types.NoTypeID {
		return TypeLayout{}, incomplete("unresolved type")
	}
	resolved, status := types.Resolve(e.Types, id, e.tbl)
	switch status {
	case types.UndeclaredTypedef:
		return TypeLayout{}, incomplete("undeclared typedef %s", types.Label(e.Types, resolved))
	case types.CyclicTypedef:
		return TypeLayout{}, incomplete("cyclic typedef %s", types.Label(e.Types, resolved))
	}
	tt, ok := e.Types.Lookup(resolved)
	if !ok {
		return TypeLayout{}, incomplete("unknown type #%d", resolved)
	}

	switch tt.Kind {
	case types.KindPrim:
		if tt.Prim == types.PrimVoid {
			return TypeLayout{}, incomplete("void has no size")
		}
		info, ok := e.Target.Prim(tt.Prim)
		if !ok {
			return TypeLayout{}, incomplete("%s has no size on %s", tt.Prim, e.Target.Triple)
		}
		return TypeLayout{Size: info.Size, Align: info.Align}, nil

	case types.KindPointer:
		return e.ptrLayout(), nil

	case types.KindArray:
		if tt.IsIncompleteArray() {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrFlexibleArray, Detail: "array of unknown length held by value"}
		}
		el, err := e.valueLayout(tt.Elem)
		if err != nil {
			return TypeLayout{}, err
		}
		n, cerr := safecast.Conv[int](tt.Count)
		if cerr != nil || (el.Size > 0 && n > math.MaxInt/el.Size) {
			return TypeLayout{}, incomplete("array of %d elements is too large", tt.Count)
		}
		return TypeLayout{Size: el.Size * n, Align: el.Align}, nil

	case types.KindFunction:
		return TypeLayout{}, incomplete("function type %s held by value", types.Label(e.Types, resolved))

	case types.KindRecordRef:
		ent, ok := e.tbl.Lookup(decls.NSTag, tt.Name)
		if !ok || ent.Kind != decls.KindRecord {
			return TypeLayout{}, incomplete("%s %s is never declared", tt.Record, tt.Name)
		}
		if !ent.Record.Complete {
			return TypeLayout{}, incomplete("%s is never defined", ent.Subject())
		}
		l, err := e.recordLayout(tt.Name)
		if err != nil {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrIncompleteMember, Cause: err}
		}
		if l.Flexible {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrFlexibleArray, Detail: ent.Subject() + " ends in a flexible array and cannot be nested by value"}
		}
		return TypeLayout{Size: l.Size, Align: l.Align}, nil

	case types.KindEnumRef:
		p, err := e.enumPrim(tt.Name)
		if err != nil {
			return TypeLayout{}, err
		}
		info, ok := e.Target.Prim(p)
		if !ok {
			return TypeLayout{}, incomplete("%s has no size on %s", p, e.Target.Triple)
		}
		return TypeLayout{Size: info.Size, Align: info.Align}, nil
	}
	return TypeLayout{}, incomplete("%s has no layout", types.Label(e.Types, resolved))
}

func (e *Engine) enumPrim(name string) (types.Prim, *LayoutError) {
	ent, ok := e.tbl.Lookup(decls.NSTag, name)
	if !ok || ent.Kind != decls.KindEnum {
		return types.PrimInvalid, incomplete("enum %s is never declared", name)
	}
	if !ent.Enum.Complete && ent.Enum.Underlying == types.PrimInvalid {
		return types.PrimInvalid, incomplete("enum %s is never defined", name)
	}
	if ent.Enum.Underlying != types.PrimInvalid {
		return ent.Enum.Underlying, nil
	}
	return types.PrimInt, nil
}

func (e *Engine) ptrLayout() TypeLayout {
	ptrSize := e.Target.PtrSize
	ptrAlign := e.Target.PtrAlign
	if ptrSize <= 0 {
		ptrSize = 8
	}
	if ptrAlign <= 0 {
		ptrAlign = ptrSize
	}
	return TypeLayout{Size: ptrSize, Align: ptrAlign}
}

func (e *Engine) incompleteArray(id types.TypeID) (types.Type, bool) {
	resolved, status := types.Resolve(e.Types, id, e.tbl)
	if status != types.Resolved {
		return types.Type{}, false
	}
	tt, ok := e.Types.Lookup(resolved)
	if !ok || !tt.IsIncompleteArray() {
		return types.Type{}, false
	}
	return tt, true
}

// bitfieldType returns the storage unit of a bit-field's declared type and
// the widest width it admits.
func (e *Engine) bitfieldType(id types.TypeID) (TypeLayout, int, *LayoutError) {
	resolved, status := types.Resolve(e.Types, id, e.tbl)
	if status != types.Resolved {
		l, err := e.valueLayout(id)
		return l, 0, err
	}
	tt, _ := e.Types.Lookup(resolved)
	p := tt.Prim
	switch tt.Kind {
	case types.KindPrim:
		if !p.IsInteger() {
			return TypeLayout{}, 0, &LayoutError{Kind: LayoutErrBitfieldType, Detail: types.Label(e.Types, resolved)}
		}
	case types.KindEnumRef:
		var err *LayoutError
		if p, err = e.enumPrim(tt.Name); err != nil {
			return TypeLayout{}, 0, err
		}
	default:
		return TypeLayout{}, 0, &LayoutError{Kind: LayoutErrBitfieldType, Detail: types.Label(e.Types, resolved)}
	}
	info, ok := e.Target.Prim(p)
	if !ok {
		return TypeLayout{}, 0, incomplete("%s has no size on %s", p, e.Target.Triple)
	}
	maxWidth := info.Size * 8
	if p == types.PrimBool {
		maxWidth = 1
	}
	return TypeLayout{Size: info.Size, Align: info.Align}, maxWidth, nil
}

// computeRecord lays out one record entity.
func (e *Engine) computeRecord(ent *decls.Entity) (Layout, *LayoutError) {
	subject := ent.Subject()
	rec := ent.Record
	if !rec.Complete {
		return Layout{}, &LayoutError{Kind: LayoutErrIncompleteMember, Record: subject, Detail: "record is never defined"}
	}
	pack, err := e.packOf(rec, 0)
	if err != nil {
		err.Record = subject
		return Layout{}, err
	}
	b := e.newBuilder(subject, rec, pack, rec.Packed)
	if err := b.members(rec.Fields, true); err != nil {
		return Layout{}, err
	}
	l := b.finish(rec.Align)
	l.Name = ent.Name
	return l, nil
}

type builder struct {
	e        *Engine
	subject  string
	kind     types.RecordKind
	pack     int // 0 = natural alignment
	packed   bool
	fields   []FieldLayout
	bit      int // next free bit (struct)
	size     int // widest member in bytes (union)
	align    int
	flexible bool

	// MS bit-field storage unit; unitSize is 0 when none is open
	unitStart int
	unitSize  int
	unitUsed  int
}

func (e *Engine) newBuilder(subject string, rec *decls.Record, pack int, packed bool) *builder {
	return &builder{e: e, subject: subject, kind: rec.Kind, pack: pack, packed: packed, align: 1}
}

func (b *builder) fail(err *LayoutError, field string) *LayoutError {
	err.Record = b.subject
	err.Field = field
	return err
}

func (b *builder) members(fields []decls.Field, outermost bool) *LayoutError {
	for i := range fields {
		f := &fields[i]
		last := outermost && i == len(fields)-1
		var err *LayoutError
		switch {
		case f.Group != nil:
			err = b.group(f.Group)
		case f.Bitfield:
			err = b.bitfield(f)
		default:
			err = b.member(f, last)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) member(f *decls.Field, last bool) *LayoutError {
	if arr, ok := b.e.incompleteArray(f.Type); ok {
		if b.kind != types.RecordStruct || !last {
			return b.fail(&LayoutError{Kind: LayoutErrFlexibleArray, Detail: "array of unknown length must be the last member of a struct"}, f.Name)
		}
		el, err := b.e.valueLayout(arr.Elem)
		if err != nil {
			return b.fail(err, f.Name)
		}
		b.place(f.Name, f.Type, 0, el.Align)
		b.flexible = true
		return nil
	}
	tl, err := b.e.valueLayout(f.Type)
	if err != nil {
		return b.fail(err, f.Name)
	}
	b.place(f.Name, f.Type, tl.Size, tl.Align)
	return nil
}

// reserve allocates size bytes at the next offset aligned to align (after
// the pack cap) and returns the offset and effective alignment.
func (b *builder) reserve(size, align int) (int, int) {
	a := b.capAlign(align)
	b.closeUnit()
	b.align = max(b.align, a)
	if b.kind == types.RecordUnion {
		b.size = max(b.size, size)
		return 0, a
	}
	off := alignUp(bytesOf(b.bit), a)
	b.bit = (off + size) * 8
	return off, a
}

func (b *builder) place(name string, typ types.TypeID, size, align int) {
	off, a := b.reserve(size, align)
	b.fields = append(b.fields, FieldLayout{
		Name:      name,
		Type:      typ,
		Offset:    off,
		BitOffset: off * 8,
		Size:      size,
		Align:     a,
	})
}

// group lays out a C11 anonymous member as its own record and hoists its
// members, shifted by the group's offset.
func (b *builder) group(rec *decls.Record) *LayoutError {
	pack, err := b.e.packOf(rec, b.pack)
	if err != nil {
		return b.fail(err, "")
	}
	gb := b.e.newBuilder(b.subject, rec, pack, b.packed || rec.Packed)
	if err := gb.members(rec.Fields, false); err != nil {
		return err
	}
	gl := gb.finish(rec.Align)
	off, _ := b.reserve(gl.Size, gl.Align)
	for _, f := range gl.Fields {
		f.Offset += off
		f.BitOffset += off * 8
		b.fields = append(b.fields, f)
	}
	return nil
}

func (b *builder) bitfield(f *decls.Field) *LayoutError {
	tl, maxWidth, err := b.e.bitfieldType(f.Type)
	if err != nil {
		return b.fail(err, f.Name)
	}
	w := f.BitWidth
	switch {
	case w < 0:
		return b.fail(&LayoutError{Kind: LayoutErrBitfieldWidth, Value: w, Detail: "negative width"}, f.Name)
	case w > maxWidth:
		return b.fail(&LayoutError{Kind: LayoutErrBitfieldWidth, Value: w, Detail: fmt.Sprintf("exceeds the %d bits of its type", maxWidth)}, f.Name)
	case w == 0 && f.Name != "":
		return b.fail(&LayoutError{Kind: LayoutErrBitfieldWidth, Value: w, Detail: "named bit-field has zero width"}, f.Name)
	}
	if b.kind == types.RecordUnion {
		if w > 0 {
			a := b.capAlign(tl.Align)
			b.size = max(b.size, tl.Size)
			b.align = max(b.align, a)
			b.fields = append(b.fields, FieldLayout{Name: f.Name, Type: f.Type, BitWidth: w, Bitfield: true, Size: tl.Size, Align: a})
		}
		return nil
	}
	var pos int
	if b.e.msBitfields() {
		pos = b.msBitfield(f, tl, w)
	} else {
		pos = b.sysvBitfield(f, tl, w)
	}
	b.fields = append(b.fields, FieldLayout{
		Name:      f.Name,
		Type:      f.Type,
		Offset:    pos / 8,
		BitOffset: pos,
		BitWidth:  w,
		Bitfield:  true,
		Size:      tl.Size,
		Align:     b.capAlign(tl.Align),
	})
	return nil
}

func (b *builder) finish(alignAttr int) Layout {
	align := max(b.align, 1)
	if m := b.e.Target.MinRecordAlign; m > align {
		align = m
	}
	if alignAttr > align {
		align = alignAttr
	}
	size := b.size
	if b.kind != types.RecordUnion {
		size = bytesOf(b.bit)
	}
	return Layout{
		Kind:     b.kind,
		Size:     alignUp(size, align),
		Align:    align,
		Fields:   b.fields,
		Flexible: b.flexible,
	}
}

func bytesOf(bits int) int { return (bits + 7) / 8 }

func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	r := n % align
	if r == 0 {
		return n
	}
	return n + (align - r)
}

func alignDown(n, align int) int {
	if align <= 1 {
		return n
	}
	return n - n%align
}
