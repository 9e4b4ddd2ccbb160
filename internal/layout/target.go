package layout

import (
	"hbind/internal/decls"
	"hbind/internal/target"
)

// packOf returns the pack value in effect for rec: packed means pack(1),
// an explicit pack(N) wins over the inherited one, and the target default
// applies last. 0 means natural alignment.
func (e *Engine) packOf(rec *decls.Record, inherited int) (int, *LayoutError) {
	if rec.Align != 0 && !target.IsPow2(rec.Align) {
		return 0, &LayoutError{Kind: LayoutErrUnrepresentablePacking, Detail: "align", Value: rec.Align}
	}
	switch {
	case rec.Packed:
		return 1, nil
	case rec.Pack != 0:
		if !target.IsPow2(rec.Pack) {
			return 0, &LayoutError{Kind: LayoutErrUnrepresentablePacking, Detail: "pack", Value: rec.Pack}
		}
		return rec.Pack, nil
	case inherited != 0:
		return inherited, nil
	}
	return e.Target.DefaultPack, nil
}

func (b *builder) capAlign(natural int) int {
	a := max(natural, 1)
	if b.pack > 0 && a > b.pack {
		a = b.pack
	}
	return a
}

func (e *Engine) msBitfields() bool { return e.Target.Bitfields == target.BitfieldMS }

// sysvBitfield follows the System V convention: a bit-field shares the
// storage unit of its declared type while it fits; one that would straddle
// a unit boundary moves to the next boundary. Under packed it never moves.
// A zero-width bit-field aligns the next field to its type. Unnamed
// bit-fields do not raise the record alignment.
func (b *builder) sysvBitfield(f *decls.Field, tl TypeLayout, w int) int {
	a := b.capAlign(tl.Align)
	if w == 0 {
		b.bit = alignUp(b.bit, a*8)
		return b.bit
	}
	if !b.packed {
		start := alignDown(b.bit, a*8)
		if b.bit+w > start+tl.Size*8 {
			b.bit = alignUp(b.bit, a*8)
		}
	}
	pos := b.bit
	b.bit += w
	if f.Name != "" {
		b.align = max(b.align, a)
	}
	return pos
}

// msBitfield follows the Microsoft convention: a run of bit-fields shares a
// storage unit only while the declared type size stays the same and the
// bits fit; the whole unit is reserved when it opens. A zero-width
// bit-field closes the open unit.
func (b *builder) msBitfield(_ *decls.Field, tl TypeLayout, w int) int {
	a := b.capAlign(tl.Align)
	if w == 0 {
		b.closeUnit()
		return b.bit
	}
	if b.unitSize == tl.Size && b.unitUsed+w <= tl.Size*8 {
		pos := b.unitStart + b.unitUsed
		b.unitUsed += w
		return pos
	}
	b.closeUnit()
	off := alignUp(bytesOf(b.bit), a)
	b.unitStart = off * 8
	b.unitSize = tl.Size
	b.unitUsed = w
	b.bit = b.unitStart + tl.Size*8
	b.align = max(b.align, a)
	return b.unitStart
}

func (b *builder) closeUnit() {
	b.unitSize = 0
	b.unitUsed = 0
}
