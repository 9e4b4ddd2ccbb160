// Package testkit checks structural invariants of a finished run. Tests and
// fuzz harnesses call it on every result they produce.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"hbind/internal/classify"
	"hbind/internal/decls"
	"hbind/internal/driver"
	"hbind/internal/layout"
)

// CheckResultInvariants runs a minimal set of invariants on res:
// 1) the table is frozen and every entity has a result, in id order
// 2) record layouts are aligned and every member fits inside the record
// 3) supported entities carry what a generator needs (layout, constant)
// 4) skipped entities say why
func CheckResultInvariants(res *driver.Result) error {
	if res == nil || res.Table == nil {
		return fmt.Errorf("nil result or table")
	}
	if !res.Table.Frozen() {
		return fmt.Errorf("table is not frozen")
	}
	if len(res.Entities) != res.Table.Len() {
		return fmt.Errorf("%d results for %d entities", len(res.Entities), res.Table.Len())
	}

	var prev decls.EntityID
	for i := range res.Entities {
		e := &res.Entities[i]
		if i > 0 && e.ID <= prev {
			return fmt.Errorf("%s: id %d after %d", e.Subject, e.ID, prev)
		}
		prev = e.ID
		if e.Layout != nil {
			if err := checkLayout(e.Layout); err != nil {
				return fmt.Errorf("%s: %w", e.Subject, err)
			}
		}
		if err := checkClass(res, e); err != nil {
			return fmt.Errorf("%s: %w", e.Subject, err)
		}
	}

	if res.Diagnostics != nil && res.Diagnostics.Len() > int(res.Diagnostics.Cap()) {
		return fmt.Errorf("bag holds %d diagnostics over its cap %d", res.Diagnostics.Len(), res.Diagnostics.Cap())
	}
	return nil
}

func checkLayout(l *layout.Layout) error {
	if l.Align <= 0 || l.Align&(l.Align-1) != 0 {
		return fmt.Errorf("alignment %d is not a power of two", l.Align)
	}
	if l.Size%l.Align != 0 {
		return fmt.Errorf("size %d is not a multiple of alignment %d", l.Size, l.Align)
	}
	sizeBits, err := safecast.Conv[int64](l.Size)
	if err != nil {
		return fmt.Errorf("size overflow: %w", err)
	}
	sizeBits *= 8
	for _, f := range l.Fields {
		var end int64
		if f.Bitfield {
			end = int64(f.BitOffset) + int64(f.BitWidth)
		} else {
			end = (int64(f.Offset) + int64(f.Size)) * 8
		}
		if f.Offset < 0 || end > sizeBits {
			return fmt.Errorf("member %s ends at bit %d past size %d", f.Name, end, l.Size)
		}
	}
	return nil
}

func checkClass(res *driver.Result, e *driver.EntityResult) error {
	switch e.Class.Tag {
	case classify.Supported:
		switch e.Kind {
		case decls.KindRecord:
			ent := res.Table.Entity(e.ID)
			if ent != nil && ent.Complete() && e.Layout == nil {
				return fmt.Errorf("supported complete record has no layout")
			}
		case decls.KindMacro:
			if e.Const == nil {
				return fmt.Errorf("supported macro has no value")
			}
		}
	case classify.Unsupported, classify.Undeclared:
		if e.Class.Reason == "" {
			return fmt.Errorf("%s without a reason", e.Class.Tag)
		}
	}
	return nil
}
