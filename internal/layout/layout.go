// Package layout computes the memory layout of C records for a target.
//
// Offsets follow declaration order with natural alignment, capped by
// pack(N). Bit-fields follow the target's bit-field ABI (SysV or MS).
// Members of C11 anonymous groups are hoisted into the enclosing record.
package layout

import (
	"sync"

	"hbind/internal/decls"
	"hbind/internal/target"
	"hbind/internal/types"
)

// TypeLayout is the size and alignment of a type, in bytes.
type TypeLayout struct {
	Size  int
	Align int
}

// FieldLayout places one member. For bit-fields BitOffset is the position
// of the first bit, counted from the start of the record, and Offset is
// the byte holding that bit. For other members BitOffset is Offset*8.
type FieldLayout struct {
	Name      string       `json:"name" msgpack:"name"`
	Type      types.TypeID `json:"type" msgpack:"type"`
	Offset    int          `json:"offset" msgpack:"offset"`
	BitOffset int          `json:"bit_offset" msgpack:"bit_offset"`
	BitWidth  int          `json:"bit_width,omitempty" msgpack:"bit_width,omitempty"`
	Bitfield  bool         `json:"bitfield,omitempty" msgpack:"bitfield,omitempty"`
	Size      int          `json:"size" msgpack:"size"`
	Align     int          `json:"align" msgpack:"align"`
}

// Layout is the computed layout of a struct or union.
type Layout struct {
	Name     string           `json:"name" msgpack:"name"`
	Kind     types.RecordKind `json:"kind" msgpack:"kind"`
	Size     int              `json:"size" msgpack:"size"`
	Align    int              `json:"align" msgpack:"align"`
	Fields   []FieldLayout    `json:"fields" msgpack:"fields"`
	Flexible bool             `json:"flexible,omitempty" msgpack:"flexible,omitempty"`
}

// Field returns the member with the given name.
func (l *Layout) Field(name string) (FieldLayout, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldLayout{}, false
}

// Engine computes layouts over a frozen declaration table. RecordLayout
// and LayoutOf are safe for concurrent use; each record is laid out once.
type Engine struct {
	Target *target.Target
	Types  *types.Interner

	tbl *decls.Table

	prepare   sync.Once
	recursive map[string]*LayoutError

	cache *cache
}

// New creates a layout engine for tbl on target.
func New(tgt *target.Target, typesIn *types.Interner, tbl *decls.Table) *Engine {
	return &Engine{
		Target: tgt,
		Types:  typesIn,
		tbl:    tbl,
		cache:  newCache(),
	}
}

// Prepare finds records that contain themselves by value. It runs once,
// implicitly on first use; the driver calls it before fanning out.
func (e *Engine) Prepare() {
	e.prepare.Do(func() {
		e.recursive = make(map[string]*LayoutError)
		e.markRecursive()
	})
}

// RecordLayout lays out the struct or union with the given tag.
func (e *Engine) RecordLayout(name string) (Layout, error) {
	l, err := e.recordLayout(name)
	if err != nil {
		return l, err
	}
	return l, nil
}

func (e *Engine) recordLayout(name string) (Layout, *LayoutError) {
	e.Prepare()
	ent, ok := e.tbl.Lookup(decls.NSTag, name)
	if !ok || ent.Kind != decls.KindRecord {
		return Layout{}, &LayoutError{Kind: LayoutErrIncompleteMember, Record: "struct " + name, Detail: "no such record"}
	}
	key := decls.Key(ent.Name)
	if err, ok := e.recursive[key]; ok {
		return Layout{}, err
	}
	entry := e.cache.do(key, func() cacheEntry {
		l, err := e.computeRecord(ent)
		return cacheEntry{Layout: l, Err: err}
	})
	return entry.Layout, entry.Err
}

// LayoutOf returns the size and alignment of a type used by value.
func (e *Engine) LayoutOf(t types.TypeID) (TypeLayout, error) {
	l, err := e.valueLayout(t)
	if err != nil {
		return l, err
	}
	return l, nil
}

// SizeOf returns the size of a type in bytes.
func (e *Engine) SizeOf(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Size, err
}

// AlignOf returns the alignment requirement of a type in bytes.
func (e *Engine) AlignOf(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Align, err
}

// FieldOffset returns the byte offset of a member of a record.
func (e *Engine) FieldOffset(record, field string) (int, error) {
	l, err := e.RecordLayout(record)
	if err != nil {
		return 0, err
	}
	f, ok := l.Field(field)
	if !ok {
		return 0, &LayoutError{Kind: LayoutErrIncompleteMember, Record: l.Kind.String() + " " + record, Field: field, Detail: "no such member"}
	}
	return f.Offset, nil
}

// Cached reports how many record layouts have been computed.
func (e *Engine) Cached() int { return e.cache.len() }

const (
	unvisited = iota
	visiting
	done
)

// markRecursive walks by-value containment between complete records. Each
// cycle gets at least one member marked, which stops recursion in
// computeRecord; records that contain a cycle fail with an incomplete
// member when they reach a marked one.
func (e *Engine) markRecursive() {
	state := make(map[string]int)
	subjects := make(map[string]string)
	var stack []string
	var visit func(ent *decls.Entity)
	visit = func(ent *decls.Entity) {
		key := decls.Key(ent.Name)
		state[key] = visiting
		subjects[key] = ent.Subject()
		stack = append(stack, key)
		for _, dep := range e.byValueRecords(ent.Record) {
			next, ok := e.tbl.Lookup(decls.NSTag, dep)
			if !ok || next.Kind != decls.KindRecord || !next.Record.Complete {
				continue
			}
			depKey := decls.Key(next.Name)
			switch state[depKey] {
			case unvisited:
				visit(next)
			case visiting:
				start := len(stack) - 1
				for start > 0 && stack[start] != depKey {
					start--
				}
				cycle := make([]string, 0, len(stack)-start+1)
				for _, k := range stack[start:] {
					cycle = append(cycle, subjects[k])
				}
				cycle = append(cycle, subjects[depKey])
				for _, k := range stack[start:] {
					if _, marked := e.recursive[k]; !marked {
						e.recursive[k] = &LayoutError{Kind: LayoutErrRecursive, Record: subjects[k], Cycle: cycle}
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[key] = done
	}
	for _, ent := range e.tbl.Entities() {
		if ent.Kind != decls.KindRecord || !ent.Record.Complete || ent.Name == "" {
			continue
		}
		if state[decls.Key(ent.Name)] == unvisited {
			visit(ent)
		}
	}
}

// byValueRecords lists the tags a record holds by value, groups included.
func (e *Engine) byValueRecords(rec *decls.Record) []string {
	var out []string
	for _, f := range rec.Fields {
		if f.Group != nil {
			out = append(out, e.byValueRecords(f.Group)...)
			continue
		}
		id := f.Type
		for {
			resolved, status := types.Resolve(e.Types, id, e.tbl)
			if status != types.Resolved {
				break
			}
			t, ok := e.Types.Lookup(resolved)
			if !ok {
				break
			}
			if t.Kind == types.KindArray {
				id = t.Elem
				continue
			}
			if t.Kind == types.KindRecordRef {
				out = append(out, t.Name)
			}
			break
		}
	}
	return out
}
