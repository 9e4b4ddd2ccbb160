package decls

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"

	"hbind/internal/raw"
	"hbind/internal/source"
	"hbind/internal/types"
)

// Table is the canonical store of a translation unit's declarations.
//
// The table is populated by Merge, named by AssignName, resolved by
// ResolveTypes and then frozen. After Freeze it is only read and may be
// shared by concurrent passes.
type Table struct {
	fs       *source.FileSet
	entities []*Entity // index 0 reserved for NoEntityID
	names    map[Namespace]map[string]EntityID
	anon     map[*raw.TypeExpr]EntityID
	frozen   bool
}

// New creates an empty table. Source positions are registered in fs; a nil
// fs gets a private FileSet.
func New(fs *source.FileSet) *Table {
	if fs == nil {
		fs = source.NewFileSet()
	}
	return &Table{
		fs:       fs,
		entities: make([]*Entity, 1, 64),
		names: map[Namespace]map[string]EntityID{
			NSTag:      make(map[string]EntityID),
			NSOrdinary: make(map[string]EntityID),
			NSMacro:    make(map[string]EntityID),
		},
		anon: make(map[*raw.TypeExpr]EntityID),
	}
}

// Key normalizes an identifier for lookups (NFC).
func Key(name string) string {
	return norm.NFC.String(name)
}

// FileSet returns the file set positions are registered in.
func (t *Table) FileSet() *source.FileSet { return t.fs }

// Freeze ends the mutation phase.
func (t *Table) Freeze() { t.frozen = true }

// Frozen reports whether Freeze was called.
func (t *Table) Frozen() bool { return t.frozen }

// Len returns the number of entities.
func (t *Table) Len() int { return len(t.entities) - 1 }

// Entity returns the entity with the given id or nil.
func (t *Table) Entity(id EntityID) *Entity {
	if id == NoEntityID || int(id) >= len(t.entities) {
		return nil
	}
	return t.entities[id]
}

// Entities returns all entities in creation order.
func (t *Table) Entities() []*Entity {
	return t.entities[1:]
}

// Lookup finds a named entity in a namespace.
func (t *Table) Lookup(ns Namespace, name string) (*Entity, bool) {
	id, ok := t.names[ns][Key(name)]
	if !ok {
		return nil, false
	}
	return t.entities[id], true
}

// HasTag reports whether name is taken in the tag namespace.
func (t *Table) HasTag(name string) bool {
	_, ok := t.names[NSTag][Key(name)]
	return ok
}

// AnonymousFor returns the entity created for an anonymous struct, union or
// enum body.
func (t *Table) AnonymousFor(x *raw.TypeExpr) (EntityID, bool) {
	id, ok := t.anon[x]
	return id, ok
}

// AssignName gives an anonymous entity its synthetic name and enters it
// into the tag namespace.
func (t *Table) AssignName(id EntityID, name string) error {
	if t.frozen {
		return ErrFrozen
	}
	e := t.Entity(id)
	if e == nil || !e.Anonymous {
		return fmt.Errorf("entity %d is not anonymous", id)
	}
	if e.Name != "" {
		if e.Name == name {
			return nil
		}
		return fmt.Errorf("entity %d already named %q", id, e.Name)
	}
	key := Key(name)
	if prev, taken := t.names[NSTag][key]; taken {
		return fmt.Errorf("synthetic name %q already used by %s", name, t.entities[prev].Subject())
	}
	e.Name = name
	t.names[NSTag][key] = id
	return nil
}

// TypedefTarget implements types.TypedefResolver over resolved typedefs.
func (t *Table) TypedefTarget(name string) (types.TypeID, bool) {
	e, ok := t.Lookup(NSOrdinary, name)
	if !ok || e.Kind != KindTypedef || e.Typedef.Aliased == types.NoTypeID {
		return types.NoTypeID, false
	}
	return e.Typedef.Aliased, true
}

// Loc converts a front-end position.
func (t *Table) Loc(p raw.Pos) source.Loc {
	if p.File == "" {
		return source.Loc{}
	}
	line, err := safecast.Conv[uint32](p.Line)
	if err != nil {
		line = 0
	}
	col, err := safecast.Conv[uint32](p.Col)
	if err != nil {
		col = 0
	}
	return source.Loc{File: t.fs.Add(p.File), Line: line, Col: col}
}

func (t *Table) newEntity(kind Kind, name string, loc source.Loc) *Entity {
	n, err := safecast.Conv[uint32](len(t.entities))
	if err != nil {
		panic(fmt.Errorf("entity count overflow: %w", err))
	}
	e := &Entity{
		ID:   EntityID(n),
		Kind: kind,
		NS:   kind.Namespace(),
		Name: name,
		Loc:  loc,
	}
	t.entities = append(t.entities, e)
	return e
}

// insert creates a named entity and registers it in its namespace.
func (t *Table) insert(kind Kind, name string, loc source.Loc) *Entity {
	e := t.newEntity(kind, name, loc)
	t.names[e.NS][Key(name)] = e.ID
	return e
}

func (t *Table) conflict(e *Entity, kind ConflictKind, incoming string, loc source.Loc, detail string) *ConflictError {
	err := &ConflictError{
		Kind:     kind,
		Name:     e.Name,
		NS:       e.NS,
		Existing: e.kindWord(),
		Incoming: incoming,
		Loc:      loc,
		Prev:     e.Loc,
		Detail:   detail,
	}
	e.Conflicts = append(e.Conflicts, err)
	return err
}

// Conflicts returns every recorded conflict in entity order.
func (t *Table) Conflicts() []*ConflictError {
	var out []*ConflictError
	for _, e := range t.Entities() {
		out = append(out, e.Conflicts...)
	}
	return out
}

func normalizeMacro(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
