// Package classify decides which declarations a binding generator can
// represent.
//
// A declaration is Unsupported when its type, or anything it holds by value
// or passes through a function pointer, has no stable binding: 128-bit
// integers, long double (unless the target maps it to double), __float128,
// __fp16, char16_t, wchar_t, variadic function pointers with declared
// parameters, and function types used as values. It is Undeclared when it
// holds by value a tag or typedef that was never defined. Pointers to data
// are opaque handles and are never followed. Taint moves upward: a record
// holding an unsupported record is itself Unsupported.
package classify

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/puzpuzpuz/xsync"
	"golang.org/x/sync/singleflight"

	"hbind/internal/decls"
	"hbind/internal/layout"
	"hbind/internal/macro"
	"hbind/internal/target"
	"hbind/internal/types"
)

// Tag is the outcome of classification.
type Tag uint8

const (
	Supported Tag = iota
	Unsupported
	Undeclared
)

func (t Tag) String() string {
	switch t {
	case Supported:
		return "supported"
	case Unsupported:
		return "unsupported"
	case Undeclared:
		return "undeclared"
	default:
		return fmt.Sprintf("Tag(%d)", t)
	}
}

// Classification is the tag of one entity with a human-readable reason.
type Classification struct {
	Tag     Tag    `json:"tag" msgpack:"tag"`
	Reason  string `json:"reason,omitempty" msgpack:"reason,omitempty"`
	Typedef string `json:"typedef,omitempty" msgpack:"typedef,omitempty"` // undeclared typedef behind the tag
	Opaque  bool   `json:"opaque,omitempty" msgpack:"opaque,omitempty"`   // tag declared but never defined
}

// Message renders the diagnostic text for subject.
func (c Classification) Message(subject string) string {
	switch c.Tag {
	case Unsupported:
		return fmt.Sprintf("skipping %s: unsupported type usage: %s", subject, c.Reason)
	case Undeclared:
		return fmt.Sprintf("skipping %s: incomplete type usage: %s", subject, c.Reason)
	}
	return subject + ": supported"
}

func unsupported(format string, args ...any) Classification {
	return Classification{Tag: Unsupported, Reason: fmt.Sprintf(format, args...)}
}

func undeclared(format string, args ...any) Classification {
	return Classification{Tag: Undeclared, Reason: fmt.Sprintf(format, args...)}
}

// taint prefixes the reason of a failed check with where it was found.
func taint(cl Classification, where string) Classification {
	cl.Reason = where + ": " + cl.Reason
	return cl
}

// Layouts is the part of the layout engine the classifier consults.
type Layouts interface {
	RecordLayout(name string) (layout.Layout, error)
}

// Constants is the part of the macro evaluator the classifier consults.
type Constants interface {
	Evaluate(name string) (macro.Value, error)
}

// Classifier tags entities of a frozen, laid-out table. Classify is safe
// for concurrent use; each entity is classified once.
type Classifier struct {
	tbl     *decls.Table
	in      *types.Interner
	tgt     *target.Target
	layouts Layouts
	consts  Constants

	prepare sync.Once
	scc     map[decls.EntityID]int
	members [][]decls.EntityID

	mu    xsync.RBMutex
	memo  map[decls.EntityID]Classification
	group singleflight.Group
}

// New returns a classifier. layouts and consts may be nil, in which case
// layout failures and macro values are not consulted.
func New(tbl *decls.Table, in *types.Interner, tgt *target.Target, layouts Layouts, consts Constants) *Classifier {
	return &Classifier{
		tbl:     tbl,
		in:      in,
		tgt:     tgt,
		layouts: layouts,
		consts:  consts,
		memo:    make(map[decls.EntityID]Classification),
	}
}

// Prepare groups records that reach each other by value or through
// function pointers, so that Classify never waits on itself.
func (c *Classifier) Prepare() {
	c.prepare.Do(c.components)
}

// Classify returns the classification of entity id.
func (c *Classifier) Classify(id decls.EntityID) Classification {
	c.Prepare()
	if cl, ok := c.lookup(id); ok {
		return cl
	}
	key := strconv.FormatUint(uint64(id), 10)
	v, _, _ := c.group.Do(key, func() (any, error) {
		if cl, ok := c.lookup(id); ok {
			return cl, nil
		}
		cl := c.compute(c.tbl.Entity(id))
		c.mu.Lock()
		c.memo[id] = cl
		c.mu.Unlock()
		return cl, nil
	})
	return v.(Classification)
}

func (c *Classifier) lookup(id decls.EntityID) (Classification, bool) {
	tk := c.mu.RLock()
	cl, ok := c.memo[id]
	c.mu.RUnlock(tk)
	return cl, ok
}

func (c *Classifier) compute(ent *decls.Entity) Classification {
	if ent == nil {
		return undeclared("no such entity")
	}
	if ent.Invalid != nil {
		return unsupported("invalid declaration: %v", ent.Invalid)
	}
	switch ent.Kind {
	case decls.KindRecord:
		return c.record(ent)
	case decls.KindEnum:
		if !ent.Enum.Complete && ent.Enum.Underlying == types.PrimInvalid {
			return Classification{Tag: Supported, Reason: "never defined", Opaque: true}
		}
		if ent.Enum.Underlying != types.PrimInvalid {
			if cl := c.prim(ent.Enum.Underlying); cl.Tag != Supported {
				return taint(cl, "underlying type")
			}
		}
		return Classification{}
	case decls.KindTypedef:
		return c.typedef(ent)
	case decls.KindFunction:
		return c.function(ent.Function.Signature, false, 0)
	case decls.KindVariable:
		return c.checkType(ent.Variable.Type, 0)
	case decls.KindMacro:
		return c.macro(ent)
	case decls.KindEnumConstant:
		if owner := c.Classify(ent.Constant.Enum); owner.Tag != Supported {
			return taint(Classification{Tag: Unsupported, Reason: owner.Reason}, c.tbl.Entity(ent.Constant.Enum).Subject())
		}
		return Classification{}
	}
	return Classification{}
}

func (c *Classifier) record(ent *decls.Entity) Classification {
	if !ent.Record.Complete {
		return Classification{Tag: Supported, Reason: "never defined", Opaque: true}
	}
	if cl := c.recordBody(ent); cl.Tag != Supported {
		return cl
	}
	scc := c.scc[ent.ID]
	for _, other := range c.members[scc] {
		if other == ent.ID {
			continue
		}
		peer := c.tbl.Entity(other)
		if cl := c.recordBody(peer); cl.Tag != Supported {
			return Classification{Tag: Unsupported, Reason: peer.Subject() + " (" + cl.Reason + ")", Typedef: cl.Typedef}
		}
	}
	return Classification{}
}

// recordBody checks the members of one record, then its layout.
func (c *Classifier) recordBody(ent *decls.Entity) Classification {
	if cl := c.fields(ent.Record.Fields, c.scc[ent.ID]); cl.Tag != Supported {
		return cl
	}
	if c.layouts != nil {
		if _, err := c.layouts.RecordLayout(ent.Name); err != nil {
			var lerr *layout.LayoutError
			if errors.As(err, &lerr) {
				return unsupported("no layout: %s", lerr.Root().Kind)
			}
			return unsupported("no layout: %v", err)
		}
	}
	return Classification{}
}

func (c *Classifier) fields(fields []decls.Field, scc int) Classification {
	for i := range fields {
		f := &fields[i]
		if f.Group != nil {
			if cl := c.fields(f.Group.Fields, scc); cl.Tag != Supported {
				return cl
			}
			continue
		}
		if cl := c.checkType(f.Type, scc); cl.Tag != Supported {
			name := f.Name
			if name == "" {
				name = "<unnamed>"
			}
			return taint(cl, "field "+name)
		}
	}
	return Classification{}
}

// typedef accepts an alias of a tag that is never defined: it names an
// opaque handle.
func (c *Classifier) typedef(ent *decls.Entity) Classification {
	aliased := ent.Typedef.Aliased
	resolved, status := types.Resolve(c.in, aliased, c.tbl)
	if status != types.Resolved {
		return c.checkType(aliased, 0)
	}
	tt, _ := c.in.Lookup(resolved)
	switch tt.Kind {
	case types.KindRecordRef:
		rec, ok := c.tbl.Lookup(decls.NSTag, tt.Name)
		if !ok || rec.Kind != decls.KindRecord || !rec.Record.Complete {
			return Classification{Tag: Supported, Reason: "opaque " + tt.Record.String() + " " + tt.Name, Opaque: true}
		}
	case types.KindEnumRef:
		en, ok := c.tbl.Lookup(decls.NSTag, tt.Name)
		if !ok || en.Kind != decls.KindEnum || (!en.Enum.Complete && en.Enum.Underlying == types.PrimInvalid) {
			return Classification{Tag: Supported, Reason: "opaque enum " + tt.Name, Opaque: true}
		}
	case types.KindFunction:
		return c.function(resolved, false, 0)
	}
	return c.checkType(aliased, 0)
}

func (c *Classifier) macro(ent *decls.Entity) Classification {
	if c.consts == nil {
		return Classification{}
	}
	v, err := c.consts.Evaluate(ent.Name)
	if err != nil {
		var me *macro.MacroError
		if !errors.As(err, &me) {
			return unsupported("%v", err)
		}
		switch me.Kind {
		case macro.NotConstant:
			if me.Detail != "" {
				return unsupported("not a constant expression (%s)", me.Detail)
			}
			return unsupported("not a constant expression")
		case macro.UnresolvedReference:
			return unsupported("undefined identifier %s", me.Ref)
		default:
			return unsupported("%s", me.Kind)
		}
	}
	if v.Type == macro.CLongDouble && c.tgt.LongDouble != target.LongDoubleAsDouble {
		return unsupported("long double constant")
	}
	return Classification{}
}
