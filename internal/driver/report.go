package driver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"hbind/internal/classify"
	"hbind/internal/decls"
	"hbind/internal/diag"
	"hbind/internal/layout"
	"hbind/internal/macro"
)

// report turns the per-entity results into diagnostics, in entity order.
// Input problems come first.
func (s *session) report(context.Context) (int, error) {
	limit := s.opts.MaxDiagnostics
	if limit <= 0 {
		limit = math.MaxUint16
	}
	s.bag = diag.NewBag(limit)
	r := diag.NewDedupReporter(diag.BagReporter{Bag: s.bag})
	for _, d := range s.input {
		r.Report(d)
	}

	renamed := make(map[string][]string)
	for _, c := range s.namer.Collisions() {
		renamed[c.Name] = append(renamed[c.Name], c.Base)
	}
	typedefs := make(map[string]bool)

	for i, ent := range s.entities {
		res := &s.results[i]
		for _, d := range s.broken[ent.ID] {
			r.Report(d)
		}
		s.reportConflicts(r, ent)
		for _, base := range renamed[ent.Name] {
			if ent.NS == decls.NSTag {
				diag.About(r, ent.Subject(), ent.Loc).Warning(diag.NamCollision,
					fmt.Sprintf("synthetic name %s is already taken, using %s", base, ent.Name)).Emit()
			}
		}
		s.reportLayout(r, ent, res.LayoutErr)
		s.reportMacro(r, ent, res.ConstErr)
		s.reportClass(r, ent, res.Class, typedefs)
	}
	s.bag.Dedup()
	return s.bag.Len(), nil
}

func (s *session) reportConflicts(r diag.Reporter, ent *decls.Entity) {
	for _, c := range ent.Conflicts {
		code := diag.DclIncompatibleType
		switch c.Kind {
		case decls.ConflictIncompatibleRedeclaration:
			code = diag.DclIncompatibleRedeclaration
		case decls.ConflictRedefinition:
			code = diag.DclRedefinition
		}
		p := diag.About(r, ent.Subject(), ent.Loc).Error(code, c.Error()).At(c.Loc).Cause(c)
		if c.Prev.IsValid() {
			p.Note(c.Prev, "previous declaration is here")
		}
		p.Emit()
	}
}

// reportLayout reports a record whose own layout failed. Records that only
// fail through a member are left to the classifier, which names the member.
func (s *session) reportLayout(r diag.Reporter, ent *decls.Entity, err error) {
	var lerr *layout.LayoutError
	if err == nil || !errors.As(err, &lerr) || lerr.Kind == layout.LayoutErrIncompleteMember {
		return
	}
	code := diag.LayInfo
	switch lerr.Kind {
	case layout.LayoutErrRecursive:
		code = diag.LayRecursive
	case layout.LayoutErrUnrepresentablePacking:
		code = diag.LayUnrepresentablePacking
	case layout.LayoutErrBitfieldWidth:
		code = diag.LayBitfieldWidth
	case layout.LayoutErrBitfieldType:
		code = diag.LayBitfieldType
	case layout.LayoutErrFlexibleArray:
		code = diag.LayFlexibleArray
	}
	diag.About(r, ent.Subject(), ent.Loc).Error(code, lerr.Error()).Cause(lerr).Emit()
}

// reportMacro reports macros without a constant value. Macros that are
// simply not constant expressions are common in headers and stay at info.
func (s *session) reportMacro(r diag.Reporter, ent *decls.Entity, err error) {
	var merr *macro.MacroError
	if err == nil || !errors.As(err, &merr) {
		return
	}
	scope := diag.About(r, ent.Subject(), ent.Loc)
	var p *diag.Pending
	switch merr.Kind {
	case macro.CyclicDefinition:
		p = scope.Warning(diag.MacCyclicDefinition, merr.Error())
	case macro.UnresolvedReference:
		p = scope.Warning(diag.MacUnresolvedReference, merr.Error())
	default:
		p = scope.Info(diag.MacNotConstant, merr.Error())
	}
	p.Cause(merr).Emit()
}

// reportClass reports skipped declarations. Macros were already reported by
// reportMacro and enumerators follow their enum.
func (s *session) reportClass(r diag.Reporter, ent *decls.Entity, cl classify.Classification, typedefs map[string]bool) {
	if cl.Typedef != "" && !typedefs[cl.Typedef] {
		typedefs[cl.Typedef] = true
		diag.About(r, cl.Typedef, ent.Loc).Warning(diag.DclUndeclaredTypedef,
			fmt.Sprintf("unknown type name %q", cl.Typedef)).Emit()
	}
	if cl.Tag == classify.Supported || ent.Kind == decls.KindMacro || ent.Kind == decls.KindEnumConstant {
		return
	}
	code := diag.UnsUnsupported
	if cl.Tag == classify.Undeclared {
		code = diag.UnsUndeclared
	}
	diag.About(r, ent.Subject(), ent.Loc).Warning(code, cl.Message(ent.Subject())).Emit()
}
