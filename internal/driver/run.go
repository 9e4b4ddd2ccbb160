// Package driver runs the semantic passes over one translation unit: merge
// the raw declarations, name anonymous types, resolve and freeze, then fan
// out layout, macro evaluation and classification over a bounded worker
// pool.
package driver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"hbind/internal/classify"
	"hbind/internal/decls"
	"hbind/internal/diag"
	"hbind/internal/layout"
	"hbind/internal/macro"
	"hbind/internal/naming"
	"hbind/internal/observ"
	"hbind/internal/raw"
	"hbind/internal/source"
	"hbind/internal/target"
	"hbind/internal/trace"
	"hbind/internal/types"
)

// Options control one run.
type Options struct {
	// Target overrides the unit's own target triple when set.
	Target *target.Target
	// Jobs bounds the fan-out passes; 0 means GOMAXPROCS.
	Jobs           int
	MaxDiagnostics int
	Observer       PhaseObserver
}

// RunFile loads a TOML declaration unit and runs it.
func RunFile(ctx context.Context, path string, opts Options) (*Result, error) {
	unit, err := raw.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return Run(ctx, unit, opts)
}

// Run processes unit. Problems with individual declarations never abort the
// run: they end up in Result.Diagnostics. The returned error is reserved
// for setup failures and cancellation.
func Run(ctx context.Context, unit *raw.Unit, opts Options) (*Result, error) {
	tgt, err := pickTarget(unit, opts.Target)
	if err != nil {
		return nil, err
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	s := &session{
		unit:  unit,
		tgt:   tgt,
		jobs:  jobs,
		opts:  opts,
		fs:    source.NewFileSet(),
		in:    types.NewInterner(),
		timer: observ.NewTimer(),
	}
	s.tbl = decls.New(s.fs)

	ctx, span := trace.Begin(ctx, trace.ScopeRun, unit.Name)
	err = s.run(ctx)
	span.End(s.metrics.summary())
	if err != nil {
		return nil, err
	}
	return &Result{
		Unit:        unit.Name,
		Target:      tgt,
		FileSet:     s.fs,
		Table:       s.tbl,
		Types:       s.in,
		Entities:    s.results,
		Diagnostics: s.bag,
		Timings:     s.timer.Report(),
		Metrics:     s.metrics.summary(),
	}, nil
}

func pickTarget(unit *raw.Unit, override *target.Target) (target.Target, error) {
	if override != nil {
		return *override, nil
	}
	if unit.Target == "" {
		return target.X86_64LinuxGNU(), nil
	}
	t, ok := target.Lookup(unit.Target)
	if !ok {
		return target.Target{}, fmt.Errorf("%s: unknown target %q", unit.Name, unit.Target)
	}
	return t, nil
}

// session holds the state of one run. Nothing in it is shared with other
// runs.
type session struct {
	unit *raw.Unit
	tgt  target.Target
	jobs int
	opts Options

	fs    *source.FileSet
	tbl   *decls.Table
	in    *types.Interner
	namer *naming.Namer

	layouts    *layout.Engine
	macros     *macro.Evaluator
	constants  *macro.TableSource
	classifier *classify.Classifier

	entities []*decls.Entity
	results  []EntityResult
	input    []diag.Diagnostic
	broken   map[decls.EntityID][]diag.Diagnostic
	bag      *diag.Bag

	timer   *observ.Timer
	metrics runMetrics
}

func (s *session) run(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) (int, error)
	}{
		{PhaseMerge, s.merge},
		{PhaseName, s.name},
		{PhaseResolve, s.resolve},
		{PhaseLayout, s.layout},
		{PhaseMacros, s.evaluate},
		{PhaseClassify, s.classify},
		{PhaseReport, s.report},
	}
	for _, step := range steps {
		if err := s.phase(ctx, step.name, step.fn); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) phase(ctx context.Context, name string, fn func(context.Context) (int, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, span := trace.Begin(ctx, trace.ScopePass, name)
	idx := s.timer.Begin(name)
	s.notify(PhaseEvent{Unit: s.unit.Name, Name: name, Status: PhaseStart})
	start := time.Now()

	items, err := fn(ctx)

	s.timer.End(idx, items, "")
	span.Set("items", strconv.Itoa(items)).End("")
	s.notify(PhaseEvent{Unit: s.unit.Name, Name: name, Status: PhaseEnd, Items: items, Elapsed: time.Since(start)})
	if err != nil {
		return fmt.Errorf("%s: %s: %w", s.unit.Name, name, err)
	}
	return nil
}

func (s *session) notify(ev PhaseEvent) {
	if s.opts.Observer != nil {
		s.opts.Observer(ev)
	}
}

// merge folds every raw declaration into the table. Conflicts stay on the
// entity they were rejected by; anything else is an input problem.
func (s *session) merge(context.Context) (int, error) {
	for i := range s.unit.Decls {
		d := s.unit.Decls[i]
		if _, err := s.tbl.Merge(d); err != nil {
			var cerr *decls.ConflictError
			if errors.As(err, &cerr) {
				continue
			}
			s.input = append(s.input, diag.New(diag.SevError, diag.InpInvalidDecl, d.Subject(), s.tbl.Loc(d.Pos), err.Error()).WithCause(err))
		}
	}
	return len(s.unit.Decls), nil
}

func (s *session) name(ctx context.Context) (int, error) {
	s.namer = naming.New(s.tbl)
	err := naming.Assign(s.tbl, s.namer, s.unit.Name)
	return s.namer.Len(), s.invalidate(ctx, err, diag.NamFailed)
}

func (s *session) resolve(ctx context.Context) (int, error) {
	err := s.tbl.ResolveTypes(s.in, &s.tgt)
	if err := s.invalidate(ctx, err, diag.InpUnresolved); err != nil {
		return 0, err
	}
	s.tbl.Freeze()
	s.entities = s.tbl.Entities()
	s.results = make([]EntityResult, len(s.entities))
	for i, ent := range s.entities {
		s.results[i] = EntityResult{
			ID:      ent.ID,
			Kind:    ent.Kind,
			Name:    ent.Name,
			Subject: ent.Subject(),
			Type:    s.typeLabel(ent),
		}
		if ent.Loc.IsValid() {
			s.results[i].Loc = s.fs.Format(ent.Loc)
		}
	}

	opts := macro.TargetOptions(&s.tgt)
	s.layouts = layout.New(&s.tgt, s.in, s.tbl)
	s.constants = macro.NewTableSource(s.tbl, s.in, opts)
	s.macros = macro.New(s.constants, opts)
	s.classifier = classify.New(s.tbl, s.in, &s.tgt, s.layouts, s.macros)
	return s.in.Len(), nil
}

// invalidate marks the entities behind per-entity failures and keeps a
// diagnostic for each. Anything else is returned.
func (s *session) invalidate(ctx context.Context, err error, code diag.Code) error {
	per, rest := decls.EntityErrors(err)
	for _, ee := range per {
		if err := s.tbl.Invalidate(ee.Entity, ee.Err); err != nil {
			return err
		}
		ent := s.tbl.Entity(ee.Entity)
		trace.Note(ctx, "invalid", ent.Subject()+": "+ee.Err.Error())
		if s.broken == nil {
			s.broken = make(map[decls.EntityID][]diag.Diagnostic)
		}
		s.broken[ent.ID] = append(s.broken[ent.ID],
			diag.New(diag.SevError, code, ent.Subject(), ent.Loc, ee.Err.Error()).WithCause(ee))
	}
	return errors.Join(rest...)
}

func (s *session) typeLabel(ent *decls.Entity) string {
	var id types.TypeID
	switch ent.Kind {
	case decls.KindTypedef:
		id = ent.Typedef.Aliased
	case decls.KindFunction:
		id = ent.Function.Signature
	case decls.KindVariable:
		id = ent.Variable.Type
	default:
		return ""
	}
	if id == types.NoTypeID {
		return ""
	}
	return types.Label(s.in, id)
}

// fanOut runs fn for every index in [0, n) on at most s.jobs goroutines.
// Each call writes only its own slot of s.results.
func (s *session) fanOut(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if n == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(s.jobs, n))
	for i := range n {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			if err := fn(gctx, i); err != nil {
				s.metrics.workersErrors.Add(1)
				return err
			}
			s.metrics.workersCompleted.Add(1)
			return nil
		})
	}
	return g.Wait()
}

// pick returns the indexes of entities of the given kind.
func (s *session) pick(kind decls.Kind) []int {
	var out []int
	for i, ent := range s.entities {
		if ent.Kind == kind {
			out = append(out, i)
		}
	}
	return out
}

func (s *session) layout(ctx context.Context) (int, error) {
	s.layouts.Prepare()
	var records []int
	for _, i := range s.pick(decls.KindRecord) {
		if s.entities[i].Record.Complete {
			records = append(records, i)
		}
	}
	err := s.fanOut(ctx, len(records), func(ctx context.Context, k int) error {
		i := records[k]
		ent := s.entities[i]
		_, span := trace.Begin(ctx, trace.ScopeEntity, ent.Subject())
		l, err := s.layouts.RecordLayout(ent.Name)
		if err != nil {
			s.metrics.layoutsFailed.Add(1)
			s.results[i].LayoutErr = err
			trace.Note(ctx, "layout failed", ent.Subject()+": "+err.Error())
			span.End(err.Error())
			return nil
		}
		s.results[i].Layout = &l
		span.End("")
		return nil
	})
	return len(records), err
}

func (s *session) evaluate(ctx context.Context) (int, error) {
	s.macros.Prepare()
	macros := s.pick(decls.KindMacro)
	err := s.fanOut(ctx, len(macros), func(ctx context.Context, k int) error {
		i := macros[k]
		ent := s.entities[i]
		_, span := trace.Begin(ctx, trace.ScopeEntity, ent.Subject())
		v, err := s.macros.Evaluate(ent.Name)
		if err != nil {
			s.metrics.macrosFailed.Add(1)
			s.results[i].ConstErr = err
			span.End(err.Error())
			return nil
		}
		s.results[i].Const = &v
		span.End(v.String())
		return nil
	})
	if err != nil {
		return len(macros), err
	}
	for _, i := range s.pick(decls.KindEnumConstant) {
		if v, ok := s.constants.Constant(s.entities[i].Name); ok {
			s.results[i].Const = &v
		}
	}
	return len(macros), nil
}

func (s *session) classify(ctx context.Context) (int, error) {
	s.classifier.Prepare()
	err := s.fanOut(ctx, len(s.entities), func(ctx context.Context, i int) error {
		cl := s.classifier.Classify(s.entities[i].ID)
		switch cl.Tag {
		case classify.Unsupported:
			s.metrics.unsupported.Add(1)
		case classify.Undeclared:
			s.metrics.undeclared.Add(1)
		}
		s.results[i].Class = cl
		return nil
	})
	return len(s.entities), err
}
