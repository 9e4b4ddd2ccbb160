package diag

import "hbind/internal/source"

// Reporter receives finished diagnostics.
type Reporter interface {
	Report(d Diagnostic)
}

// Scope reports diagnostics about one declaration: each carries its
// subject and, unless overridden, its location.
type Scope struct {
	r       Reporter
	subject string
	loc     source.Loc
}

// About opens a scope for subject declared at loc.
func About(r Reporter, subject string, loc source.Loc) Scope {
	return Scope{r: r, subject: subject, loc: loc}
}

func (s Scope) Error(code Code, msg string) *Pending   { return s.at(SevError, code, msg) }
func (s Scope) Warning(code Code, msg string) *Pending { return s.at(SevWarning, code, msg) }
func (s Scope) Info(code Code, msg string) *Pending    { return s.at(SevInfo, code, msg) }

func (s Scope) at(sev Severity, code Code, msg string) *Pending {
	return &Pending{r: s.r, d: New(sev, code, s.subject, s.loc, msg)}
}

// Pending is a diagnostic being filled in; Emit hands it to the reporter
// once.
type Pending struct {
	r    Reporter
	d    Diagnostic
	sent bool
}

// At moves the primary location, e.g. to the rejected redeclaration.
func (p *Pending) At(loc source.Loc) *Pending {
	p.d.Primary = loc
	return p
}

func (p *Pending) Cause(err error) *Pending {
	p.d.Cause = err
	return p
}

// Note adds a secondary location. Invalid locations are kept without a
// position.
func (p *Pending) Note(loc source.Loc, msg string) *Pending {
	p.d = p.d.WithNote(loc, msg)
	return p
}

func (p *Pending) Emit() {
	if p.sent || p.r == nil {
		return
	}
	p.sent = true
	p.r.Report(p.d)
}

// BagReporter adds to a Bag; past the bag limit the diagnostic is counted
// as dropped.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag != nil {
		r.Bag.Add(d)
	}
}
