// Package diagfmt renders diagnostic bags for terminals and tools.
package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"hbind/internal/diag"
	"hbind/internal/source"
)

type palette struct {
	err, warn, info, note, loc, code *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:  color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow, color.Bold),
		info: color.New(color.FgCyan),
		note: color.New(color.FgBlue),
		loc:  color.New(color.Bold),
		code: color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.loc, p.code} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty writes bag in bag order, one diagnostic per line:
//
//	<path>:<line>:<col>: <severity> <CODE>: <subject>: <message>
//
// followed by indented notes when opts.ShowNotes is set.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) error {
	if bag == nil {
		return nil
	}
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		if uint8(d.Severity) < opts.MinSeverity {
			continue
		}
		if loc := formatLoc(fs, d.Primary, opts.PathMode); loc != "" {
			if _, err := p.loc.Fprint(w, loc+": "); err != nil {
				return err
			}
		}
		sev := p.severity(d.Severity).Sprint(d.Severity.String())
		if _, err := fmt.Fprintf(w, "%s %s: %s\n", sev, p.code.Sprint(d.Code.ID()), d.Text()); err != nil {
			return err
		}
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			where := formatLoc(fs, n.Loc, opts.PathMode)
			if where != "" {
				where += ": "
			}
			if _, err := fmt.Fprintf(w, "    %s %s%s\n", p.note.Sprint("note:"), where, n.Msg); err != nil {
				return err
			}
		}
	}
	return nil
}

// Summary writes "N errors, M warnings" for bag, or nothing when it is
// clean. Diagnostics dropped past the bag limit are counted after it.
func Summary(w io.Writer, bag *diag.Bag, opts PrettyOpts) error {
	if bag == nil {
		return nil
	}
	var errs, warns int
	for _, d := range bag.Items() {
		switch d.Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warns++
		}
	}
	dropped := bag.Dropped()
	if errs == 0 && warns == 0 && dropped == 0 {
		return nil
	}
	p := newPalette(opts.Color)
	line := p.err.Sprint(plural(errs, "error")) + ", " + p.warn.Sprint(plural(warns, "warning"))
	if dropped > 0 {
		line += fmt.Sprintf(" (%d more not shown, limit %d)", dropped, bag.Cap())
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
