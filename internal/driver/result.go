package driver

import (
	"hbind/internal/classify"
	"hbind/internal/decls"
	"hbind/internal/diag"
	"hbind/internal/layout"
	"hbind/internal/macro"
	"hbind/internal/observ"
	"hbind/internal/source"
	"hbind/internal/target"
	"hbind/internal/types"
)

// Result is the outcome of one run over a translation unit.
type Result struct {
	Unit        string
	Target      target.Target
	FileSet     *source.FileSet
	Table       *decls.Table // frozen
	Types       *types.Interner
	Entities    []EntityResult // entity order
	Diagnostics *diag.Bag
	Timings     observ.Report
	Metrics     string
}

// EntityResult carries everything computed for one entity.
type EntityResult struct {
	ID      decls.EntityID          `json:"id" msgpack:"id"`
	Kind    decls.Kind              `json:"kind" msgpack:"kind"`
	Name    string                  `json:"name" msgpack:"name"`
	Subject string                  `json:"subject" msgpack:"subject"`
	Loc     string                  `json:"loc,omitempty" msgpack:"loc,omitempty"`
	Type    string                  `json:"type,omitempty" msgpack:"type,omitempty"` // C spelling of the resolved type
	Layout  *layout.Layout          `json:"layout,omitempty" msgpack:"layout,omitempty"`
	Const   *macro.Value            `json:"const,omitempty" msgpack:"const,omitempty"`
	Class   classify.Classification `json:"class" msgpack:"class"`

	LayoutErr error `json:"-" msgpack:"-"`
	ConstErr  error `json:"-" msgpack:"-"`
}

// Counts tallies the classification of every entity.
type Counts struct {
	Supported   int
	Unsupported int
	Undeclared  int
}

// Counts returns how many entities ended up in each class.
func (r *Result) Counts() Counts {
	var c Counts
	for i := range r.Entities {
		switch r.Entities[i].Class.Tag {
		case classify.Supported:
			c.Supported++
		case classify.Unsupported:
			c.Unsupported++
		case classify.Undeclared:
			c.Undeclared++
		}
	}
	return c
}

// Entity returns the result for subject ("struct foo", "macro BAR", "f").
func (r *Result) Entity(subject string) (*EntityResult, bool) {
	for i := range r.Entities {
		if r.Entities[i].Subject == subject {
			return &r.Entities[i], true
		}
	}
	return nil, false
}

// HasErrors reports whether any diagnostic is an error.
func (r *Result) HasErrors() bool {
	return r.Diagnostics != nil && r.Diagnostics.HasErrors()
}
