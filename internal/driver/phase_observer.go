package driver

import "time"

// PhaseStatus reports whether a phase started or finished.
type PhaseStatus int

const (
	// PhaseStart indicates that a pass over the unit has begun.
	PhaseStart PhaseStatus = iota
	PhaseEnd
)

// PhaseEvent describes a pass boundary of one unit.
type PhaseEvent struct {
	Unit    string
	Name    string
	Status  PhaseStatus
	Items   int
	Elapsed time.Duration
}

// PhaseObserver receives phase events emitted during Run. It is called from
// the goroutine that called Run.
type PhaseObserver func(PhaseEvent)

// Phase names in execution order.
const (
	PhaseMerge    = "merge"
	PhaseName     = "name"
	PhaseResolve  = "resolve"
	PhaseLayout   = "layout"
	PhaseMacros   = "macros"
	PhaseClassify = "classify"
	PhaseReport   = "report"
)

// Phases lists every phase Run goes through.
var Phases = []string{PhaseMerge, PhaseName, PhaseResolve, PhaseLayout, PhaseMacros, PhaseClassify, PhaseReport}
