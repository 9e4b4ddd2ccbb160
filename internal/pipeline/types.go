package pipeline

import (
	"time"

	"hbind/internal/driver"
)

// Stage describes a pass a unit goes through.
type Stage string

const (
	// StageLoad reads and validates the declaration unit.
	StageLoad     Stage = "load"
	StageMerge    Stage = Stage(driver.PhaseMerge)
	StageName     Stage = Stage(driver.PhaseName)
	StageResolve  Stage = Stage(driver.PhaseResolve)
	StageLayout   Stage = Stage(driver.PhaseLayout)
	StageMacros   Stage = Stage(driver.PhaseMacros)
	StageClassify Stage = Stage(driver.PhaseClassify)
	StageReport   Stage = Stage(driver.PhaseReport)
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageLoad, StageMerge, StageName, StageResolve, StageLayout, StageMacros, StageClassify, StageReport}

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the unit is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the unit is inside Stage.
	StatusWorking Status = "working"
	// StatusPassed indicates Stage finished; Items is what it processed.
	StatusPassed Status = "passed"
	// StatusDone indicates the unit finished.
	StatusDone Status = "done"
	// StatusError indicates the unit could not be processed.
	StatusError Status = "error"
)

// Event reports progress for a unit (or for the whole check when File is empty).
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Items   int
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Units run concurrently, so
// OnEvent must be safe for concurrent use.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// Timings holds stage durations of one unit.
type Timings struct {
	stages map[Stage]time.Duration
}

func (t *Timings) ensure() {
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] = dur
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	if t.stages == nil {
		return false
	}
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}
