package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	default:
		return "unknown"
	}
}

// Scope is the granularity of an event. Lower values are coarser.
type Scope uint8

const (
	ScopeRun    Scope = iota + 1 // one declaration unit
	ScopePass                    // merge, name, resolve, layout, macros, classify
	ScopeNote                    // something notable inside a pass
	ScopeEntity                  // one declaration
)

func (s Scope) String() string {
	switch s {
	case ScopeRun:
		return "run"
	case ScopePass:
		return "pass"
	case ScopeNote:
		return "note"
	case ScopeEntity:
		return "entity"
	default:
		return "unknown"
	}
}

// Event is a single trace record.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 for roots
	GID      uint64 // goroutine, for fan-out workers
	Name     string // e.g. "layout", "struct foo"
	Detail   string
	Extra    map[string]string
	Elapsed  time.Duration // end events only
}
