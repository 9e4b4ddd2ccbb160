package trace

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

var (
	seq   atomic.Uint64
	spans atomic.Uint64
)

func nextSeq() uint64 { return seq.Add(1) }

// goroutineID parses "goroutine N [" from the current stack header. Entity
// spans carry it so fan-out workers can be told apart.
func goroutineID() uint64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	buf, ok := bytes.CutPrefix(buf, []byte("goroutine "))
	if !ok {
		return 0
	}
	end := bytes.IndexByte(buf, ' ')
	if end < 0 {
		return 0
	}
	gid, err := strconv.ParseUint(string(buf[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return gid
}

// Span pairs a begin and an end event. A Span whose scope was not admitted
// is inert.
type Span struct {
	rec      *Recorder
	id       uint64
	parentID uint64
	gid      uint64
	scope    Scope
	name     string
	started  time.Time
	extra    map[string]string
}

// Begin starts a span whose recorder and parent come from ctx and returns a
// context carrying the new span.
func Begin(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	rec := FromContext(ctx)
	if !rec.Admits(scope) {
		return ctx, &Span{}
	}
	s := &Span{
		rec:      rec,
		id:       spans.Add(1),
		parentID: parentSpan(ctx),
		scope:    scope,
		name:     name,
		started:  time.Now(),
	}
	if scope == ScopeEntity {
		s.gid = goroutineID()
	}
	rec.Emit(&Event{
		Time:     s.started,
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   s.id,
		ParentID: s.parentID,
		GID:      s.gid,
		Name:     name,
	})
	return withSpan(ctx, s), s
}

// End emits the end event with detail, e.g. a failure message.
func (s *Span) End(detail string) {
	if s == nil || s.rec == nil {
		return
	}
	s.rec.Emit(&Event{
		Time:     time.Now(),
		Kind:     KindSpanEnd,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parentID,
		GID:      s.gid,
		Name:     s.name,
		Detail:   detail,
		Extra:    s.extra,
		Elapsed:  time.Since(s.started),
	})
}

// Set adds a key-value pair to the end event.
func (s *Span) Set(key, value string) *Span {
	if s == nil || s.rec == nil {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string)
	}
	s.extra[key] = value
	return s
}

// ID returns the span ID, 0 for inert spans.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Note records an instant event under the span stored in ctx.
func Note(ctx context.Context, name, detail string) {
	rec := FromContext(ctx)
	if !rec.Admits(ScopeNote) {
		return
	}
	rec.Emit(&Event{
		Time:     time.Now(),
		Kind:     KindPoint,
		Scope:    ScopeNote,
		ParentID: parentSpan(ctx),
		Name:     name,
		Detail:   detail,
	})
}
