package trace

import (
	"io"
	"sync"
)

type writerSink struct {
	mu     sync.Mutex
	w      io.Writer
	format Format
}

func (s *writerSink) write(ev *Event) {
	data := FormatEvent(ev, s.format)
	s.mu.Lock()
	defer s.mu.Unlock()
	// trace errors never fail a run
	_, _ = s.w.Write(data) //nolint:errcheck
}

func (s *writerSink) flush() error {
	if f, ok := s.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Ring keeps the most recent events, oldest overwritten first.
type Ring struct {
	mu   sync.Mutex
	buf  []Event
	next int
	n    int
}

// NewRing returns a ring holding size events, 4096 if size is not positive.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = 4096
	}
	return &Ring{buf: make([]Event, size)}
}

func (r *Ring) write(ev *Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = *ev
	r.next = (r.next + 1) % len(r.buf)
	if r.n < len(r.buf) {
		r.n++
	}
}

// Events returns the stored events in the order they were recorded.
func (r *Ring) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, 0, r.n)
	start := (r.next - r.n + len(r.buf)) % len(r.buf)
	for i := range r.n {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

// Dump writes the stored events to w.
func (r *Ring) Dump(w io.Writer, format Format) error {
	for _, ev := range r.Events() {
		if _, err := w.Write(FormatEvent(&ev, format)); err != nil {
			return err
		}
	}
	return nil
}
