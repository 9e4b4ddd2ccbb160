package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Mode selects where a Recorder keeps its events.
type Mode uint8

const (
	ModeStream Mode = iota + 1 // written as they happen
	ModeRing                   // kept in memory, dumped on failure
	ModeBoth
)

var modeNames = map[string]Mode{"stream": ModeStream, "ring": ModeRing, "both": ModeBoth}

func (m Mode) String() string {
	for name, v := range modeNames {
		if v == m {
			return name
		}
	}
	return "unknown"
}

// ParseMode converts a flag value into a Mode.
func ParseMode(s string) (Mode, error) {
	if m, ok := modeNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return ModeStream, fmt.Errorf("invalid trace mode %q (expected stream|ring|both)", s)
}

// Config describes a Recorder.
type Config struct {
	Level      Level
	Mode       Mode
	Format     Format
	Output     io.Writer // stream output; wins over OutputPath
	OutputPath string    // "-" or "" for stderr
	RingSize   int       // default 4096
}

type sink interface {
	write(ev *Event)
}

// Recorder stamps admitted events with a sequence number and passes them to
// its sinks. Emit is safe for concurrent use.
type Recorder struct {
	level  Level
	sinks  []sink
	ring   *Ring
	format Format
	closer io.Closer
}

// Open builds a Recorder from cfg. LevelOff yields a nil Recorder, which
// records nothing.
func Open(cfg Config) (*Recorder, error) {
	if cfg.Level == LevelOff {
		return nil, nil
	}
	if cfg.Mode == 0 {
		cfg.Mode = ModeStream
	}
	r := &Recorder{level: cfg.Level, format: cfg.Format}
	if r.format == FormatAuto {
		r.format = FormatText
		if strings.HasSuffix(cfg.OutputPath, ".ndjson") || strings.HasSuffix(cfg.OutputPath, ".jsonl") {
			r.format = FormatNDJSON
		}
	}
	if cfg.Mode != ModeRing {
		w, closer, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		r.closer = closer
		r.sinks = append(r.sinks, &writerSink{w: w, format: r.format})
	}
	if cfg.Mode != ModeStream {
		r.ring = NewRing(cfg.RingSize)
		r.sinks = append(r.sinks, r.ring)
	}
	return r, nil
}

func openOutput(cfg Config) (io.Writer, io.Closer, error) {
	if cfg.Output != nil {
		return cfg.Output, nil, nil
	}
	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		return os.Stderr, nil, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	return f, f, nil
}

func (r *Recorder) Enabled() bool { return r != nil && r.level != LevelOff }

func (r *Recorder) Level() Level {
	if r == nil {
		return LevelOff
	}
	return r.level
}

// Admits reports whether events of scope would be recorded.
func (r *Recorder) Admits(s Scope) bool { return r.Level().Admits(s) }

// Emit records ev if its scope is admitted.
func (r *Recorder) Emit(ev *Event) {
	if ev == nil || !r.Admits(ev.Scope) {
		return
	}
	ev.Seq = nextSeq()
	for _, s := range r.sinks {
		s.write(ev)
	}
}

// Ring returns the in-memory buffer, nil in stream mode.
func (r *Recorder) Ring() *Ring {
	if r == nil {
		return nil
	}
	return r.ring
}

// Format is the rendering used by the stream sink, also used for dumps.
func (r *Recorder) Format() Format {
	if r == nil {
		return FormatText
	}
	return r.format
}

// Close flushes the stream sink and closes a file it opened.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	for _, s := range r.sinks {
		if ws, ok := s.(*writerSink); ok {
			if err := ws.flush(); err != nil {
				return err
			}
		}
	}
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
