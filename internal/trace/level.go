package trace

import (
	"fmt"
	"strconv"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // run spans only; their end detail carries failures
	LevelPhase        // adds pass spans
	LevelDetail       // adds notes (invalidated entities, failed layouts)
	LevelDebug        // adds per-entity spans
)

var levelNames = [...]string{
	LevelOff:    "off",
	LevelError:  "error",
	LevelPhase:  "phase",
	LevelDetail: "detail",
	LevelDebug:  "debug",
}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "level(" + strconv.Itoa(int(l)) + ")"
}

// ParseLevel converts a flag value into a Level. Empty means off.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LevelOff, nil
	}
	for l, name := range levelNames {
		if name == s {
			return Level(l), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level %q (expected %s)", s, strings.Join(levelNames[:], "|"))
}

// Admits reports whether events of scope are recorded at this level.
func (l Level) Admits(s Scope) bool {
	return l != LevelOff && l >= s.minLevel()
}

func (s Scope) minLevel() Level {
	switch s {
	case ScopeRun:
		return LevelError
	case ScopePass:
		return LevelPhase
	case ScopeNote:
		return LevelDetail
	}
	return LevelDebug
}
