package diag

import (
	"fmt"
	"strings"
)

// Severity orders diagnostics. Info is a fact about a declaration, Warning
// means the declaration is skipped, Error means the input itself is wrong.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]string{SevInfo: "info", SevWarning: "warning", SevError: "error"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return fmt.Sprintf("severity(%d)", s)
}

// ParseSeverity accepts the names printed by String, in any case.
func ParseSeverity(name string) (Severity, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for i, n := range severityNames {
		if n == key {
			return Severity(i), nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q (expected info|warning|error)", name)
}

func (s Severity) MarshalText() ([]byte, error) {
	if int(s) >= len(severityNames) {
		return nil, fmt.Errorf("invalid severity %d", s)
	}
	return []byte(severityNames[s]), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
