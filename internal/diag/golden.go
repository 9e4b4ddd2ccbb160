package diag

import (
	"fmt"
	"sort"
	"strings"

	"hbind/internal/source"
)

type goldenDiagnostic struct {
	Severity string
	Code     string
	Where    string
	Loc      source.Loc
	Text     string
}

// FormatGolden renders diagnostics one per line in a stable order, for golden
// tests and the CLI short output:
//
//	error DCL1001 foo.h:3:1 struct bar: incompatible redeclaration
func FormatGolden(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}
	if fs == nil {
		fs = source.NewFileSet()
	}
	rendered := make([]goldenDiagnostic, 0, len(diags))
	for _, d := range diags {
		rendered = append(rendered, goldenDiagnostic{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Where:    fs.Format(d.Primary),
			Loc:      d.Primary,
			Text:     sanitizeMessage(d.Text()),
		})
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			rendered = append(rendered, goldenDiagnostic{
				Severity: "note",
				Code:     d.Code.ID(),
				Where:    fs.Format(n.Loc),
				Loc:      n.Loc,
				Text:     sanitizeMessage(n.Msg),
			})
		}
	}

	sort.SliceStable(rendered, func(i, j int) bool {
		di, dj := rendered[i], rendered[j]
		if di.Loc != dj.Loc {
			return di.Loc.Before(dj.Loc)
		}
		return di.Code < dj.Code
	})

	var b strings.Builder
	for i, d := range rendered {
		fmt.Fprintf(&b, "%s %s %s %s", d.Severity, d.Code, d.Where, d.Text)
		if i < len(rendered)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
