package diag

// DedupReporter forwards the first of each group of identical diagnostics
// (same Fingerprint) and counts the rest. Repeats come from declarations
// merged several times, e.g. a header included twice.
type DedupReporter struct {
	next       Reporter
	seen       map[string]struct{}
	suppressed int
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: make(map[string]struct{})}
}

func (r *DedupReporter) Report(d Diagnostic) {
	key := d.Fingerprint()
	if _, ok := r.seen[key]; ok {
		r.suppressed++
		return
	}
	r.seen[key] = struct{}{}
	if r.next != nil {
		r.next.Report(d)
	}
}

// Suppressed is the number of repeats not forwarded.
func (r *DedupReporter) Suppressed() int { return r.suppressed }
