package driver

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"hbind/internal/observ"
)

// snapshotSchema is bumped whenever Snapshot changes shape.
const snapshotSchema uint16 = 1

// Snapshot is the serialisable form of a Result: the frozen entity results
// with their diagnostics.
type Snapshot struct {
	Schema      uint16         `msgpack:"schema"`
	Unit        string         `msgpack:"unit"`
	Target      string         `msgpack:"target"`
	Entities    []EntityResult `msgpack:"entities"`
	Diagnostics []SnapshotDiag `msgpack:"diagnostics"`
	Timings     *observ.Report `msgpack:"timings,omitempty"`
}

// SnapshotDiag is a diagnostic without its typed cause.
type SnapshotDiag struct {
	Severity string `msgpack:"severity"`
	Code     string `msgpack:"code"`
	Subject  string `msgpack:"subject,omitempty"`
	Loc      string `msgpack:"loc,omitempty"`
	Message  string `msgpack:"message"`
}

// Snapshot captures r. Timings are included only when withTimings is set so
// that snapshots of the same unit compare equal.
func (r *Result) Snapshot(withTimings bool) *Snapshot {
	snap := &Snapshot{
		Schema:   snapshotSchema,
		Unit:     r.Unit,
		Target:   r.Target.Triple,
		Entities: r.Entities,
	}
	if withTimings {
		t := r.Timings
		snap.Timings = &t
	}
	if r.Diagnostics != nil {
		for _, d := range r.Diagnostics.Items() {
			sd := SnapshotDiag{
				Severity: d.Severity.String(),
				Code:     d.Code.ID(),
				Subject:  d.Subject,
				Message:  d.Message,
			}
			if d.Primary.IsValid() && r.FileSet != nil {
				sd.Loc = r.FileSet.Format(d.Primary)
			}
			snap.Diagnostics = append(snap.Diagnostics, sd)
		}
	}
	return snap
}

// WriteSnapshot encodes r as msgpack.
func WriteSnapshot(w io.Writer, r *Result, withTimings bool) error {
	enc := msgpack.NewEncoder(w)
	enc.SetOmitEmpty(true)
	if err := enc.Encode(r.Snapshot(withTimings)); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot.
func ReadSnapshot(rd io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := msgpack.NewDecoder(rd).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Schema != snapshotSchema {
		return nil, fmt.Errorf("snapshot schema %d, want %d", snap.Schema, snapshotSchema)
	}
	return &snap, nil
}
