// Package trace records what a binding run did and when.
//
// A Recorder filters Events by Level and hands them to its sinks: a writer
// that renders each event as text or NDJSON, and a Ring that keeps the last
// N events for a post-mortem dump when a unit fails. Spans pair a begin and
// an end event and nest through parent IDs: one "run" span per declaration
// unit, one "pass" span per phase and, at debug level, one "entity" span per
// record laid out or macro evaluated. Notes are instant events such as an
// entity being invalidated.
//
// The recorder travels in a context.Context. A nil *Recorder is valid and
// records nothing, which is what FromContext returns when none is attached.
package trace
