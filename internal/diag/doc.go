// Package diag defines the diagnostic model shared by all passes of a run.
//
// # Purpose
//
//   - Attach every failure to the declaration it belongs to. Nothing in the
//     core aborts a run: conflicts, macro errors, layout errors and
//     classification results all end up here as records.
//   - Offer light-weight utilities (Reporter, Bag) so passes can emit
//     diagnostics without knowing where they are stored or how they are shown.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity: Info, Warning or Error.
//   - Code: compact numeric identifier grouped by pass (see codes.go).
//   - Subject: the declaration identity, e.g. "struct foo" or "macro BAR".
//   - Message: short human text.
//   - Primary: location reported by the front-end.
//   - Cause: the typed error (conflict, macro or layout error) if any, so
//     consumers can use errors.As instead of parsing messages.
//   - Notes: secondary locations, e.g. "previous declaration is here".
//
// Package diag does no IO. Rendering lives in the CLI.
package diag
