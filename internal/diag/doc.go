// Package diag defines the diagnostic model shared by the runtime, the
// renderer boundary and the CLI.
//
// # Purpose
//
//   - Provide deterministic, serialisable records of programmer errors and
//     contract violations found while rendering: hook-order violations,
//     duplicate keys, failed tasks, stale element ids reported by a
//     renderer.
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     diagnostics without coupling to concrete storage or formatting layers.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with stable string form.
//   - Message – human oriented text; keep it short and actionable.
//   - Primary site – the scope, component and template location involved.
//   - Notes – optional secondary sites/messages for additional context.
//
// # Emitting diagnostics
//
// Producers use a diag.Reporter to decouple emission from storage, either
// through ReportBuilder (ReportError/ReportWarning/ReportInfo followed by
// WithNote and Emit) or by calling Reporter.Report directly. BagReporter
// aggregates into a Bag, which supports sorting and deduplication.
//
// Rendering lives in internal/diagfmt.
package diag
