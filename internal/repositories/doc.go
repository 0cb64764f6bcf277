// Package repositories implements SQLite persistence for export history.
//
// [ExportRunRepository] stores one row per export run: source, format, counts, file names,
// status and timing. Task content is never written.
//
// Sequence numbers give runs a stable, human-readable order independent of UUIDs.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
