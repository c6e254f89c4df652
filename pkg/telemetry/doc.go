// Package telemetry provides structured logging for deskforge.
//
// Logging is built on zerolog. A session logger writes colorized
// human-readable output to stderr and mirrors every record, uncolored,
// to an append-only session log file whose path is surfaced in the
// final report. Component child loggers tag records with the pipeline
// stage that emitted them, and dry-run announcements carry a mode field
// so simulated actions are distinguishable from performed ones.
package telemetry
