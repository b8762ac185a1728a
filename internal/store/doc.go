// Package store opens and maintains the shared SQLite database backing the
// daemon fleet: collection replica aggregates, their file replica details,
// the dirty-marker log, and the worker heartbeat registry.
//
// Several daemon processes open the same database file, so Open serializes
// schema bootstrap behind a file lock and every connection runs in WAL mode
// with a busy timeout. Schema changes bump schemaVersion in schema.go; a
// version mismatch surfaces as ErrSchemaMismatch and the daemon refuses to
// start against the stale database.
package store
