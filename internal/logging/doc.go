// Package logging builds the slog loggers used across tally.
//
// Two output formats are supported: a compact console format for interactive
// use and JSON for log shippers. Helpers in attrs.go keep attribute
// construction consistent so call sites never assemble slog fields by hand.
package logging
