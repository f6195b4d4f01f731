// Package logging builds the slog loggers used across cardkeep.
//
// Two output formats are supported: a compact console format for
// interactive use and JSON for machine consumption. Helper
// constructors mirror the slog attr functions so call sites stay
// terse and keys stay consistent.
package logging
