// Package logging provides a tiny abstraction over slog so the rest of the
// module can depend on a minimal interface (Logger) while allowing callers to
// plug any structured logger. NoOpLogger keeps tests and minimal setups
// silent.
package logging
