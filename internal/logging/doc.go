// Package logging assembles structured slog loggers and formatting helpers used
// across vocalize packages.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes attribute helpers so every component tags its log lines the
// same way. The package also provides a no-op logger for tests and wiring code
// that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components
// emit data with the same shape as the rest of the client.
package logging
