// Package logging defines the minimal structured logging interface consumed
// by every mnemo component, plus adapters for log/slog and a NoOpLogger used
// as the default. Components never log through a concrete type so callers can
// plug any structured logger.
package logging
