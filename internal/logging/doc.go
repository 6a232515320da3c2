// Package logging provides types.Logger implementations.
//
// Three backends are available:
//   - NewSlog / NewSlogDefault wrap a log/slog logger
//   - NewZap wraps a zap.SugaredLogger
//   - NewNop discards everything and is the default when no logger is configured
package logging
