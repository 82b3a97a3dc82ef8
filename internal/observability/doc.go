// Package observability provides the observability infrastructure for the
// application: structured logging with context propagation. Prometheus metrics
// live next to the code they measure rather than in a central registry.
//
// Subpackages:
//   - logging: Structured logging utilities with slog
package observability
