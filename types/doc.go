// Package types provides core type definitions and interfaces for redis-ts.
//
// This package contains shared types that are used by the root redists package, the
// internal connection manager and the store backends. Keeping them in a separate package
// avoids import cycles between the public API and its internal implementations.
//
// Key types:
//   - State: Schedule reconciliation state
//   - ConnectionState: Store connection lifecycle state
//   - Store, Session, Subscription: External store abstraction
//   - Listener: Connection lifecycle callbacks
//   - Logger: Structured logging interface
//   - MetricsCollector: Metrics recording interface
package types
