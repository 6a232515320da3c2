package redists

import (
	"github.com/nickman/redis-ts/tier"
	"github.com/nickman/redis-ts/types"
)

// Re-export types from the internal types package.
//
// This file provides a stable public API for the library's core types and interfaces.
// It uses type aliases to re-export definitions from the `types` subpackage, so internal
// packages can depend on `types` without depending on the root `redists` package.
type (
	State           = types.State
	ConnectionState = types.ConnectionState
	HeartbeatStatus = types.HeartbeatStatus
	ConflictError   = types.ConflictError
	ListenerFuncs   = types.ListenerFuncs
	Schedule        = tier.Schedule
	Tier            = tier.Tier
)

// Re-export interfaces from the internal types package for convenience.
type (
	Store            = types.Store
	Session          = types.Session
	Subscription     = types.Subscription
	Listener         = types.Listener
	MetricsCollector = types.MetricsCollector
	Logger           = types.Logger
	Hooks            = types.Hooks
)

// Re-export State constants from the internal types package.
const (
	StateUninitialized = types.StateUninitialized
	StateFirstInit     = types.StateFirstInit
	StateRefreshed     = types.StateRefreshed
	StateConflict      = types.StateConflict
	StateStopped       = types.StateStopped
)

// Re-export ConnectionState constants from the internal types package.
const (
	ConnectionStopped      = types.ConnectionStopped
	ConnectionConnecting   = types.ConnectionConnecting
	ConnectionConnected    = types.ConnectionConnected
	ConnectionDisconnected = types.ConnectionDisconnected
)
