package types

import "time"

// ConnectionState represents the lifecycle state of the store connection.
//
//	stopped → connecting → connected → disconnected → connecting
//
// Any state moves to stopped on shutdown.
type ConnectionState int

const (
	// ConnectionStopped indicates the connection manager is not running.
	ConnectionStopped ConnectionState = iota

	// ConnectionConnecting indicates a connection attempt (or retry loop) is in progress.
	ConnectionConnecting

	// ConnectionConnected indicates the store is reachable and heartbeats are running.
	ConnectionConnected

	// ConnectionDisconnected indicates the connection was lost and is being torn down.
	ConnectionDisconnected
)

var connectionStateNames = [...]string{
	ConnectionStopped:      "stopped",
	ConnectionConnecting:   "connecting",
	ConnectionConnected:    "connected",
	ConnectionDisconnected: "disconnected",
}

// String returns the lower-case state name.
func (s ConnectionState) String() string {
	if s < 0 || int(s) >= len(connectionStateNames) {
		return "unknown"
	}

	return connectionStateNames[s]
}

// ParseConnectionState maps a state name back to its ConnectionState.
// Unknown names map to ConnectionStopped.
func ParseConnectionState(name string) ConnectionState {
	for i, n := range connectionStateNames {
		if n == name {
			return ConnectionState(i)
		}
	}

	return ConnectionStopped
}

// HeartbeatStatus is a snapshot of the heartbeat monitor counters.
type HeartbeatStatus struct {
	// TotalTimeouts counts every monitor tick that found the heartbeat stale. Never decreases.
	TotalTimeouts int64

	// ConsecutiveTimeouts counts stale ticks since the last fresh heartbeat.
	ConsecutiveTimeouts int64

	// LastSeen is the latest heartbeat timestamp received, zero if none.
	LastSeen time.Time

	// Elapsed is the time between LastSeen (or monitor start) and the check.
	Elapsed time.Duration
}
