package types

// State represents the schedule reconciliation state of a Controller.
//
// Every "new instance" event restarts reconciliation:
//
//	StateUninitialized → StateFirstInit | StateRefreshed | StateConflict
//
// StateStopped is terminal for a running controller.
type State int

const (
	// StateUninitialized indicates no reconciliation has completed for the current store instance.
	StateUninitialized State = iota

	// StateFirstInit indicates the store had no schedule and the local one was written.
	StateFirstInit

	// StateRefreshed indicates the store already holds the local schedule.
	StateRefreshed

	// StateConflict indicates the store holds a different schedule. Operator action is required.
	StateConflict

	// StateStopped indicates the controller has been stopped.
	StateStopped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateFirstInit:
		return "FirstInit"
	case StateRefreshed:
		return "Refreshed"
	case StateConflict:
		return "Conflict"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// IsReconciled reports whether s is a successful reconciliation outcome.
func (s State) IsReconciled() bool {
	return s == StateFirstInit || s == StateRefreshed
}
