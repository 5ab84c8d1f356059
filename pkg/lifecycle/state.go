package lifecycle

import "time"

// ApplicationState is the lifecycle phase of a hosted application.
type ApplicationState int

const (
	StateNotInitialized ApplicationState = iota
	StateInitializing
	StateInitialized
	StateRunning
	StateStopping
	StateStopped
	StateExited
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s ApplicationState) String() string {
	switch s {
	case StateNotInitialized:
		return "NotInitialized"
	case StateInitializing:
		return "Initializing"
	case StateInitialized:
		return "Initialized"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	case StateExited:
		return "Exited"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the state by name.
func (s ApplicationState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsTerminal reports whether no further transitions are possible.
func (s ApplicationState) IsTerminal() bool {
	return s == StateStopped || s == StateExited || s == StateCrashed
}

// CanTransition reports whether from -> to is a valid lifecycle transition.
//
// Valid transitions:
//   - NotInitialized -> Initializing
//   - Initializing -> Initialized, Crashed
//   - Initialized -> Running
//   - Running -> Stopping, Exited, Crashed
//   - Stopping -> Stopped, Crashed
func CanTransition(from, to ApplicationState) bool {
	switch from {
	case StateNotInitialized:
		return to == StateInitializing
	case StateInitializing:
		return to == StateInitialized || to == StateCrashed
	case StateInitialized:
		return to == StateRunning
	case StateRunning:
		return to == StateStopping || to == StateExited || to == StateCrashed
	case StateStopping:
		return to == StateStopped || to == StateCrashed
	default:
		return false
	}
}

// StateEvent is published on every state change.
// Error is set only on the transition to StateCrashed.
type StateEvent struct {
	State ApplicationState
	Error error
	Time  time.Time
}
