package lifecycle

// RunStatus is the terminal outcome of a host run.
type RunStatus int

const (
	ApplicationCrashed RunStatus = iota
	ApplicationStopped
	ApplicationExited
)

// String returns a human-readable representation of the status.
func (s RunStatus) String() string {
	switch s {
	case ApplicationCrashed:
		return "ApplicationCrashed"
	case ApplicationStopped:
		return "ApplicationStopped"
	case ApplicationExited:
		return "ApplicationExited"
	default:
		return "Unknown"
	}
}

// RunResult is produced exactly once per host run.
// Error is non-nil iff Status is ApplicationCrashed.
type RunResult struct {
	Status RunStatus
	Error  error
}

// Crashed returns a crashed result carrying err.
func Crashed(err error) RunResult {
	return RunResult{Status: ApplicationCrashed, Error: err}
}

// Stopped returns the result of a requested, graceful stop.
func Stopped() RunResult {
	return RunResult{Status: ApplicationStopped}
}

// Exited returns the result of an application that finished on its own.
func Exited() RunResult {
	return RunResult{Status: ApplicationExited}
}

// State returns the terminal ApplicationState matching the result.
func (r RunResult) State() ApplicationState {
	switch r.Status {
	case ApplicationStopped:
		return StateStopped
	case ApplicationExited:
		return StateExited
	default:
		return StateCrashed
	}
}
