package lifecycle

import (
	"errors"
	"fmt"
	"time"
)

// Lifecycle errors. These can be checked with errors.Is.
var (
	// ErrAlreadyStarted is returned when a host is run more than once.
	ErrAlreadyStarted = errors.New("apphost: host already started")

	// ErrShutdownTimeout matches every *ShutdownTimeoutError.
	ErrShutdownTimeout = errors.New("apphost: shutdown timeout")

	// ErrInvalidTransition is returned by Machine.TransitionTo for transitions
	// outside the lifecycle graph.
	ErrInvalidTransition = errors.New("apphost: invalid state transition")
)

// ShutdownTimeoutError reports an application that kept running past the
// configured grace period after shutdown was requested.
type ShutdownTimeoutError struct {
	Timeout time.Duration
}

func (e *ShutdownTimeoutError) Error() string {
	return fmt.Sprintf("apphost: shutdown requested, but application did not exit within the configured grace period of %s", e.Timeout)
}

// Is makes errors.Is(err, ErrShutdownTimeout) hold.
func (e *ShutdownTimeoutError) Is(target error) bool {
	return target == ErrShutdownTimeout
}

// MisuseError reports a programming error in how the host is driven.
type MisuseError struct {
	Op  string
	Err error
}

func (e *MisuseError) Error() string {
	return fmt.Sprintf("apphost: misuse of %s: %v", e.Op, e.Err)
}

func (e *MisuseError) Unwrap() error { return e.Err }

// PanicError wraps a value recovered from a panicking callback: the
// application, a plugin, the beacon or environment teardown.
type PanicError struct {
	Phase string
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("apphost: panic during %s: %v", e.Phase, e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
