// Package lifecycle defines the application lifecycle model used by the host:
// states, the transition graph, run results, lifecycle errors and the
// Machine that publishes state changes.
//
// # State Machine
//
// Valid state transitions:
//   - NotInitialized -> Initializing
//   - Initializing -> Initialized, Crashed
//   - Initialized -> Running
//   - Running -> Stopping, Exited, Crashed
//   - Stopping -> Stopped, Crashed
//
// Stopped, Exited and Crashed are terminal.
//
// # Observing State
//
//	m := lifecycle.NewMachine(logger, nil)
//	sub := m.Subscribe()
//	defer sub.Close()
//
//	for ev := range sub.C() {
//	    fmt.Println(ev.State, ev.Error)
//	}
//
// Subscriptions always start with the latest event. They hold a single
// value, so a slow reader may skip intermediate states; use an EventEmitter
// when every transition must be seen.
//
// # Version
//
// Current version: 2.0.0
// Minimum compatible version: 2.0.0
//
// See version.go for version constants that can be used programmatically.
package lifecycle
