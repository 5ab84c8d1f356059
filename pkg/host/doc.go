// Package host runs a single application through its lifecycle:
// build the environment, initialize, run, honor a shutdown request within a
// grace period, and tear everything down exactly once.
//
// # Quick Start
//
//	h, err := host.New(host.Settings{
//	    Application:        app,
//	    EnvironmentFactory: environment.Factory(setup),
//	    ShutdownTimeout:    10 * time.Second,
//	})
//	if err != nil {
//	    return err
//	}
//
//	go func() {
//	    <-sigCh
//	    h.Shutdown()
//	}()
//
//	result, err := h.Run(ctx)
//
// # Outcomes
//
// Run returns one of three results:
//   - ApplicationExited: Run returned on its own, without a shutdown request
//   - ApplicationStopped: shutdown was requested and the application
//     returned within ShutdownTimeout
//   - ApplicationCrashed: Initialize or Run failed or panicked, a plugin
//     failed to start, or the application outlived ShutdownTimeout
//
// A timed-out application is abandoned: its goroutine keeps running and its
// eventual exit is only logged.
//
// # Observing State
//
// Subscribe delivers the latest state immediately and then later changes,
// possibly skipping intermediate ones. WithEventEmitter registers a
// synchronous callback that sees every transition in order.
//
// # Plugins
//
// Plugins are started in registration order once the host enters
// Initializing and are shut down in reverse order after the result is
// known, before the environment is closed.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package host
