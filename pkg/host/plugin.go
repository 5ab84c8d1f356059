package host

import (
	"context"

	"github.com/bft-labs/apphost/pkg/lifecycle"
	"github.com/bft-labs/apphost/pkg/log"
	"github.com/bft-labs/apphost/pkg/observable"
)

// Plugin is an optional host extension with its own start/stop hooks.
// Plugins are initialized in registration order when the host enters
// Initializing, and shut down in reverse order once the run result is known.
type Plugin interface {
	// Name returns the plugin identifier used in logs.
	Name() string

	// Initialize starts the plugin. An error crashes the host.
	Initialize(ctx context.Context, pc PluginContext) error

	// Shutdown stops the plugin.
	Shutdown(ctx context.Context) error
}

// StateSource exposes the host's lifecycle state to plugins.
type StateSource interface {
	State() lifecycle.ApplicationState
	Subscribe() *observable.Subscription[lifecycle.StateEvent]
}

// PluginContext is handed to Plugin.Initialize.
type PluginContext struct {
	Environment Environment
	Logger      log.Logger
	States      StateSource
}
