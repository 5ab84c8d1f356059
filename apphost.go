// Package apphost runs an application under a managed lifecycle.
//
// Example usage:
//
//	app := apphost.ApplicationFuncs{
//	    RunFunc: func(ctx context.Context, env apphost.Environment) error {
//	        env.Log().Info("serving")
//	        <-ctx.Done()
//	        return ctx.Err()
//	    },
//	}
//	h, err := apphost.New(apphost.Settings{
//	    Application:        app,
//	    EnvironmentFactory: environment.Factory(environment.Setup{
//	        Identity: apphost.Identity{Application: "api"},
//	    }),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := h.Run(context.Background())
package apphost

import (
	"github.com/bft-labs/apphost/pkg/beacon"
	"github.com/bft-labs/apphost/pkg/environment"
	"github.com/bft-labs/apphost/pkg/host"
	"github.com/bft-labs/apphost/pkg/lifecycle"
	"github.com/bft-labs/apphost/pkg/log"
	"github.com/bft-labs/apphost/pkg/observable"
	"github.com/bft-labs/apphost/pkg/settings"
	"github.com/bft-labs/apphost/pkg/shutdown"
)

// Host runs one application through its lifecycle exactly once.
type Host = host.Host

// Settings configures a Host.
type Settings = host.Settings

// Application is the user-supplied unit of work.
type Application = host.Application

// ApplicationFuncs adapts plain functions to Application.
type ApplicationFuncs = host.ApplicationFuncs

// Environment is the set of shared facilities given to the application.
type Environment = host.Environment

// Identity names a hosted application instance.
type Identity = host.Identity

// RunResult is the terminal outcome of Host.Run.
type RunResult = lifecycle.RunResult

// ApplicationState is the lifecycle phase of the hosted application.
type ApplicationState = lifecycle.ApplicationState

// New creates a Host. See host.New.
func New(settings Settings, opts ...host.Option) (*Host, error) {
	return host.New(settings, opts...)
}

// ModuleVersions returns the version of every public package.
func ModuleVersions() map[string]string {
	return map[string]string{
		"beacon":      beacon.Version,
		"environment": environment.Version,
		"host":        host.Version,
		"lifecycle":   lifecycle.Version,
		"log":         log.Version,
		"observable":  observable.Version,
		"settings":    settings.Version,
		"shutdown":    shutdown.Version,
	}
}
