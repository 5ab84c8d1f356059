// Package environment builds the default host.Environment: identity,
// logging, presence beacon, settings, metrics registry and tracing.
//
//	h, err := host.New(host.Settings{
//	    Application:        app,
//	    EnvironmentFactory: environment.Factory(environment.Setup{
//	        Identity: host.Identity{Project: "infra", Environment: "prod", Application: "api"},
//	        Beacon:   environment.BeaconSetup{DirectoryURL: "http://directory:8500"},
//	    }),
//	})
//
// Components that are not configured are replaced by no-op versions and
// reported as disabled in the log. Close tears components down in reverse
// build order, exactly once.
package environment
