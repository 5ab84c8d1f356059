package statenotifier

import "github.com/bft-labs/apphost/pkg/host"

// WithStateNotifier returns a host Option that posts lifecycle changes to
// cfg.URL as CloudEvents.
//
// Usage:
//
//	h, err := host.New(settings,
//	    statenotifier.WithStateNotifier(statenotifier.Config{
//	        URL: "https://hooks.example.com/apphost",
//	    }),
//	)
func WithStateNotifier(cfg Config) host.Option {
	return host.WithPlugin(New(cfg))
}
