package statusserver

import "github.com/bft-labs/apphost/pkg/host"

// WithStatusServer returns a host Option that serves lifecycle status,
// health checks and metrics on cfg.Addr.
//
// Usage:
//
//	h, err := host.New(settings,
//	    statusserver.WithStatusServer(statusserver.Config{Addr: ":9090"}),
//	)
func WithStatusServer(cfg Config) host.Option {
	return host.WithPlugin(New(cfg))
}
