package resourcegating

import "github.com/bft-labs/apphost/pkg/host"

// WithResourceGating returns a host Option that runs p as a plugin.
// The same p must be set as the beacon gate for it to have any effect.
//
// Usage:
//
//	gate := resourcegating.New(resourcegating.DefaultConfig())
//	setup.Beacon.Gate = gate
//	h, err := host.New(settings, resourcegating.WithResourceGating(gate))
func WithResourceGating(p *Plugin) host.Option {
	return host.WithPlugin(p)
}
