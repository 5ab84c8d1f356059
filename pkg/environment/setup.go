package environment

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/apphost/pkg/beacon"
	"github.com/bft-labs/apphost/pkg/host"
	"github.com/bft-labs/apphost/pkg/settings"
)

// Setup describes how to build an Environment.
type Setup struct {
	Identity  host.Identity
	Logging   LoggingSetup
	Beacon    BeaconSetup
	Settings  SettingsSetup
	Telemetry TelemetrySetup
	Metrics   MetricsSetup

	// HTTPClient is used by HTTP-based components. Nil uses a client with a
	// 30s timeout.
	HTTPClient beacon.HTTPClient
}

// LoggingSetup configures the composite logger.
type LoggingSetup struct {
	// Level is a zerolog level name. Default: info
	Level string

	// Console receives human-readable output. Nil means os.Stderr; use
	// io.Discard to disable it.
	Console io.Writer

	// ConsoleJSON writes JSON instead of the console format.
	ConsoleJSON bool

	// File, when set, also receives JSON output. The file is appended to.
	File string
}

// BeaconSetup configures the presence beacon. An empty DirectoryURL
// disables it.
type BeaconSetup struct {
	DirectoryURL  string
	AuthKey       string
	Address       string
	Properties    map[string]string
	RenewInterval time.Duration
	Gate          beacon.Gate
}

// SettingsSetup configures the settings and secrets providers.
type SettingsSetup struct {
	Sources       []settings.Source
	SecretSources []settings.Source

	// Watch reloads file sources when they change.
	Watch bool
}

// TelemetrySetup configures tracing. An empty Endpoint disables export.
type TelemetrySetup struct {
	// Endpoint is an OTLP gRPC collector address such as "localhost:4317".
	Endpoint string

	Insecure bool

	// SampleRate is the fraction of traces sampled, from 0 (none) to 1
	// (all). Nil samples everything.
	SampleRate *float64

	ServiceVersion string

	// SetGlobal installs the tracer provider as the OpenTelemetry global.
	SetGlobal bool
}

// MetricsSetup configures the Prometheus registry.
type MetricsSetup struct {
	// Registry is used instead of a fresh one when set.
	Registry *prometheus.Registry

	// DisableRuntimeCollectors skips the Go and process collectors.
	DisableRuntimeCollectors bool
}
