package host

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/bft-labs/apphost/pkg/lifecycle"
)

// DefaultPluginShutdownTimeout bounds each Plugin.Shutdown call.
const DefaultPluginShutdownTimeout = 10 * time.Second

// Option configures optional behavior of Host.
type Option func(*options)

// options holds the optional configuration for a Host.
type options struct {
	emitters              []lifecycle.EventEmitter
	plugins               []Plugin
	tracerProvider        trace.TracerProvider
	pluginShutdownTimeout time.Duration
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() options {
	return options{
		pluginShutdownTimeout: DefaultPluginShutdownTimeout,
	}
}

// WithEventEmitter registers a synchronous state change callback.
// Emitters see every transition, in order, from the run goroutine and
// should return quickly.
func WithEventEmitter(emitter lifecycle.EventEmitter) Option {
	return func(o *options) {
		o.emitters = append(o.emitters, emitter)
	}
}

// WithPlugin registers a plugin.
// Plugins are initialized in registration order and shutdown in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithTracerProvider sets the provider used for lifecycle spans.
// Without it the environment's provider is used when the environment has a
// TracerProvider method, and the global OpenTelemetry provider otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithPluginShutdownTimeout overrides DefaultPluginShutdownTimeout.
func WithPluginShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pluginShutdownTimeout = d
		}
	}
}

// emitterList fans a state change out to several emitters.
type emitterList []lifecycle.EventEmitter

func (l emitterList) OnStateChange(previous lifecycle.ApplicationState, event lifecycle.StateEvent) {
	for _, e := range l {
		e.OnStateChange(previous, event)
	}
}
