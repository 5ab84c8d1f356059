package environment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/trace"

	"github.com/bft-labs/apphost/pkg/beacon"
	"github.com/bft-labs/apphost/pkg/host"
	"github.com/bft-labs/apphost/pkg/log"
	"github.com/bft-labs/apphost/pkg/settings"
	"github.com/bft-labs/apphost/pkg/shutdown"
)

// Environment is the default host.Environment.
type Environment struct {
	identity host.Identity
	logger   log.Logger
	token    *shutdown.Token
	beacon   host.Beacon
	settings *settings.Provider
	secrets  *settings.Provider
	registry *prometheus.Registry
	tracerP  trace.TracerProvider

	closers   []closer
	closeOnce sync.Once
	closeErr  error
}

type closer struct {
	name string
	fn   func() error
}

// Factory returns a host.EnvironmentFactory that builds from setup.
func Factory(setup Setup) host.EnvironmentFactory {
	return func(token *shutdown.Token) (host.Environment, error) {
		env, err := Build(setup, token)
		if err != nil {
			return nil, err
		}
		return env, nil
	}
}

// Build constructs an Environment. On failure everything built so far is
// released before the error is returned.
func Build(setup Setup, token *shutdown.Token) (*Environment, error) {
	if token == nil {
		token = shutdown.New()
	}
	env := &Environment{token: token}
	if err := env.build(setup); err != nil {
		_ = env.Close()
		return nil, err
	}
	return env, nil
}

func (e *Environment) build(setup Setup) error {
	id, err := ResolveIdentity(setup.Identity)
	if err != nil {
		return err
	}
	e.identity = id

	logger, logFile, err := buildLogger(setup.Logging, id)
	if err != nil {
		return err
	}
	e.logger = logger
	if logFile != nil {
		e.addCloser("log file", logFile.Close)
	}
	buildLog := logger.With(log.Component("environment"))

	e.settings, err = e.buildSettings("settings", setup.Settings.Sources, setup.Settings.Watch, buildLog)
	if err != nil {
		return err
	}
	e.secrets, err = e.buildSettings("secrets", setup.Settings.SecretSources, setup.Settings.Watch, buildLog)
	if err != nil {
		return err
	}

	e.registry = setup.Metrics.Registry
	if e.registry == nil {
		e.registry = prometheus.NewRegistry()
		if !setup.Metrics.DisableRuntimeCollectors {
			e.registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}
	}
	info := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "apphost_info",
		Help: "Identity of the hosted application.",
	}, []string{"project", "environment", "application", "instance"})
	if err := e.registry.Register(info); err != nil {
		return fmt.Errorf("register info metric: %w", err)
	}
	info.WithLabelValues(id.Project, id.Environment, id.Application, id.Instance).Set(1)

	tp, shutdownTracing, err := buildTracerProvider(context.Background(), setup.Telemetry, id)
	if err != nil {
		return err
	}
	e.tracerP = tp
	e.addCloser("tracing", func() error { return shutdownTracing(context.Background()) })
	if setup.Telemetry.Endpoint == "" {
		buildLog.Info("tracing disabled: no OTLP endpoint configured")
	}

	if setup.Beacon.DirectoryURL == "" {
		buildLog.Info("beacon disabled: no directory URL configured")
		e.beacon = beacon.NewNoop()
	} else {
		client := setup.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: 30 * time.Second}
		}
		b, err := beacon.NewHTTP(beacon.Config{
			DirectoryURL:  setup.Beacon.DirectoryURL,
			AuthKey:       setup.Beacon.AuthKey,
			Identity:      id,
			Address:       setup.Beacon.Address,
			Properties:    setup.Beacon.Properties,
			RenewInterval: setup.Beacon.RenewInterval,
			Gate:          setup.Beacon.Gate,
		}, client, logger)
		if err != nil {
			return err
		}
		e.beacon = b
		// The host stops the beacon; stopping again on teardown covers hosts
		// that never ran.
		e.addCloser("beacon", func() error { b.Stop(); return nil })
	}

	buildLog.Info("environment ready", id.Fields()...)
	return nil
}

func (e *Environment) buildSettings(name string, sources []settings.Source, watch bool, logger log.Logger) (*settings.Provider, error) {
	p, err := settings.New(sources, settings.WithLogger(logger.With(log.String("provider", name))))
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}
	e.addCloser(name, p.Close)
	if watch && len(sources) > 0 {
		if err := p.Watch(context.Background()); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (e *Environment) addCloser(name string, fn func() error) {
	e.closers = append(e.closers, closer{name: name, fn: fn})
}

// Log returns the composite logger.
func (e *Environment) Log() log.Logger { return e.logger }

// Identity returns the resolved identity.
func (e *Environment) Identity() host.Identity { return e.identity }

// Beacon returns the presence beacon.
func (e *Environment) Beacon() host.Beacon { return e.beacon }

// ShutdownToken returns the host's shutdown token.
func (e *Environment) ShutdownToken() *shutdown.Token { return e.token }

// Settings returns the application settings provider.
func (e *Environment) Settings() *settings.Provider { return e.settings }

// Secrets returns the secrets provider.
func (e *Environment) Secrets() *settings.Provider { return e.secrets }

// Metrics returns the Prometheus registry for application metrics.
func (e *Environment) Metrics() *prometheus.Registry { return e.registry }

// TracerProvider returns the tracer provider.
func (e *Environment) TracerProvider() trace.TracerProvider { return e.tracerP }

// Close releases all components in reverse build order. It runs once;
// later calls return the first result.
func (e *Environment) Close() error {
	e.closeOnce.Do(func() {
		var errs []error
		for i := len(e.closers) - 1; i >= 0; i-- {
			c := e.closers[i]
			if err := c.fn(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
			}
		}
		e.closeErr = errors.Join(errs...)
	})
	return e.closeErr
}

var _ host.Environment = (*Environment)(nil)
