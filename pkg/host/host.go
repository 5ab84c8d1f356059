package host

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bft-labs/apphost/pkg/lifecycle"
	"github.com/bft-labs/apphost/pkg/log"
	"github.com/bft-labs/apphost/pkg/observable"
	"github.com/bft-labs/apphost/pkg/shutdown"
)

const tracerName = "github.com/bft-labs/apphost/pkg/host"

// Host runs one Application through its lifecycle.
//
// A Host is single-use: Run may be called once. State, Subscribe, Shutdown
// and ShutdownToken are safe to call from any goroutine at any time.
type Host struct {
	settings Settings
	opts     options

	env     Environment
	token   *shutdown.Token
	machine *lifecycle.Machine
	logger  log.Logger
	tracer  trace.Tracer

	started   atomic.Bool
	closeOnce sync.Once

	// plugins that initialized successfully, in initialization order
	active []Plugin
}

// New validates settings, creates the shutdown token and builds the
// environment. An environment factory error is returned as is, wrapped.
func New(settings Settings, opts ...Option) (*Host, error) {
	settings.SetDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	token := shutdown.New()
	env, err := settings.EnvironmentFactory(token)
	if err != nil {
		return nil, fmt.Errorf("apphost: create environment: %w", err)
	}
	if env == nil {
		return nil, fmt.Errorf("%w: environment factory returned nil", ErrInvalidSettings)
	}

	logger := env.Log()
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	tp := o.tracerProvider
	if tp == nil {
		if src, ok := env.(interface{ TracerProvider() trace.TracerProvider }); ok {
			tp = src.TracerProvider()
		}
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	var emitter lifecycle.EventEmitter
	if len(o.emitters) > 0 {
		emitter = emitterList(o.emitters)
	}

	return &Host{
		settings: settings,
		opts:     o,
		env:      env,
		token:    token,
		machine:  lifecycle.NewMachine(logger.With(log.Component("lifecycle")), emitter),
		logger:   logger.With(log.Component("host")),
		tracer:   tp.Tracer(tracerName),
	}, nil
}

// State returns the current lifecycle state.
func (h *Host) State() lifecycle.ApplicationState {
	return h.machine.State()
}

// Subscribe returns a subscription that immediately delivers the current
// state and then later changes. Intermediate states may be skipped by slow
// readers; use WithEventEmitter to see every transition. The channel is
// closed once the run result has been determined and the host torn down.
func (h *Host) Subscribe() *observable.Subscription[lifecycle.StateEvent] {
	return h.machine.Subscribe()
}

// ShutdownToken returns the token that is signaled when shutdown is requested.
func (h *Host) ShutdownToken() *shutdown.Token {
	return h.token
}

// Shutdown requests a graceful stop. It returns true only for the call that
// actually signaled the token. It never blocks.
func (h *Host) Shutdown() bool {
	return h.token.Request()
}

// Environment returns the environment built by New.
func (h *Host) Environment() Environment {
	return h.env
}

// Close releases the environment of a host that will never be run and
// marks it as used. Once Run has been called it does nothing, since Run
// tears the environment down itself.
func (h *Host) Close() error {
	if !h.started.CompareAndSwap(false, true) {
		return nil
	}
	err := h.closeEnvironment()
	h.machine.Close()
	return err
}

// Run drives the application to a terminal state and returns the result.
//
// Cancellation of ctx is treated like Shutdown. The returned error is only
// non-nil for misuse, such as calling Run a second time; application
// failures are reported through RunResult.
func (h *Host) Run(ctx context.Context) (lifecycle.RunResult, error) {
	if !h.started.CompareAndSwap(false, true) {
		return lifecycle.RunResult{}, &lifecycle.MisuseError{Op: "Run", Err: lifecycle.ErrAlreadyStarted}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	stop := context.AfterFunc(ctx, func() { h.token.Request() })
	defer stop()

	h.logger.Info("starting application host", h.env.Identity().Fields()...)

	result, ok := h.initialize()
	if ok {
		result = h.run()
	}

	h.shutdownPlugins()
	h.closeEnvironment()
	h.machine.Close()

	h.logger.Info("application host finished", log.String("status", result.Status.String()))
	return result, nil
}

func (h *Host) initialize() (lifecycle.RunResult, bool) {
	ctx, span := h.tracer.Start(h.token.Context(), "apphost.initialize")
	defer span.End()

	h.transition(lifecycle.StateInitializing, nil)

	pc := PluginContext{
		Environment: h.env,
		Logger:      h.logger,
		States:      h.machine,
	}
	for _, p := range h.opts.plugins {
		if err := h.call("plugin initialize", func() error {
			return p.Initialize(ctx, pc)
		}); err != nil {
			err = fmt.Errorf("initialize plugin %s: %w", p.Name(), err)
			return h.crash(span, err), false
		}
		h.active = append(h.active, p)
	}

	h.logger.Info("initializing application")
	if err := h.call("initialize", func() error {
		return h.settings.Application.Initialize(ctx, h.env)
	}); err != nil {
		h.logger.Error("application initialization failed", log.Err(err))
		return h.crash(span, err), false
	}

	h.transition(lifecycle.StateInitialized, nil)
	return lifecycle.RunResult{}, true
}

func (h *Host) run() lifecycle.RunResult {
	ctx, span := h.tracer.Start(h.token.Context(), "apphost.run")
	defer span.End()

	h.transition(lifecycle.StateRunning, nil)

	beacon := h.env.Beacon()
	if beacon == nil {
		beacon = noopBeacon{}
	}
	var beaconOnce sync.Once
	stopBeacon := func() {
		beaconOnce.Do(func() {
			if err := h.call("beacon stop", func() error { beacon.Stop(); return nil }); err != nil {
				h.logger.Error("beacon stop failed", log.Err(err))
			}
		})
	}
	defer stopBeacon()

	if err := h.call("beacon start", func() error { beacon.Start(); return nil }); err != nil {
		h.logger.Error("beacon start failed", log.Err(err))
		return h.crash(span, err)
	}

	done := make(chan error, 1)
	h.logger.Info("running application")
	go func() {
		done <- h.call("run", func() error {
			return h.settings.Application.Run(ctx, h.env)
		})
	}()

	select {
	case err := <-done:
		stopBeacon()
		if !h.token.Requested() {
			return h.exited(span, err)
		}
		// Finished while a shutdown was being requested.
		h.transition(lifecycle.StateStopping, nil)
		return h.stopped(span, err)

	case <-h.token.Done():
		stopBeacon()
		h.transition(lifecycle.StateStopping, nil)
		h.logger.Info("stopping application", log.Duration("timeout", h.settings.ShutdownTimeout))
		span.AddEvent("shutdown requested")

		timer := time.NewTimer(h.settings.ShutdownTimeout)
		defer timer.Stop()

		select {
		case err := <-done:
			return h.stopped(span, err)
		case <-timer.C:
			go h.watchAbandoned(done)
			err := &lifecycle.ShutdownTimeoutError{Timeout: h.settings.ShutdownTimeout}
			h.logger.Error("application did not stop in time", log.Err(err))
			return h.crash(span, err)
		}
	}
}

func (h *Host) exited(span trace.Span, err error) lifecycle.RunResult {
	if err != nil && !isCancellation(err) {
		h.logger.Error("application failed", log.Err(err))
		return h.crash(span, err)
	}
	h.transition(lifecycle.StateExited, nil)
	span.SetAttributes(attribute.String("apphost.status", lifecycle.ApplicationExited.String()))
	return lifecycle.Exited()
}

func (h *Host) stopped(span trace.Span, err error) lifecycle.RunResult {
	if err != nil && !isCancellation(err) {
		h.logger.Warn("application returned an error while stopping", log.Err(err))
	}
	h.transition(lifecycle.StateStopped, nil)
	span.SetAttributes(attribute.String("apphost.status", lifecycle.ApplicationStopped.String()))
	return lifecycle.Stopped()
}

func (h *Host) crash(span trace.Span, err error) lifecycle.RunResult {
	h.transition(lifecycle.StateCrashed, err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("apphost.status", lifecycle.ApplicationCrashed.String()))
	return lifecycle.Crashed(err)
}

// watchAbandoned logs the late exit of an application the host gave up on.
// By then the environment has been closed, so the message only reaches
// sinks that outlive it, such as the console; file sinks are already closed.
func (h *Host) watchAbandoned(done <-chan error) {
	err := <-done
	fields := []log.Field{}
	if err != nil {
		fields = append(fields, log.Err(err))
	}
	h.logger.Warn("abandoned application exited after shutdown timeout", fields...)
}

// transition panics on an invalid transition: the host only drives valid ones.
func (h *Host) transition(state lifecycle.ApplicationState, err error) {
	if terr := h.machine.TransitionTo(state, err); terr != nil {
		panic(terr)
	}
}

// call runs fn and converts a panic into a *lifecycle.PanicError.
func (h *Host) call(phase string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &lifecycle.PanicError{Phase: phase, Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

func (h *Host) shutdownPlugins() {
	for i := len(h.active) - 1; i >= 0; i-- {
		p := h.active[i]
		ctx, cancel := context.WithTimeout(context.Background(), h.opts.pluginShutdownTimeout)
		if err := h.call("plugin shutdown", func() error {
			return p.Shutdown(ctx)
		}); err != nil {
			h.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(err),
			)
		}
		cancel()
	}
	h.active = nil
}

func (h *Host) closeEnvironment() error {
	var err error
	h.closeOnce.Do(func() {
		if err = h.call("environment close", h.env.Close); err != nil {
			h.logger.Error("environment teardown failed", log.Err(err))
		}
	})
	return err
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
