// Package statusserver exposes the host's lifecycle over HTTP: status,
// liveness and readiness checks, and Prometheus metrics.
package statusserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/apphost/pkg/host"
	"github.com/bft-labs/apphost/pkg/lifecycle"
	"github.com/bft-labs/apphost/pkg/log"
	"github.com/bft-labs/apphost/pkg/observable"
)

// Config holds configuration options for the status server plugin.
type Config struct {
	// Addr is the listen address. Default: ":9090"
	Addr string

	// ReadHeaderTimeout bounds reading request headers.
	// Default: 5 seconds
	ReadHeaderTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:              ":9090",
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Status is the body of GET /status.
type Status struct {
	State    string        `json:"state"`
	Since    time.Time     `json:"since"`
	Error    string        `json:"error,omitempty"`
	Identity host.Identity `json:"identity"`
}

// Plugin serves lifecycle status over HTTP.
type Plugin struct {
	cfg Config

	mu       sync.RWMutex
	logger   log.Logger
	identity host.Identity
	states   host.StateSource
	last     lifecycle.StateEvent
	server   *http.Server
	listener net.Listener
	sub      *observable.Subscription[lifecycle.StateEvent]
	wg       sync.WaitGroup
	metrics  *metrics
}

// New creates a new status server plugin with the given configuration.
func New(cfg Config) *Plugin {
	def := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = def.ReadHeaderTimeout
	}
	return &Plugin{cfg: cfg}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "statusserver"
}

// Initialize binds the listener and starts serving. A bind failure is
// returned so the host crashes instead of running without health checks.
func (p *Plugin) Initialize(ctx context.Context, pc host.PluginContext) error {
	registry := prometheus.NewRegistry()
	if src, ok := pc.Environment.(interface{ Metrics() *prometheus.Registry }); ok && src.Metrics() != nil {
		registry = src.Metrics()
	}
	m, err := newMetrics(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	ln, err := net.Listen("tcp", p.cfg.Addr)
	if err != nil {
		m.unregister()
		return fmt.Errorf("listen on %s: %w", p.cfg.Addr, err)
	}

	p.mu.Lock()
	p.logger = pc.Logger.With(log.Component(p.Name()))
	p.identity = pc.Environment.Identity()
	p.states = pc.States
	p.metrics = m
	p.listener = ln
	p.server = &http.Server{
		Handler:           p.router(registry),
		ReadHeaderTimeout: p.cfg.ReadHeaderTimeout,
	}
	p.sub = pc.States.Subscribe()
	p.mu.Unlock()

	p.wg.Add(2)
	go p.serve()
	go p.observe()

	p.logger.Info("status server listening", log.String("addr", ln.Addr().String()))
	return nil
}

// Shutdown stops the server and the state observer.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.RLock()
	server, sub := p.server, p.sub
	p.mu.RUnlock()

	if server == nil {
		return nil
	}

	err := server.Shutdown(ctx)
	sub.Close()
	p.wg.Wait()
	p.metrics.unregister()
	return err
}

// Addr returns the bound listen address, or nil before Initialize.
func (p *Plugin) Addr() net.Addr {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

func (p *Plugin) router(registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/status", p.handleStatus)
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", p.handleLive)
		r.Get("/ready", p.handleReady)
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	return r
}

func (p *Plugin) serve() {
	defer p.wg.Done()
	if err := p.server.Serve(p.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		p.logger.Error("status server failed", log.Err(err))
	}
}

// observe tracks the latest event and feeds the metrics.
func (p *Plugin) observe() {
	defer p.wg.Done()
	for ev := range p.sub.C() {
		p.mu.Lock()
		prev := p.last
		p.last = ev
		p.mu.Unlock()
		p.metrics.observe(prev, ev)
	}
}

func (p *Plugin) handleStatus(w http.ResponseWriter, r *http.Request) {
	p.mu.RLock()
	last := p.last
	status := Status{
		State:    p.states.State().String(),
		Since:    last.Time,
		Identity: p.identity,
	}
	p.mu.RUnlock()

	if last.Error != nil {
		status.Error = last.Error.Error()
	}
	writeJSON(w, http.StatusOK, status)
}

func (p *Plugin) handleLive(w http.ResponseWriter, r *http.Request) {
	state := p.states.State()
	if state == lifecycle.StateCrashed {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"state": state.String()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": state.String()})
}

func (p *Plugin) handleReady(w http.ResponseWriter, r *http.Request) {
	state := p.states.State()
	code := http.StatusServiceUnavailable
	if state == lifecycle.StateRunning {
		code = http.StatusOK
	}
	writeJSON(w, code, map[string]string{"state": state.String()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Ensure Plugin implements host.Plugin.
var _ host.Plugin = (*Plugin)(nil)
