package statusserver

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/apphost/pkg/lifecycle"
)

var allStates = []lifecycle.ApplicationState{
	lifecycle.StateNotInitialized,
	lifecycle.StateInitializing,
	lifecycle.StateInitialized,
	lifecycle.StateRunning,
	lifecycle.StateStopping,
	lifecycle.StateStopped,
	lifecycle.StateExited,
	lifecycle.StateCrashed,
}

type metrics struct {
	registry    prometheus.Registerer
	state       *prometheus.GaugeVec
	transitions *prometheus.CounterVec
	durations   *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		registry: reg,
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "apphost_application_state",
			Help: "1 for the current lifecycle state, 0 otherwise.",
		}, []string{"state"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apphost_state_transitions_total",
			Help: "Lifecycle states entered.",
		}, []string{"state"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "apphost_phase_duration_seconds",
			Help:    "Time spent in a lifecycle state before leaving it.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"state"}),
	}

	for i, c := range []prometheus.Collector{m.state, m.transitions, m.durations} {
		if err := reg.Register(c); err != nil {
			for _, done := range []prometheus.Collector{m.state, m.transitions, m.durations}[:i] {
				reg.Unregister(done)
			}
			return nil, err
		}
	}
	return m, nil
}

func (m *metrics) observe(prev, ev lifecycle.StateEvent) {
	for _, s := range allStates {
		v := 0.0
		if s == ev.State {
			v = 1
		}
		m.state.WithLabelValues(s.String()).Set(v)
	}
	m.transitions.WithLabelValues(ev.State.String()).Inc()
	if !prev.Time.IsZero() && prev.State != ev.State {
		m.durations.WithLabelValues(prev.State.String()).Observe(ev.Time.Sub(prev.Time).Seconds())
	}
}

func (m *metrics) unregister() {
	m.registry.Unregister(m.state)
	m.registry.Unregister(m.transitions)
	m.registry.Unregister(m.durations)
}
