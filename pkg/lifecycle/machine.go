package lifecycle

import (
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/apphost/pkg/log"
	"github.com/bft-labs/apphost/pkg/observable"
)

// EventEmitter is called synchronously for every state change, in order.
type EventEmitter interface {
	OnStateChange(previous ApplicationState, event StateEvent)
}

// Machine holds the current ApplicationState and publishes every change.
// It has a single writer (the host); any number of goroutines may read
// State or subscribe.
type Machine struct {
	mu      sync.RWMutex
	state   ApplicationState
	events  *observable.Latest[StateEvent]
	logger  log.Logger
	emitter EventEmitter
	now     func() time.Time
}

// NewMachine creates a machine in StateNotInitialized and publishes that
// initial state so subscribers never observe an unknown state.
func NewMachine(logger log.Logger, emitter EventEmitter) *Machine {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	m := &Machine{
		state:   StateNotInitialized,
		events:  observable.NewLatest[StateEvent](),
		logger:  logger,
		emitter: emitter,
		now:     time.Now,
	}
	m.events.Publish(StateEvent{State: StateNotInitialized, Time: m.now()})
	return m
}

// State returns the current lifecycle state.
func (m *Machine) State() ApplicationState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// TransitionTo moves the machine to newState. err is attached to the event
// and is only meaningful for StateCrashed.
// Returns ErrInvalidTransition if the transition is not valid.
func (m *Machine) TransitionTo(newState ApplicationState, err error) error {
	m.mu.Lock()
	oldState := m.state

	if !CanTransition(oldState, newState) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, oldState, newState)
	}

	m.state = newState
	m.mu.Unlock()

	event := StateEvent{State: newState, Error: err, Time: m.now()}

	// Emit outside of lock
	if m.emitter != nil {
		m.emitter.OnStateChange(oldState, event)
	}
	m.events.Publish(event)

	fields := []log.Field{
		log.String("from", oldState.String()),
		log.String("to", newState.String()),
	}
	if err != nil {
		fields = append(fields, log.Err(err))
	}
	m.logger.Info("state transition", fields...)

	return nil
}

// Subscribe returns a subscription that immediately holds the latest event.
func (m *Machine) Subscribe() *observable.Subscription[StateEvent] {
	return m.events.Subscribe()
}

// Latest returns the most recently published event.
func (m *Machine) Latest() StateEvent {
	ev, _ := m.events.Latest()
	return ev
}

// Close closes all subscriptions. The final event stays readable.
func (m *Machine) Close() {
	m.events.Close()
}
