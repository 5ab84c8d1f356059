// Package statenotifier publishes host lifecycle changes as CloudEvents to
// an HTTP webhook.
//
// Events are sent in structured mode (application/cloudevents+json). Like
// every state subscriber, the notifier may skip intermediate states when the
// webhook is slower than the host; the terminal state is always delivered
// before Shutdown returns, unless its context expires first.
package statenotifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/bft-labs/apphost/internal/backoff"
	"github.com/bft-labs/apphost/internal/ports"
	"github.com/bft-labs/apphost/pkg/host"
	"github.com/bft-labs/apphost/pkg/lifecycle"
	"github.com/bft-labs/apphost/pkg/log"
	"github.com/bft-labs/apphost/pkg/observable"
)

// HTTPClient sends webhook requests. *http.Client satisfies it.
type HTTPClient = ports.HTTPClient

// EventType is the CloudEvents type of every notification.
const EventType = "io.apphost.state.changed"

// Config holds configuration options for the state notifier plugin.
type Config struct {
	// URL is the webhook endpoint. Required.
	URL string

	// AuthKey is sent as a bearer token when set.
	AuthKey string

	// MaxAttempts bounds delivery attempts per event. Default: 5
	MaxAttempts int

	// RetryInitial and RetryMax bound the backoff between attempts.
	// Default: 200ms and 5s
	RetryInitial time.Duration
	RetryMax     time.Duration

	// Client sends the requests. Default: a client with a 10s timeout.
	Client HTTPClient
}

// StateData is the event payload.
type StateData struct {
	State       string    `json:"state"`
	Error       string    `json:"error,omitempty"`
	Time        time.Time `json:"time"`
	Project     string    `json:"project"`
	Environment string    `json:"environment"`
	Application string    `json:"application"`
	Instance    string    `json:"instance"`
}

// Plugin delivers state events to a webhook.
type Plugin struct {
	cfg Config

	logger   log.Logger
	identity host.Identity
	sub      *observable.Subscription[lifecycle.StateEvent]
	cancel   context.CancelFunc
	stopping chan struct{}
	done     chan struct{}
	once     sync.Once
}

// New creates a new state notifier plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = 200 * time.Millisecond
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 5 * time.Second
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Plugin{cfg: cfg}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "statenotifier"
}

// Initialize subscribes to state changes and starts delivering them.
func (p *Plugin) Initialize(ctx context.Context, pc host.PluginContext) error {
	if p.cfg.URL == "" {
		return errors.New("statenotifier: webhook URL is required")
	}

	p.logger = pc.Logger.With(log.Component(p.Name()))
	p.identity = pc.Environment.Identity()
	p.sub = pc.States.Subscribe()
	p.stopping = make(chan struct{})
	p.done = make(chan struct{})

	runCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.run(runCtx)

	p.logger.Info("state notifier started", log.String("url", p.cfg.URL))
	return nil
}

// Shutdown delivers the pending event, if any, and stops. Delivery is
// abandoned when ctx expires.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.done == nil {
		return nil
	}
	p.once.Do(func() { close(p.stopping) })

	select {
	case <-p.done:
	case <-ctx.Done():
		p.cancel()
		<-p.done
	}
	p.cancel()
	p.sub.Close()
	return nil
}

func (p *Plugin) run(ctx context.Context) {
	defer close(p.done)

	for {
		select {
		case ev, ok := <-p.sub.C():
			if !ok {
				return
			}
			p.deliver(ctx, ev)
		case <-p.stopping:
			select {
			case ev, ok := <-p.sub.C():
				if ok {
					p.deliver(ctx, ev)
				}
			default:
			}
			return
		}
	}
}

func (p *Plugin) deliver(ctx context.Context, ev lifecycle.StateEvent) {
	body, err := p.encode(ev)
	if err != nil {
		p.logger.Error("failed to encode state event", log.Err(err))
		return
	}

	bo := backoff.New(p.cfg.RetryInitial, p.cfg.RetryMax)
	for attempt := 1; ; attempt++ {
		err := p.send(ctx, body)
		if err == nil {
			return
		}
		if attempt >= p.cfg.MaxAttempts {
			p.logger.Error("dropping state event after retries",
				log.String("state", ev.State.String()),
				log.Int("attempts", attempt),
				log.Err(err),
			)
			return
		}
		p.logger.Warn("state event delivery failed", log.Int("attempt", attempt), log.Err(err))
		if bo.Wait(ctx) != nil {
			return
		}
	}
}

func (p *Plugin) encode(ev lifecycle.StateEvent) ([]byte, error) {
	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetType(EventType)
	event.SetSource(fmt.Sprintf("apphost/%s/%s/%s", p.identity.Environment, p.identity.ServiceName(), p.identity.Instance))
	event.SetSubject(ev.State.String())
	event.SetTime(ev.Time)

	data := StateData{
		State:       ev.State.String(),
		Time:        ev.Time,
		Project:     p.identity.Project,
		Environment: p.identity.Environment,
		Application: p.identity.Application,
		Instance:    p.identity.Instance,
	}
	if ev.Error != nil {
		data.Error = ev.Error.Error()
	}
	if err := event.SetData(cloudevents.ApplicationJSON, data); err != nil {
		return nil, fmt.Errorf("set event data: %w", err)
	}
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}
	return json.Marshal(event)
}

func (p *Plugin) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", cloudevents.ApplicationCloudEventsJSON)
	if p.cfg.AuthKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.AuthKey)
	}

	resp, err := p.cfg.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Ensure Plugin implements host.Plugin.
var _ host.Plugin = (*Plugin)(nil)
