package beacon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bft-labs/apphost/internal/backoff"
	"github.com/bft-labs/apphost/pkg/host"
	"github.com/bft-labs/apphost/pkg/log"
)

const replicasEndpoint = "/v1/replicas"

// Config configures an HTTP beacon.
type Config struct {
	// DirectoryURL is the base URL of the service directory. Required.
	DirectoryURL string

	// AuthKey is sent as a bearer token when set.
	AuthKey string

	// Identity names the replica being announced.
	Identity host.Identity

	// Address is the address other processes should use to reach the replica.
	Address string

	// Properties are free-form replica attributes.
	Properties map[string]string

	// RenewInterval is the time between successful registrations.
	// Default: 10s
	RenewInterval time.Duration

	// RequestTimeout bounds each request to the directory.
	// Default: 5s
	RequestTimeout time.Duration

	// RetryInitial and RetryMax bound the backoff between failed attempts.
	// Default: 500ms and 30s
	RetryInitial time.Duration
	RetryMax     time.Duration

	// Gate withholds registration while it returns false. Nil allows always.
	Gate Gate
}

func (c *Config) setDefaults() {
	if c.RenewInterval <= 0 {
		c.RenewInterval = 10 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Second
	}
	if c.RetryInitial <= 0 {
		c.RetryInitial = 500 * time.Millisecond
	}
	if c.RetryMax <= 0 {
		c.RetryMax = 30 * time.Second
	}
}

// Replica is the registration document sent to the directory.
type Replica struct {
	Project     string            `json:"project"`
	Environment string            `json:"environment"`
	Service     string            `json:"service"`
	Instance    string            `json:"instance"`
	Address     string            `json:"address,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
}

// HTTP announces the replica to a service directory.
type HTTP struct {
	cfg    Config
	client HTTPClient
	logger log.Logger
	url    string

	mu         sync.Mutex
	cancel     context.CancelFunc
	done       chan struct{}
	registered bool
	startedAt  time.Time
}

// NewHTTP creates an HTTP beacon. A nil client uses http.DefaultClient.
func NewHTTP(cfg Config, client HTTPClient, logger log.Logger) (*HTTP, error) {
	cfg.setDefaults()
	if cfg.DirectoryURL == "" {
		return nil, errors.New("beacon: directory URL is required")
	}
	if _, err := url.Parse(cfg.DirectoryURL); err != nil {
		return nil, fmt.Errorf("beacon: invalid directory URL: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	replicaURL := strings.TrimRight(cfg.DirectoryURL, "/") + replicasEndpoint + "/" +
		url.PathEscape(cfg.Identity.ServiceName()) + "/" + url.PathEscape(cfg.Identity.Instance)

	return &HTTP{
		cfg:    cfg,
		client: client,
		logger: logger.With(log.Component("beacon")),
		url:    replicaURL,
	}, nil
}

// Start begins registering the replica in the background.
// Calling Start while already started does nothing.
func (b *HTTP) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})
	b.startedAt = time.Now().UTC()

	go b.loop(ctx, b.done)
	b.logger.Info("beacon started", log.String("url", b.url))
}

// Stop halts renewal and deregisters the replica if it was registered.
// It blocks until deregistration completes or RequestTimeout elapses.
func (b *HTTP) Stop() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel = nil
	b.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	if b.isRegistered() {
		if err := b.deregister(context.Background()); err != nil {
			b.logger.Warn("failed to deregister replica", log.Err(err))
		}
	}
	b.logger.Info("beacon stopped")
}

// Registered reports whether the last registration attempt succeeded.
func (b *HTTP) Registered() bool {
	return b.isRegistered()
}

func (b *HTTP) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	bo := backoff.New(b.cfg.RetryInitial, b.cfg.RetryMax)
	for {
		wait := b.cfg.RenewInterval

		if b.cfg.Gate != nil && !b.cfg.Gate.Allowed() {
			if b.isRegistered() {
				b.logger.Info("registration no longer allowed, withdrawing replica")
				if err := b.deregister(ctx); err != nil {
					b.logger.Warn("failed to deregister replica", log.Err(err))
				}
			}
		} else if err := b.register(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			wait = bo.Next()
			b.logger.Warn("failed to register replica",
				log.Err(err),
				log.Duration("retry_in", wait),
			)
		} else {
			bo.Reset()
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (b *HTTP) register(ctx context.Context) error {
	replica := Replica{
		Project:     b.cfg.Identity.Project,
		Environment: b.cfg.Identity.Environment,
		Service:     b.cfg.Identity.ServiceName(),
		Instance:    b.cfg.Identity.Instance,
		Address:     b.cfg.Address,
		Properties:  b.cfg.Properties,
		StartedAt:   b.startedAt,
	}
	body, err := json.Marshal(replica)
	if err != nil {
		return fmt.Errorf("marshal replica: %w", err)
	}

	if err := b.do(ctx, http.MethodPut, body); err != nil {
		b.setRegistered(false)
		return err
	}

	if !b.isRegistered() {
		b.logger.Info("replica registered")
	}
	b.setRegistered(true)
	return nil
}

func (b *HTTP) deregister(ctx context.Context) error {
	err := b.do(ctx, http.MethodDelete, nil)
	if err == nil {
		b.setRegistered(false)
	}
	return err
}

func (b *HTTP) do(ctx context.Context, method string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.RequestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.cfg.AuthKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.cfg.AuthKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 && !(method == http.MethodDelete && resp.StatusCode == http.StatusNotFound) {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("directory returned %d: %s", resp.StatusCode, string(respBody))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (b *HTTP) isRegistered() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.registered
}

func (b *HTTP) setRegistered(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registered = v
}

var (
	_ host.Beacon = (*HTTP)(nil)
	_ host.Beacon = Noop{}
)
