package settings

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/apphost/pkg/log"
)

// ErrNotFound is returned by Decode when the path does not exist.
var ErrNotFound = errors.New("settings: path not found")

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger used for reload and watch events.
func WithLogger(logger log.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithDebounce sets how long Watch waits after a file event before reloading.
// Default: 100ms
func WithDebounce(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.debounce = d
		}
	}
}

// Provider holds the merged result of its sources.
type Provider struct {
	sources  []Source
	logger   log.Logger
	debounce time.Duration

	mu        sync.RWMutex
	values    map[string]any
	listeners []func()

	watchMu sync.Mutex
	stop    func()
	wg      sync.WaitGroup
	timer   *time.Timer
}

// New creates a provider and performs the initial load.
func New(sources []Source, opts ...Option) (*Provider, error) {
	p := &Provider{
		sources:  sources,
		logger:   log.NewNoopLogger(),
		debounce: 100 * time.Millisecond,
		values:   map[string]any{},
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload reads every source again and swaps in the merged result.
// On error the previous values are kept. OnChange callbacks run after a
// successful reload.
func (p *Provider) Reload() error {
	merged := map[string]any{}
	for _, src := range p.sources {
		values, err := src.Load()
		if err != nil {
			return fmt.Errorf("settings: load %s: %w", src.Name(), err)
		}
		merge(merged, normalize(values))
	}

	p.mu.Lock()
	p.values = merged
	listeners := append([]func(){}, p.listeners...)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	return nil
}

// Get returns the value at a dotted path such as "database.dsn".
func (p *Provider) Get(path string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return lookup(p.values, path)
}

// String returns the value at path formatted as a string, or "" if absent.
func (p *Provider) String(path string) string {
	v, ok := p.Get(path)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Decode decodes the subtree at path into dst. The empty path decodes
// everything.
func (p *Provider) Decode(path string, dst any) error {
	p.mu.RLock()
	v, ok := lookup(p.values, path)
	p.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err := decode(v, dst); err != nil {
		return fmt.Errorf("settings: decode %q: %w", path, err)
	}
	return nil
}

// Snapshot returns a deep copy of the merged values.
func (p *Provider) Snapshot() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return deepCopy(p.values)
}

// OnChange registers fn to be called after each successful reload.
func (p *Provider) OnChange(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Sources returns the provider's sources.
func (p *Provider) Sources() []Source {
	return p.sources
}
