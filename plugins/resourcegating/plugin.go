// Package resourcegating withholds the instance's service directory
// registration while the machine is saturated.
//
// The plugin samples CPU utilization from /proc/stat and implements
// beacon.Gate.
// Pass the same Plugin as the beacon gate and as a host plugin: the gate
// stays open until the plugin is initialized and after it shuts down.
package resourcegating

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/procfs"

	"github.com/bft-labs/apphost/pkg/beacon"
	"github.com/bft-labs/apphost/pkg/host"
	"github.com/bft-labs/apphost/pkg/log"
)

// UsageFunc reports CPU utilization as a fraction in [0, 1].
type UsageFunc func() (float64, error)

// Config holds configuration options for the resource gating plugin.
type Config struct {
	// CPUThreshold is the CPU usage fraction (0.0-1.0) at or above which
	// registration is withheld.
	// Default: 0.85
	CPUThreshold float64

	// Consecutive is how many saturated samples in a row close the gate.
	// A single sample below the threshold reopens it.
	// Default: 3
	Consecutive int

	// SampleInterval is the time between samples.
	// Default: 5 seconds
	SampleInterval time.Duration

	// Usage reads CPU utilization. Default: deltas of /proc/stat read
	// through procfs.
	Usage UsageFunc
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CPUThreshold:   0.85,
		Consecutive:    3,
		SampleInterval: 5 * time.Second,
	}
}

func defaultUsage() UsageFunc {
	s, err := newProcStatSampler(procfs.DefaultMountPoint)
	if err != nil {
		return func() (float64, error) { return 0, err }
	}
	return s.Usage
}

// Plugin implements resource gating functionality.
type Plugin struct {
	cfg Config

	allowed atomic.Bool

	mu     sync.Mutex
	logger log.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a new resource gating plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.CPUThreshold <= 0 {
		cfg.CPUThreshold = 0.85
	}
	if cfg.Consecutive <= 0 {
		cfg.Consecutive = 3
	}
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 5 * time.Second
	}
	if cfg.Usage == nil {
		cfg.Usage = defaultUsage()
	}

	p := &Plugin{cfg: cfg}
	p.allowed.Store(true)
	return p
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "resourcegating"
}

// Initialize starts sampling. If utilization cannot be read the gate stays
// open and the plugin does nothing.
func (p *Plugin) Initialize(ctx context.Context, pc host.PluginContext) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger = pc.Logger
	if _, err := p.cfg.Usage(); err != nil {
		p.logger.Warn("resource gating disabled: cpu usage unavailable", log.Err(err))
		return nil
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.sampleLoop(loopCtx)

	p.logger.Info("resource gating plugin initialized",
		log.Any("cpu_threshold", p.cfg.CPUThreshold),
		log.Duration("sample_interval", p.cfg.SampleInterval),
	)
	return nil
}

// Shutdown stops sampling and reopens the gate.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	p.allowed.Store(true)
	return nil
}

// Allowed reports whether registration may proceed.
func (p *Plugin) Allowed() bool {
	return p.allowed.Load()
}

func (p *Plugin) sampleLoop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.cfg.SampleInterval)
	defer ticker.Stop()

	saturated := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		usage, err := p.cfg.Usage()
		if err != nil {
			p.logger.Debug("cpu usage sample failed", log.Err(err))
			continue
		}

		if usage < p.cfg.CPUThreshold {
			saturated = 0
			if !p.allowed.Swap(true) {
				p.logger.Info("cpu usage recovered, registration allowed", log.Any("cpu_usage", usage))
			}
			continue
		}

		saturated++
		if saturated >= p.cfg.Consecutive && p.allowed.Swap(false) {
			p.logger.Warn("cpu saturated, withholding registration", log.Any("cpu_usage", usage))
		}
	}
}

// procStatSampler derives utilization from successive CPU totals of a
// proc filesystem.
type procStatSampler struct {
	fs procfs.FS

	mu        sync.Mutex
	prevIdle  float64
	prevTotal float64
}

func newProcStatSampler(mountPoint string) (*procStatSampler, error) {
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, err
	}
	return &procStatSampler{fs: fs}, nil
}

// Usage returns utilization since the previous call. The first call
// reports utilization since boot.
func (s *procStatSampler) Usage() (float64, error) {
	stat, err := s.fs.Stat()
	if err != nil {
		return 0, err
	}
	cpu := stat.CPUTotal
	// Guest time is already counted in User.
	idle := cpu.Idle + cpu.Iowait
	total := cpu.User + cpu.Nice + cpu.System + idle + cpu.IRQ + cpu.SoftIRQ + cpu.Steal

	s.mu.Lock()
	defer s.mu.Unlock()

	dIdle, dTotal := idle-s.prevIdle, total-s.prevTotal
	s.prevIdle, s.prevTotal = idle, total
	if dTotal <= 0 {
		return 0, nil
	}
	return 1 - dIdle/dTotal, nil
}

// Ensure Plugin implements host.Plugin and beacon.Gate.
var (
	_ host.Plugin = (*Plugin)(nil)
	_ beacon.Gate = (*Plugin)(nil)
)
