package host

import (
	"errors"
	"fmt"
	"time"
)

// DefaultShutdownTimeout is the grace period used when Settings leaves
// ShutdownTimeout unset.
const DefaultShutdownTimeout = 30 * time.Second

// ErrInvalidSettings is returned by New when settings validation fails.
var ErrInvalidSettings = errors.New("apphost: invalid settings")

// Settings configures a Host.
type Settings struct {
	// Application is the hosted application. Required.
	Application Application

	// EnvironmentFactory builds the environment. Required.
	EnvironmentFactory EnvironmentFactory

	// ShutdownTimeout bounds the wait for the application after shutdown is
	// requested. Default: DefaultShutdownTimeout
	ShutdownTimeout time.Duration
}

// SetDefaults fills zero values with defaults.
func (s *Settings) SetDefaults() {
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Validate checks the settings for errors.
func (s Settings) Validate() error {
	if s.Application == nil {
		return fmt.Errorf("%w: application is required", ErrInvalidSettings)
	}
	if s.EnvironmentFactory == nil {
		return fmt.Errorf("%w: environment factory is required", ErrInvalidSettings)
	}
	if s.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: shutdown timeout must not be negative", ErrInvalidSettings)
	}
	return nil
}
