package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config holds CLI configuration for apphost.
type Config struct {
	Project     string
	Subproject  string
	Environment string
	Application string
	Instance    string

	ShutdownTimeout time.Duration

	LogLevel string
	LogFile  string
	LogJSON  bool

	DirectoryURL  string
	AuthKey       string
	Address       string
	RenewInterval time.Duration
	CPUThreshold  float64

	StatusAddr string
	NotifyURL  string

	OTLPEndpoint string
	OTLPInsecure bool
	SampleRate   float64

	SettingsFiles     []string
	SecretFiles       []string
	SettingsEnvPrefix string
	WatchSettings     bool

	InitCommand string
	WorkDir     string
	KillDelay   time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Project:           "default",
		Environment:       "default",
		ShutdownTimeout:   30 * time.Second,
		LogLevel:          "info",
		RenewInterval:     10 * time.Second,
		SampleRate:        1.0,
		SettingsEnvPrefix: "APP_",
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Application == "" {
		return fmt.Errorf("application is required")
	}
	if c.Project == "" {
		return fmt.Errorf("project is required")
	}
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample rate must be between 0 and 1")
	}

	// Ensure no trailing slash
	c.DirectoryURL = strings.TrimRight(c.DirectoryURL, "/")

	if c.CPUThreshold < 0 || c.CPUThreshold > 1 {
		return fmt.Errorf("cpu threshold must be between 0 and 1")
	}

	if c.DirectoryURL != "" && c.RenewInterval <= 0 {
		return fmt.Errorf("renew interval must be positive")
	}

	return nil
}

// InitArgs returns the argv that runs InitCommand through "sh -c", so the
// command may use shell quoting, pipes and variables. Empty when unset.
func (c *Config) InitArgs() []string {
	if strings.TrimSpace(c.InitCommand) == "" {
		return nil
	}
	return []string{"sh", "-c", c.InitCommand}
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a slice value if not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

// setFloat sets a float64 value from a pointer if not nil and flag not changed.
// Zero is a valid value.
func (s *configSetter) setFloat(flag string, value *float64, dst *float64) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
// Zero is a valid value; range checks are left to Validate.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

// setStringsFromString splits a comma-separated list.
// Used for environment variables that come as strings.
func (s *configSetter) setStringsFromString(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}
