package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Project     string `toml:"project"`
	Subproject  string `toml:"subproject"`
	Environment string `toml:"environment"`
	Application string `toml:"application"`
	Instance    string `toml:"instance"`

	ShutdownTimeout string `toml:"shutdown_timeout"`

	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`
	LogJSON  *bool  `toml:"log_json"`

	DirectoryURL  string `toml:"directory_url"`
	AuthKey       string `toml:"auth_key"`
	Address       string `toml:"address"`
	RenewInterval string  `toml:"renew_interval"`
	CPUThreshold  *float64 `toml:"cpu_threshold"`

	StatusAddr string `toml:"status_addr"`
	NotifyURL  string `toml:"notify_url"`

	OTLPEndpoint string  `toml:"otlp_endpoint"`
	OTLPInsecure *bool   `toml:"otlp_insecure"`
	SampleRate   *float64 `toml:"sample_rate"`

	SettingsFiles     []string `toml:"settings_files"`
	SecretFiles       []string `toml:"secret_files"`
	SettingsEnvPrefix string   `toml:"settings_env_prefix"`
	WatchSettings     *bool    `toml:"watch_settings"`

	InitCommand string `toml:"init_command"`
	WorkDir     string `toml:"work_dir"`
	KillDelay   string `toml:"kill_delay"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.apphost/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".apphost", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("project", fc.Project, &cfg.Project)
	s.setString("subproject", fc.Subproject, &cfg.Subproject)
	s.setString("environment", fc.Environment, &cfg.Environment)
	s.setString("application", fc.Application, &cfg.Application)
	s.setString("instance", fc.Instance, &cfg.Instance)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-file", fc.LogFile, &cfg.LogFile)
	s.setString("directory-url", fc.DirectoryURL, &cfg.DirectoryURL)
	s.setString("auth-key", fc.AuthKey, &cfg.AuthKey)
	s.setString("address", fc.Address, &cfg.Address)
	s.setString("status-addr", fc.StatusAddr, &cfg.StatusAddr)
	s.setString("notify-url", fc.NotifyURL, &cfg.NotifyURL)
	s.setString("otlp-endpoint", fc.OTLPEndpoint, &cfg.OTLPEndpoint)
	s.setString("settings-env-prefix", fc.SettingsEnvPrefix, &cfg.SettingsEnvPrefix)
	s.setString("init", fc.InitCommand, &cfg.InitCommand)
	s.setString("work-dir", fc.WorkDir, &cfg.WorkDir)

	if err := s.setDuration("shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}
	if err := s.setDuration("renew-interval", fc.RenewInterval, &cfg.RenewInterval); err != nil {
		return err
	}
	if err := s.setDuration("kill-delay", fc.KillDelay, &cfg.KillDelay); err != nil {
		return err
	}

	s.setFloat("sample-rate", fc.SampleRate, &cfg.SampleRate)
	s.setFloat("cpu-threshold", fc.CPUThreshold, &cfg.CPUThreshold)

	s.setStrings("settings", fc.SettingsFiles, &cfg.SettingsFiles)
	s.setStrings("secrets", fc.SecretFiles, &cfg.SecretFiles)

	s.setBool("log-json", fc.LogJSON, &cfg.LogJSON)
	s.setBool("otlp-insecure", fc.OTLPInsecure, &cfg.OTLPInsecure)
	s.setBool("watch-settings", fc.WatchSettings, &cfg.WatchSettings)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
