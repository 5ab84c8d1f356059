package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "APPHOST_"

// ApplyEnvConfig applies APPHOST_* environment variables to cfg.
// They override file values but not explicitly set flags.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("project", env("PROJECT"), &cfg.Project)
	s.setString("subproject", env("SUBPROJECT"), &cfg.Subproject)
	s.setString("environment", env("ENVIRONMENT"), &cfg.Environment)
	s.setString("application", env("APPLICATION"), &cfg.Application)
	s.setString("instance", env("INSTANCE"), &cfg.Instance)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-file", env("LOG_FILE"), &cfg.LogFile)
	s.setString("directory-url", env("DIRECTORY_URL"), &cfg.DirectoryURL)
	s.setString("auth-key", env("AUTH_KEY"), &cfg.AuthKey)
	s.setString("address", env("ADDRESS"), &cfg.Address)
	s.setString("status-addr", env("STATUS_ADDR"), &cfg.StatusAddr)
	s.setString("notify-url", env("NOTIFY_URL"), &cfg.NotifyURL)
	s.setString("otlp-endpoint", env("OTLP_ENDPOINT"), &cfg.OTLPEndpoint)
	s.setString("settings-env-prefix", env("SETTINGS_ENV_PREFIX"), &cfg.SettingsEnvPrefix)
	s.setString("init", env("INIT_COMMAND"), &cfg.InitCommand)
	s.setString("work-dir", env("WORK_DIR"), &cfg.WorkDir)

	if err := s.setDuration("shutdown-timeout", env("SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}
	if err := s.setDuration("renew-interval", env("RENEW_INTERVAL"), &cfg.RenewInterval); err != nil {
		return err
	}
	if err := s.setDuration("kill-delay", env("KILL_DELAY"), &cfg.KillDelay); err != nil {
		return err
	}
	if err := s.setFloatFromString("sample-rate", env("SAMPLE_RATE"), &cfg.SampleRate); err != nil {
		return err
	}
	if err := s.setFloatFromString("cpu-threshold", env("CPU_THRESHOLD"), &cfg.CPUThreshold); err != nil {
		return err
	}

	s.setStringsFromString("settings", env("SETTINGS_FILES"), &cfg.SettingsFiles)
	s.setStringsFromString("secrets", env("SECRET_FILES"), &cfg.SecretFiles)

	s.setBoolFromString("log-json", env("LOG_JSON"), &cfg.LogJSON)
	s.setBoolFromString("otlp-insecure", env("OTLP_INSECURE"), &cfg.OTLPInsecure)
	s.setBoolFromString("watch-settings", env("WATCH_SETTINGS"), &cfg.WatchSettings)

	return nil
}
