package cliconfig

import (
	"reflect"
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"APPHOST_APPLICATION":      "env-app",
				"APPHOST_INSTANCE":         "env-1",
				"APPHOST_SHUTDOWN_TIMEOUT": "10m",
				"APPHOST_SAMPLE_RATE":      "0.9",
				"APPHOST_SETTINGS_FILES":   "a.toml, b.yaml",
				"APPHOST_LOG_JSON":         "true",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Application:     "env-app",
				Instance:        "env-1",
				ShutdownTimeout: 10 * time.Minute,
				SampleRate:      0.9,
				SettingsFiles:   []string{"a.toml", "b.yaml"},
				LogJSON:         true,
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"APPHOST_APPLICATION": "env-app",
				"APPHOST_INSTANCE":    "env-1",
			},
			changed: map[string]bool{"application": true},
			initial: Config{Application: "cli-app"},
			expected: Config{
				Application: "cli-app",
				Instance:    "env-1",
			},
		},
		{
			name: "zero sample rate is applied",
			envVars: map[string]string{
				"APPHOST_SAMPLE_RATE": "0",
			},
			changed:  map[string]bool{},
			initial:  Config{SampleRate: 1},
			expected: Config{SampleRate: 0},
		},
		{
			name: "returns error for invalid duration",
			envVars: map[string]string{
				"APPHOST_SHUTDOWN_TIMEOUT": "not-a-duration",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name: "returns error for invalid float",
			envVars: map[string]string{
				"APPHOST_SAMPLE_RATE": "half",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr && err == nil {
				t.Error("ApplyEnvConfig() expected error but got nil")
				return
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ApplyEnvConfig() unexpected error: %v", err)
				return
			}

			if !tt.wantErr {
				if cfg.Application != tt.expected.Application {
					t.Errorf("Application = %v, want %v", cfg.Application, tt.expected.Application)
				}
				if cfg.Instance != tt.expected.Instance {
					t.Errorf("Instance = %v, want %v", cfg.Instance, tt.expected.Instance)
				}
				if cfg.ShutdownTimeout != tt.expected.ShutdownTimeout {
					t.Errorf("ShutdownTimeout = %v, want %v", cfg.ShutdownTimeout, tt.expected.ShutdownTimeout)
				}
				if cfg.SampleRate != tt.expected.SampleRate {
					t.Errorf("SampleRate = %v, want %v", cfg.SampleRate, tt.expected.SampleRate)
				}
				if !reflect.DeepEqual(cfg.SettingsFiles, tt.expected.SettingsFiles) {
					t.Errorf("SettingsFiles = %v, want %v", cfg.SettingsFiles, tt.expected.SettingsFiles)
				}
				if cfg.LogJSON != tt.expected.LogJSON {
					t.Errorf("LogJSON = %v, want %v", cfg.LogJSON, tt.expected.LogJSON)
				}
			}
		})
	}
}

// Integration test: precedence order (CLI > Env > File)
func TestConfigPrecedence(t *testing.T) {
	trueVal := true

	// Setup file config
	fileConf := FileConfig{
		Project:       "file-project",
		Application:   "file-app",
		WatchSettings: &trueVal,
	}

	// Setup env vars
	t.Setenv("APPHOST_PROJECT", "env-project")
	t.Setenv("APPHOST_APPLICATION", "env-app")
	t.Setenv("APPHOST_STATUS_ADDR", ":9191")

	// Simulate CLI flags
	changed := map[string]bool{
		"project": true,
	}

	cfg := Config{
		Project: "cli-project", // This should remain (CLI wins)
	}

	// Apply file config
	if err := ApplyFileConfig(&cfg, fileConf, changed); err != nil {
		t.Fatalf("ApplyFileConfig failed: %v", err)
	}

	// Apply env config
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig failed: %v", err)
	}

	// Verify precedence: CLI > Env > File
	if cfg.Project != "cli-project" {
		t.Errorf("Project = %v, want cli-project (CLI should win)", cfg.Project)
	}
	if cfg.Application != "env-app" {
		t.Errorf("Application = %v, want env-app (env should override file)", cfg.Application)
	}
	if cfg.StatusAddr != ":9191" {
		t.Errorf("StatusAddr = %v, want :9191 (env should set)", cfg.StatusAddr)
	}
	if cfg.WatchSettings != true {
		t.Errorf("WatchSettings = %v, want true (file should set)", cfg.WatchSettings)
	}
}
