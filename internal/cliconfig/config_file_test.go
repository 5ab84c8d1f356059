package cliconfig

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true
	quarter := 0.25
	zero := 0.0

	tests := []struct {
		name     string
		fc       FileConfig
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies file values",
			fc: FileConfig{
				Application:     "api",
				Environment:     "prod",
				ShutdownTimeout: "45s",
				DirectoryURL:    "http://dir",
				SampleRate:      &quarter,
				SettingsFiles:   []string{"a.toml", "b.yaml"},
				LogJSON:         &trueVal,
			},
			changed: map[string]bool{},
			initial: DefaultConfig(),
			expected: Config{
				Application:     "api",
				Environment:     "prod",
				ShutdownTimeout: 45 * time.Second,
				DirectoryURL:    "http://dir",
				SampleRate:      0.25,
				SettingsFiles:   []string{"a.toml", "b.yaml"},
				LogJSON:         true,
			},
		},
		{
			name: "changed flags win",
			fc: FileConfig{
				Application:     "file-app",
				ShutdownTimeout: "45s",
			},
			changed: map[string]bool{"application": true, "shutdown-timeout": true},
			initial: Config{Application: "cli-app", ShutdownTimeout: 5 * time.Second},
			expected: Config{
				Application:     "cli-app",
				ShutdownTimeout: 5 * time.Second,
			},
		},
		{
			name:    "zero sample rate disables sampling",
			fc:      FileConfig{SampleRate: &zero},
			changed: map[string]bool{},
			initial: DefaultConfig(),
			expected: Config{
				ShutdownTimeout: 30 * time.Second,
				SampleRate:      0,
			},
		},
		{
			name:    "invalid duration",
			fc:      FileConfig{KillDelay: "soon"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fc, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyFileConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyFileConfig() unexpected error: %v", err)
			}

			if cfg.Application != tt.expected.Application {
				t.Errorf("Application = %v, want %v", cfg.Application, tt.expected.Application)
			}
			if tt.expected.Environment != "" && cfg.Environment != tt.expected.Environment {
				t.Errorf("Environment = %v, want %v", cfg.Environment, tt.expected.Environment)
			}
			if cfg.ShutdownTimeout != tt.expected.ShutdownTimeout {
				t.Errorf("ShutdownTimeout = %v, want %v", cfg.ShutdownTimeout, tt.expected.ShutdownTimeout)
			}
			if cfg.DirectoryURL != tt.expected.DirectoryURL {
				t.Errorf("DirectoryURL = %v, want %v", cfg.DirectoryURL, tt.expected.DirectoryURL)
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
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	// Create a temporary TOML file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.toml")

	tomlContent := `
project = "infra"
application = "api"
shutdown_timeout = "1m"
sample_rate = 0.5
settings_files = ["app.toml", "app.local.yaml"]
watch_settings = true
status_addr = ":9090"
`

	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.Project != "infra" {
		t.Errorf("Project = %v, want infra", fc.Project)
	}
	if fc.Application != "api" {
		t.Errorf("Application = %v, want api", fc.Application)
	}
	if fc.ShutdownTimeout != "1m" {
		t.Errorf("ShutdownTimeout = %v, want 1m", fc.ShutdownTimeout)
	}
	if fc.SampleRate == nil || *fc.SampleRate != 0.5 {
		t.Errorf("SampleRate = %v, want 0.5", fc.SampleRate)
	}
	if len(fc.SettingsFiles) != 2 {
		t.Errorf("SettingsFiles = %v, want 2 entries", fc.SettingsFiles)
	}
	if fc.WatchSettings == nil || *fc.WatchSettings != true {
		t.Errorf("WatchSettings = %v, want true", fc.WatchSettings)
	}
	if fc.StatusAddr != ":9090" {
		t.Errorf("StatusAddr = %v, want :9090", fc.StatusAddr)
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	_, err := LoadFileConfig("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("LoadFileConfig() expected error for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.toml")

	invalidContent := `
project = "infra"
this is not valid toml
`

	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFileConfig(configPath)
	if err == nil {
		t.Error("LoadFileConfig() expected error for invalid TOML")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()

	// Should return a path containing .apphost
	if path != "" && !strings.Contains(path, ".apphost") {
		t.Errorf("DefaultConfigPath() = %v, should contain .apphost", path)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")

	if err := os.WriteFile(existingFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists() = false, want true for existing file")
	}

	if FileExists(filepath.Join(tmpDir, "nonexistent.txt")) {
		t.Error("FileExists() = true, want false for nonexistent file")
	}
}
