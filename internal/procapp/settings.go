package procapp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bft-labs/apphost/pkg/host"
	"github.com/bft-labs/apphost/pkg/log"
	"github.com/bft-labs/apphost/pkg/settings"
)

const (
	settingsEnvPrefix = "APPHOST_SETTINGS__"
	secretsEnvPrefix  = "APPHOST_SECRETS__"

	// SettingsFileEnv names the variable holding the path of the rendered
	// settings file.
	SettingsFileEnv = "APPHOST_SETTINGS_FILE"
)

// settingsEnvironment is implemented by environments that carry settings
// providers, such as *environment.Environment.
type settingsEnvironment interface {
	Settings() *settings.Provider
	Secrets() *settings.Provider
}

func providers(env host.Environment) (cfg, secrets *settings.Provider) {
	se, ok := env.(settingsEnvironment)
	if !ok {
		return nil, nil
	}
	return se.Settings(), se.Secrets()
}

// settingsEnv flattens both providers into environment variables:
// database.pool.size becomes APPHOST_SETTINGS__DATABASE__POOL__SIZE.
func settingsEnv(env host.Environment) []string {
	cfg, secrets := providers(env)
	var out []string
	if cfg != nil {
		out = appendFlattened(out, settingsEnvPrefix, cfg.Snapshot())
	}
	if secrets != nil {
		out = appendFlattened(out, secretsEnvPrefix, secrets.Snapshot())
	}
	return out
}

func appendFlattened(out []string, prefix string, values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := prefix + envName(k)
		switch v := values[k].(type) {
		case map[string]any:
			out = appendFlattened(out, name+"__", v)
		case []any:
			parts := make([]string, len(v))
			for i, item := range v {
				parts[i] = fmt.Sprint(item)
			}
			out = append(out, name+"="+strings.Join(parts, ","))
		case nil:
		default:
			out = append(out, name+"="+fmt.Sprint(v))
		}
	}
	return out
}

// envName upper-cases key and replaces anything outside [A-Z0-9_] with '_'.
func envName(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
}

// settingsFile keeps a JSON rendering of the settings provider on disk and
// re-renders it after every reload. Secrets are never written.
type settingsFile struct {
	provider *settings.Provider
	logger   log.Logger
	dir      string
	path     string

	mu     sync.Mutex
	closed bool
}

func newSettingsFile(provider *settings.Provider, logger log.Logger) (*settingsFile, error) {
	dir, err := os.MkdirTemp("", "apphost-settings-")
	if err != nil {
		return nil, fmt.Errorf("settings file: %w", err)
	}
	f := &settingsFile{
		provider: provider,
		logger:   logger,
		dir:      dir,
		path:     filepath.Join(dir, "settings.json"),
	}
	if err := f.render(); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	provider.OnChange(f.onChange)
	return f, nil
}

func (f *settingsFile) onChange() {
	if err := f.render(); err != nil {
		f.logger.Warn("settings file not updated", log.Err(err))
		return
	}
	f.logger.Debug("settings file updated", log.String("path", f.path))
}

// render writes the snapshot next to the target and renames it into place
// so readers never see a partial file.
func (f *settingsFile) render() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}

	b, err := json.MarshalIndent(f.provider.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("settings file: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("settings file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("settings file: %w", err)
	}
	return nil
}

func (f *settingsFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return os.RemoveAll(f.dir)
}
