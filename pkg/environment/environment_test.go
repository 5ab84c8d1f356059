package environment

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/apphost/pkg/beacon"
	"github.com/bft-labs/apphost/pkg/host"
	"github.com/bft-labs/apphost/pkg/settings"
	"github.com/bft-labs/apphost/pkg/shutdown"
)

var testIdentity = host.Identity{
	Project:     "infra",
	Environment: "test",
	Application: "api",
	Instance:    "i-1",
}

func quietSetup() Setup {
	return Setup{
		Identity: testIdentity,
		Logging:  LoggingSetup{Console: io.Discard},
		Metrics:  MetricsSetup{DisableRuntimeCollectors: true},
	}
}

func TestBuild_Defaults(t *testing.T) {
	token := shutdown.New()
	env, err := Build(quietSetup(), token)
	require.NoError(t, err)
	defer env.Close()

	assert.Equal(t, testIdentity, env.Identity())
	assert.Same(t, token, env.ShutdownToken())
	assert.IsType(t, beacon.Noop{}, env.Beacon())
	assert.NotNil(t, env.Log())
	assert.NotNil(t, env.Settings())
	assert.NotNil(t, env.Secrets())
	assert.NotNil(t, env.TracerProvider())

	families, err := env.Metrics().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "apphost_info")
}

func TestBuild_HTTPBeacon(t *testing.T) {
	setup := quietSetup()
	setup.Beacon.DirectoryURL = "http://127.0.0.1:1"

	env, err := Build(setup, nil)
	require.NoError(t, err)
	defer env.Close()

	assert.IsType(t, &beacon.HTTP{}, env.Beacon())
}

func TestResolveIdentity(t *testing.T) {
	id, err := ResolveIdentity(host.Identity{Project: "p", Environment: "e", Application: "a"})
	require.NoError(t, err)
	assert.NotEmpty(t, id.Instance)

	_, err = ResolveIdentity(host.Identity{Project: "p", Environment: "e"})
	assert.Error(t, err)
}

func TestBuild_InvalidIdentity(t *testing.T) {
	setup := quietSetup()
	setup.Identity.Application = ""

	_, err := Factory(setup)(shutdown.New())
	assert.Error(t, err)
}

func TestBuild_InvalidLogLevel(t *testing.T) {
	setup := quietSetup()
	setup.Logging.Level = "loud"

	_, err := Build(setup, nil)
	assert.Error(t, err)
}

func TestBuild_LogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	var console bytes.Buffer

	setup := quietSetup()
	setup.Logging = LoggingSetup{Console: &console, ConsoleJSON: true, File: path, Level: "debug"}

	env, err := Build(setup, nil)
	require.NoError(t, err)
	env.Log().Info("hello")
	require.NoError(t, env.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var last map[string]any
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &last))
	assert.Equal(t, "hello", last["message"])
	assert.Equal(t, "api", last["application"])
	assert.Contains(t, console.String(), `"message":"hello"`)
}

func TestBuild_Settings(t *testing.T) {
	dir := t.TempDir()
	appPath := filepath.Join(dir, "app.toml")
	secretPath := filepath.Join(dir, "secrets.json")
	require.NoError(t, os.WriteFile(appPath, []byte(`port = 8080`), 0o644))
	require.NoError(t, os.WriteFile(secretPath, []byte(`{"db_password": "hunter2"}`), 0o600))

	setup := quietSetup()
	setup.Settings = SettingsSetup{
		Sources:       []settings.Source{settings.File(appPath)},
		SecretSources: []settings.Source{settings.File(secretPath)},
		Watch:         true,
	}

	env, err := Build(setup, nil)
	require.NoError(t, err)
	defer env.Close()

	assert.Equal(t, "8080", env.Settings().String("port"))
	assert.Equal(t, "hunter2", env.Secrets().String("db_password"))
	_, ok := env.Settings().Get("db_password")
	assert.False(t, ok)
}

func TestBuild_SettingsErrorReleasesLogFile(t *testing.T) {
	setup := quietSetup()
	setup.Logging.File = filepath.Join(t.TempDir(), "app.log")
	setup.Settings.Sources = []settings.Source{settings.File(filepath.Join(t.TempDir(), "missing.toml"))}

	_, err := Build(setup, nil)
	assert.Error(t, err)
}

func TestBuild_RegistryConflict(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{Name: "apphost_info", Help: "taken"}))

	setup := quietSetup()
	setup.Metrics.Registry = reg

	_, err := Build(setup, nil)
	assert.Error(t, err)
}

func TestClose_Once(t *testing.T) {
	env, err := Build(quietSetup(), nil)
	require.NoError(t, err)

	calls := 0
	env.addCloser("counter", func() error { calls++; return io.ErrClosedPipe })

	err1 := env.Close()
	err2 := env.Close()

	assert.ErrorIs(t, err1, io.ErrClosedPipe)
	assert.Equal(t, err1, err2)
	assert.Equal(t, 1, calls)
}

func TestClose_ReverseOrder(t *testing.T) {
	env := &Environment{}
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		env.addCloser(name, func() error { order = append(order, name); return nil })
	}

	require.NoError(t, env.Close())
	assert.Equal(t, []string{"c", "b", "a"}, order)
}
