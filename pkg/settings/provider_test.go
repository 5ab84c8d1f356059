package settings

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProvider_MergeOrder(t *testing.T) {
	dir := t.TempDir()
	tomlPath := writeFile(t, dir, "app.toml", `
[database]
dsn = "postgres://toml"
timeout = "5s"
pool = 4
`)
	yamlPath := writeFile(t, dir, "app.yaml", `
database:
  pool: 8
features:
  - a
  - b
`)
	jsonPath := writeFile(t, dir, "app.json", `{"Database": {"Name": "orders"}}`)

	env := &EnvSource{
		Prefix: "TEST_",
		Environ: func() []string {
			return []string{"TEST_DATABASE__DSN=postgres://env", "OTHER=1"}
		},
	}

	p, err := New([]Source{
		Static("defaults", map[string]any{"database": map[string]any{"pool": 1, "retries": 3}}),
		File(tomlPath),
		File(yamlPath),
		File(jsonPath),
		env,
	})
	require.NoError(t, err)

	assert.Equal(t, "postgres://env", p.String("database.dsn"))
	assert.Equal(t, "8", p.String("database.pool"))
	assert.Equal(t, "orders", p.String("database.name"))
	assert.Equal(t, "3", p.String("database.retries"))

	_, ok := p.Get("other")
	assert.False(t, ok)
}

func TestProvider_Decode(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.toml", `
[server]
addr = ":8080"
read_timeout = "2s"
tags = "a,b,c"
`)
	env := &EnvSource{Prefix: "X_", Environ: func() []string { return []string{"X_SERVER__WORKERS=16"} }}

	p, err := New([]Source{File(path), env})
	require.NoError(t, err)

	var cfg struct {
		Addr        string        `mapstructure:"addr"`
		ReadTimeout time.Duration `mapstructure:"read_timeout"`
		Workers     int           `mapstructure:"workers"`
		Tags        []string      `mapstructure:"tags"`
	}
	require.NoError(t, p.Decode("server", &cfg))

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 2*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 16, cfg.Workers)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Tags)

	err = p.Decode("missing", &cfg)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProvider_MissingFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := New([]Source{File(filepath.Join(dir, "nope.toml"))})
	assert.Error(t, err)

	p, err := New([]Source{OptionalFile(filepath.Join(dir, "nope.toml"))})
	require.NoError(t, err)
	assert.Empty(t, p.Snapshot())
}

func TestProvider_ParseError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", "a: [unterminated")

	_, err := New([]Source{File(path)})
	assert.Error(t, err)
}

func TestProvider_ReloadKeepsValuesOnError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.toml", `name = "one"`)

	p, err := New([]Source{File(path)})
	require.NoError(t, err)

	var calls atomic.Int32
	p.OnChange(func() { calls.Add(1) })

	writeFile(t, dir, "app.toml", `name = `)
	assert.Error(t, p.Reload())
	assert.Equal(t, "one", p.String("name"))
	assert.Equal(t, int32(0), calls.Load())

	writeFile(t, dir, "app.toml", `name = "two"`)
	require.NoError(t, p.Reload())
	assert.Equal(t, "two", p.String("name"))
	assert.Equal(t, int32(1), calls.Load())
}

func TestProvider_Watch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.yaml", "level: info\n")

	p, err := New([]Source{File(path)}, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)

	changed := make(chan struct{}, 1)
	p.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, p.Watch(ctx))
	defer p.Close()

	assert.Error(t, p.Watch(ctx), "second Watch should fail")

	writeFile(t, dir, "app.yaml", "level: debug\n")

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after file change")
	}
	assert.Equal(t, "debug", p.String("level"))
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"a.toml": FormatTOML,
		"a.yaml": FormatYAML,
		"a.YML":  FormatYAML,
		"a.json": FormatJSON,
		"a":      FormatTOML,
	}
	for path, want := range tests {
		assert.Equal(t, want, FormatFromPath(path), path)
	}
}
