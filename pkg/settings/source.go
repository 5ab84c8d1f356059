package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format identifies a settings file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Source produces a tree of settings values.
type Source interface {
	// Name identifies the source in logs and errors.
	Name() string

	// Load reads the source. A missing optional source returns an empty map.
	Load() (map[string]any, error)
}

// FileSource reads a TOML, YAML or JSON file.
type FileSource struct {
	Path     string
	Format   Format
	Optional bool
}

// File returns a required file source with the format taken from the extension.
func File(path string) *FileSource {
	return &FileSource{Path: path, Format: FormatFromPath(path)}
}

// OptionalFile returns a file source that loads as empty when the file is missing.
func OptionalFile(path string) *FileSource {
	s := File(path)
	s.Optional = true
	return s
}

// FormatFromPath guesses the format from the file extension, defaulting to TOML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return FormatTOML
	}
}

func (s *FileSource) Name() string { return "file:" + s.Path }

func (s *FileSource) Load() (map[string]any, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if s.Optional && errors.Is(err, os.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}

	values := map[string]any{}
	switch s.Format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &values)
	case FormatJSON:
		err = json.Unmarshal(data, &values)
	default:
		err = toml.Unmarshal(data, &values)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	if values == nil {
		values = map[string]any{}
	}
	return values, nil
}

// EnvSource reads environment variables with a common prefix.
type EnvSource struct {
	Prefix string

	// Environ returns the environment. Defaults to os.Environ.
	Environ func() []string
}

// Env returns an environment source for variables starting with prefix.
func Env(prefix string) *EnvSource {
	return &EnvSource{Prefix: prefix, Environ: os.Environ}
}

func (s *EnvSource) Name() string { return "env:" + s.Prefix }

func (s *EnvSource) Load() (map[string]any, error) {
	environ := s.Environ
	if environ == nil {
		environ = os.Environ
	}

	values := map[string]any{}
	for _, kv := range environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, s.Prefix) {
			continue
		}
		key = strings.TrimPrefix(key, s.Prefix)
		if key == "" {
			continue
		}
		setPath(values, strings.Split(strings.ToLower(key), "__"), value)
	}
	return values, nil
}

// StaticSource serves fixed values, typically defaults.
type StaticSource struct {
	name   string
	values map[string]any
}

// Static returns a source that always loads values.
func Static(name string, values map[string]any) *StaticSource {
	return &StaticSource{name: name, values: values}
}

func (s *StaticSource) Name() string { return "static:" + s.name }

func (s *StaticSource) Load() (map[string]any, error) {
	return deepCopy(s.values), nil
}
