package environment

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/apphost/pkg/host"
	"github.com/bft-labs/apphost/pkg/log"
)

// buildLogger returns the composite logger and the file to close, if any.
func buildLogger(cfg LoggingSetup, id host.Identity) (log.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}
	if !cfg.ConsoleJSON && console != io.Discard {
		console = zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339}
	}

	writers := []io.Writer{console}
	var file *os.File
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		file = f
		writers = append(writers, f)
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Str("application", id.Application).
		Str("instance", id.Instance).
		Logger()

	var closer io.Closer
	if file != nil {
		closer = file
	}
	return log.NewZerologAdapterWithLogger(zl), closer, nil
}
