package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return m
}

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(zerolog.New(&buf))

	l.Info("hello",
		String("s", "v"),
		Int("i", 3),
		Bool("b", true),
		Duration("d", time.Second),
		Err(errors.New("boom")),
	)

	m := decodeLine(t, &buf)
	if m["message"] != "hello" {
		t.Errorf("message = %v, want hello", m["message"])
	}
	if m["level"] != "info" {
		t.Errorf("level = %v, want info", m["level"])
	}
	if m["s"] != "v" {
		t.Errorf("s = %v, want v", m["s"])
	}
	if m["i"] != float64(3) {
		t.Errorf("i = %v, want 3", m["i"])
	}
	if m["b"] != true {
		t.Errorf("b = %v, want true", m["b"])
	}
	if m["error"] != "boom" {
		t.Errorf("error = %v, want boom", m["error"])
	}
}

func TestZerologAdapter_With(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(zerolog.New(&buf)).With(Component("host"))

	l.Warn("scoped")

	m := decodeLine(t, &buf)
	if m["component"] != "host" {
		t.Errorf("component = %v, want host", m["component"])
	}
	if m["level"] != "warn" {
		t.Errorf("level = %v, want warn", m["level"])
	}
}

func TestNoopLogger_With(t *testing.T) {
	var l Logger = NewNoopLogger()
	if l.With(String("k", "v")) == nil {
		t.Fatal("With returned nil")
	}
}
