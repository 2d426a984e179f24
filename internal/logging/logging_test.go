package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestJSONLoggerCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Writer: &buf})

	ctx := ContextWithRequestID(context.Background(), "req-1")
	log.With(String("component", "scene")).Warn(ctx, "texture unavailable",
		String("path", "images/earth.jpg"),
		Err(errors.New("missing")),
		Float64("intensity", 1.9),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, buf.String())
	}
	for key, want := range map[string]any{
		"msg":        "texture unavailable",
		"level":      "WARN",
		"component":  "scene",
		"path":       "images/earth.jpg",
		"error":      "missing",
		"request_id": "req-1",
		"intensity":  1.9,
	} {
		if rec[key] != want {
			t.Errorf("%s = %v, want %v", key, rec[key], want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Writer: &buf})
	log.Info(context.Background(), "hidden")
	log.Debug(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("unexpected output below warn: %q", buf.String())
	}
	log.Error(context.Background(), "shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("error not logged: %q", buf.String())
	}
}

func TestEnsureRequestID(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	if id == "" || RequestIDFromContext(ctx) != id {
		t.Fatalf("request id not stored: %q", id)
	}
	again, same := EnsureRequestID(ctx)
	if same != id || again != ctx {
		t.Fatal("existing request id replaced")
	}
}

func TestFromContext(t *testing.T) {
	if _, ok := FromContext(context.Background(), nil).(noopLogger); !ok {
		t.Fatal("missing logger should fall back to Noop")
	}
	l := New(Config{Writer: &bytes.Buffer{}})
	if got := FromContext(ContextWithLogger(context.Background(), l), nil); got != l {
		t.Fatal("stored logger not returned")
	}
}
