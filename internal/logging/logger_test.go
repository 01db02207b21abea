package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"classaudio/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
	}
	for input, want := range tests {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "client.log")
	logger, err := New(Options{Level: "info", Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("stream opened", String(FieldConnState, "open"), Int(FieldAttempt, 2))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("unmarshal log line %q: %v", data, err)
	}
	if entry["msg"] != "stream opened" {
		t.Fatalf("unexpected msg: %v", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", entry["level"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
	if entry[FieldConnState] != "open" {
		t.Fatalf("expected conn_state=open, got %v", entry[FieldConnState])
	}
}

func TestPrettyHandlerFormatsComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))
	logger = NewComponentLogger(logger, "stream")
	logger.Info("reconnect scheduled", Int(FieldAttempt, 3), String("reason", "transport closed"))

	out := buf.String()
	if !strings.Contains(out, "INFO  [stream] – reconnect scheduled") {
		t.Fatalf("unexpected header: %q", out)
	}
	if !strings.Contains(out, "    attempt: 3\n") {
		t.Fatalf("missing attempt field: %q", out)
	}
	if !strings.Contains(out, `    reason: "transport closed"`) {
		t.Fatalf("expected quoted reason, got %q", out)
	}
	if strings.Contains(out, "component:") {
		t.Fatalf("component should only appear in header: %q", out)
	}
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "WARN ") {
		t.Fatalf("expected warn output, got %q", buf.String())
	}
}

func TestPrettyHandlerGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newPrettyHandler(&buf, new(slog.LevelVar), false))
	logger.WithGroup("poll").Info("tick", Int("batches", 2))
	if !strings.Contains(buf.String(), "poll.batches: 2") {
		t.Fatalf("expected grouped key, got %q", buf.String())
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	WarnWithContext(logger, "notes fetch failed", "notes_fetch_failed", Error(errors.New("boom")))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{FieldEventType, FieldErrorHint, FieldImpact} {
		if _, ok := entry[key]; !ok {
			t.Fatalf("expected %s in %v", key, entry)
		}
	}
	if entry[FieldEventType] != "notes_fetch_failed" {
		t.Fatalf("unexpected event_type %v", entry[FieldEventType])
	}
}

func TestWarnWithContextKeepsExplicitFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	WarnWithContext(logger, "heartbeat stale", "heartbeat_stale", String(FieldImpact, "captions may lag"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry[FieldImpact] != "captions may lag" {
		t.Fatalf("explicit impact overwritten: %v", entry[FieldImpact])
	}
}

func TestWithContextAddsSessionAndCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := WithCorrelationID(WithSessionID(context.Background(), "sess-1"), "req-9")
	WithContext(ctx, logger).Info("request")

	out := buf.String()
	if !strings.Contains(out, `"session_id":"sess-1"`) || !strings.Contains(out, `"correlation_id":"req-9"`) {
		t.Fatalf("missing context fields: %s", out)
	}
}

func TestNewFromConfigTeesJSONFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "error"

	logger, err := NewFromConfig(&cfg, "error")
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	logger.Error("backend unavailable", String(FieldEventType, "backend_unavailable"))

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "classaudio.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"backend unavailable"`) {
		t.Fatalf("expected JSON line in file, got %q", data)
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should not be enabled")
	}
}
