package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"insightwire/pkg/config"
)

func TestLoggerJSONEntryShape(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "info"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.With("component", "session.worker").Info("Command executed", "request_id", "42", "ok", true)

	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected log output")
	}

	var entry LogEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}

	if entry.Level != "info" {
		t.Fatalf("level = %q, want %q", entry.Level, "info")
	}
	if entry.Message != "Command executed" {
		t.Fatalf("message = %q, want %q", entry.Message, "Command executed")
	}
	if entry.Component != "session.worker" {
		t.Fatalf("component = %q, want %q", entry.Component, "session.worker")
	}
	if got := entry.Fields["request_id"]; got != "42" {
		t.Fatalf("fields.request_id = %v, want %q", got, "42")
	}
	if got := entry.Fields["ok"]; got != true {
		t.Fatalf("fields.ok = %v, want true", got)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Info("Ignored")
	if got := strings.TrimSpace(out.String()); got != "" {
		t.Fatalf("expected no output for info, got %q", got)
	}

	log.Error("Kept")
	if got := strings.TrimSpace(out.String()); got == "" {
		t.Fatal("expected output for error")
	}
}

func TestLoggerFlattensGroupKeys(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "info"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.WithGroup("scrape").Info("Done", "rows", 12)

	var entry LogEntry
	if err := json.Unmarshal([]byte(strings.TrimSpace(out.String())), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}

	if got := entry.Fields["scrape.rows"]; got != float64(12) {
		t.Fatalf("fields = %v, want scrape.rows = 12", entry.Fields)
	}
}

func TestLoggerRejectsUnknownFormat(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	if _, err := newWithWriter(config.LoggingConfig{Format: "xml"}, &out); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestLoggerEnvLevelOverride(t *testing.T) {
	unsetLoggingEnv(t)
	t.Setenv("INSIGHTWIRE_LOG_LEVEL", "error")

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "debug"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Info("Ignored")
	if got := strings.TrimSpace(out.String()); got != "" {
		t.Fatalf("expected env level to win, got %q", got)
	}
}

func unsetLoggingEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{"INSIGHTWIRE_LOG_FORMAT", "INSIGHTWIRE_LOG_LEVEL", "INSIGHTWIRE_LOG_ADD_SOURCE"} {
		t.Setenv(key, "")
	}
}
