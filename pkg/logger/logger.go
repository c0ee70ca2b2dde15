package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	charmLog "github.com/charmbracelet/log"

	"insightwire/pkg/config"
)

const (
	defaultFormat = "text"
	defaultLevel  = "info"
)

// LogEntry is the line shape the JSON handler emits.
type LogEntry struct {
	Level     string         `json:"level"`
	Timestamp string         `json:"timestamp"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
	Caller    string         `json:"caller,omitempty"`
}

// New builds the process logger from config, with INSIGHTWIRE_LOG_* env
// overrides taking precedence.
func New(cfg config.LoggingConfig) (*slog.Logger, error) {
	return newWithWriter(cfg, os.Stderr)
}

func newWithWriter(cfg config.LoggingConfig, writer io.Writer) (*slog.Logger, error) {
	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if value := strings.TrimSpace(os.Getenv("INSIGHTWIRE_LOG_FORMAT")); value != "" {
		format = strings.ToLower(value)
	}
	if format == "" {
		format = defaultFormat
	}
	if format != "json" && format != "text" {
		return nil, fmt.Errorf("unsupported log format %q", format)
	}

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	addSource := cfg.AddSource
	if env := strings.TrimSpace(os.Getenv("INSIGHTWIRE_LOG_ADD_SOURCE")); env != "" {
		addSource = parseBool(env)
	}

	if format == "text" {
		pretty := charmLog.NewWithOptions(writer, charmLog.Options{
			Level:           charmLevel(level),
			ReportTimestamp: true,
			ReportCaller:    addSource,
			Formatter:       charmLog.TextFormatter,
		})
		return slog.New(pretty), nil
	}

	return slog.New(&entryHandler{
		level:     level,
		addSource: addSource,
		writer:    writer,
		mu:        &sync.Mutex{},
	}), nil
}

func charmLevel(level slog.Level) charmLog.Level {
	switch {
	case level <= slog.LevelDebug:
		return charmLog.DebugLevel
	case level <= slog.LevelInfo:
		return charmLog.InfoLevel
	case level <= slog.LevelWarn:
		return charmLog.WarnLevel
	default:
		return charmLog.ErrorLevel
	}
}

func parseLevel(input string) (slog.Level, error) {
	levelText := strings.ToLower(strings.TrimSpace(input))
	if value := strings.TrimSpace(os.Getenv("INSIGHTWIRE_LOG_LEVEL")); value != "" {
		levelText = strings.ToLower(value)
	}
	if levelText == "" {
		levelText = defaultLevel
	}

	switch levelText {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unsupported log level %q", levelText)
	}
}

func parseBool(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// entryHandler is a minimal slog.Handler emitting one LogEntry per record.
// Attrs are flattened into a single fields map, with group names joined into
// the key by dots.
type entryHandler struct {
	level     slog.Level
	addSource bool
	writer    io.Writer
	mu        *sync.Mutex

	prefix string
	base   map[string]any
}

func (h *entryHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *entryHandler) Handle(_ context.Context, record slog.Record) error {
	at := record.Time
	if at.IsZero() {
		at = time.Now()
	}

	entry := LogEntry{
		Level:     strings.ToLower(record.Level.String()),
		Timestamp: at.UTC().Format(time.RFC3339Nano),
		Message:   record.Message,
	}

	fields := make(map[string]any, len(h.base)+record.NumAttrs())
	for key, value := range h.base {
		fields[key] = value
	}
	record.Attrs(func(attr slog.Attr) bool {
		flatten(fields, h.prefix, attr)
		return true
	})

	if component, ok := fields["component"].(string); ok {
		entry.Component = component
		delete(fields, "component")
	}
	if len(fields) > 0 {
		entry.Fields = fields
	}

	if h.addSource && record.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{record.PC}).Next()
		if frame.File != "" {
			entry.Caller = fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
		}
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.writer.Write(append(line, '\n'))
	return err
}

func (h *entryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.base = make(map[string]any, len(h.base)+len(attrs))
	for key, value := range h.base {
		next.base[key] = value
	}
	for _, attr := range attrs {
		flatten(next.base, h.prefix, attr)
	}
	return &next
}

func (h *entryHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

// flatten resolves one attr into the fields map. Groups recurse with their
// name folded into the key; times and durations get stable string forms, and
// everything else is left to json.Marshal.
func flatten(fields map[string]any, prefix string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}

	key := prefix + attr.Key
	switch attr.Value.Kind() {
	case slog.KindGroup:
		groupPrefix := key + "."
		if attr.Key == "" {
			// Inline group: attrs belong to the enclosing level.
			groupPrefix = prefix
		}
		for _, item := range attr.Value.Group() {
			flatten(fields, groupPrefix, item)
		}
	case slog.KindTime:
		fields[key] = attr.Value.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindDuration:
		fields[key] = attr.Value.Duration().String()
	default:
		fields[key] = attr.Value.Any()
	}
}
