package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Config selects the handler, verbosity, and destination for a Logger.
type Config struct {
	Level        string // "debug", "info", "warn", "error"
	Format       string // "console" for tinted text, anything else is JSON
	Output       string // "stdout", "stderr", or a file path
	EnableSource bool   // annotate records with file:line
	TimeFormat   string // timestamp layout in console format

	// writer overrides Output when set. Tests use it to capture records.
	writer io.Writer
}

// Logger is a thin wrapper over slog.Logger that keeps derived loggers
// in the same type.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from cfg.
func New(cfg *Config) (*Logger, error) {
	out, err := resolveWriter(cfg)
	if err != nil {
		return nil, err
	}

	level := parseLevel(cfg.Level)

	var handler slog.Handler
	if cfg.Format == "console" {
		layout := cfg.TimeFormat
		if layout == "" {
			layout = time.RFC3339
		}
		handler = tint.NewHandler(out, &tint.Options{
			Level:      level,
			AddSource:  cfg.EnableSource,
			TimeFormat: layout,
		})
	} else {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level:     level,
			AddSource: cfg.EnableSource,
		})
	}

	return &Logger{Logger: slog.New(handler)}, nil
}

// NewDefault returns a console logger at info level, for use before
// configuration is loaded.
func NewDefault() *Logger {
	h := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.TimeOnly,
	})
	return &Logger{Logger: slog.New(h)}
}

func resolveWriter(cfg *Config) (io.Writer, error) {
	if cfg.writer != nil {
		return cfg.writer, nil
	}

	switch cfg.Output {
	case "stderr":
		return os.Stderr, nil
	case "stdout", "":
		return os.Stdout, nil
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", cfg.Output, err)
		}
		return f, nil
	}
}

// parseLevel maps a config string to a slog level, defaulting to info.
func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithGroup namespaces subsequent attributes under name.
func (l *Logger) WithGroup(name string) *Logger {
	return &Logger{Logger: l.Logger.WithGroup(name)}
}

// WithAttrs returns a logger carrying the given attributes.
func (l *Logger) WithAttrs(attrs ...slog.Attr) *Logger {
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return &Logger{Logger: l.Logger.With(args...)}
}

// With returns a logger carrying the given key-value pairs.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}
