// Package log builds the process logger.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the handler encoding.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Option configures New.
type Option func(*handlerConfig)

type handlerConfig struct {
	level     slog.Level
	addSource bool
	format    Format
	writer    io.Writer
}

// defaultHandlerConfig returns the default configuration.
func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level:  slog.LevelInfo,
		format: FormatText,
		writer: os.Stderr,
	}
}

// WithLevel sets the minimum log level to report.
func WithLevel(level slog.Level) Option {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) Option {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// WithFormat sets the encoding. Unknown formats fall back to text.
func WithFormat(f Format) Option {
	return func(c *handlerConfig) {
		c.format = f
	}
}

// WithWriter sets the destination. Defaults to stderr.
func WithWriter(w io.Writer) Option {
	return func(c *handlerConfig) {
		if w != nil {
			c.writer = w
		}
	}
}

// New creates a logger with the given options.
func New(opts ...Option) *slog.Logger {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	hopts := &slog.HandlerOptions{Level: cfg.level, AddSource: cfg.addSource}
	var h slog.Handler
	switch cfg.format {
	case FormatJSON:
		h = slog.NewJSONHandler(cfg.writer, hopts)
	default:
		h = slog.NewTextHandler(cfg.writer, hopts)
	}
	return slog.New(h)
}

// ParseLevel parses debug, info, warn or error, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// ParseFormat parses text or json.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON:
		return f, nil
	}
	return FormatText, fmt.Errorf("invalid log format %q", s)
}
