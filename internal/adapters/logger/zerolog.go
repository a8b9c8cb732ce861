package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// ParseLevel maps a LOG_LEVEL value onto a zerolog level. WARNING is accepted as WARN.
func ParseLevel(value string) (zerolog.Level, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "warning" {
		value = "warn"
	}
	switch level, err := zerolog.ParseLevel(value); {
	case err != nil:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q: %w", value, err)
	case level == zerolog.NoLevel:
		return zerolog.NoLevel, fmt.Errorf("log level must be set")
	default:
		return level, nil
	}
}

// ZeroLogger implements the ports.Logger interface on top of zerolog.
type ZeroLogger struct {
	logger zerolog.Logger
}

// New creates a logger writing to w. A nil writer means os.Stderr.
func New(level zerolog.Level, format Format, w io.Writer) *ZeroLogger {
	if w == nil {
		w = os.Stderr
	}
	if format == FormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &ZeroLogger{logger: zl}
}

// Nop returns a logger that discards everything.
func Nop() *ZeroLogger {
	return &ZeroLogger{logger: zerolog.Nop()}
}

// With returns a child logger tagged with the given component name.
func (l *ZeroLogger) With(component string) *ZeroLogger {
	return &ZeroLogger{logger: l.logger.With().Str("component", component).Logger()}
}

func (l *ZeroLogger) write(ev *zerolog.Event, msg string, fields []map[string]interface{}) {
	for _, f := range fields {
		if f != nil {
			ev = ev.Fields(f)
		}
	}
	ev.Msg(msg)
}

// Debug logs a message at Debug level.
func (l *ZeroLogger) Debug(_ context.Context, msg string, fields ...map[string]interface{}) {
	l.write(l.logger.Debug(), msg, fields)
}

// Info logs a message at Info level.
func (l *ZeroLogger) Info(_ context.Context, msg string, fields ...map[string]interface{}) {
	l.write(l.logger.Info(), msg, fields)
}

// Warn logs a message at Warning level.
func (l *ZeroLogger) Warn(_ context.Context, msg string, fields ...map[string]interface{}) {
	l.write(l.logger.Warn(), msg, fields)
}

// Error logs an error message at Error level.
func (l *ZeroLogger) Error(_ context.Context, err error, msg string, fields ...map[string]interface{}) {
	l.write(l.logger.Error().Err(err), msg, fields)
}
