// Package logging configures structured JSON logging for the gacha services.
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup configures the standard library logger to emit structured JSON and returns
// the underlying slog.Logger. When file is set, output is written there with size
// based rotation instead of stdout, and the returned closer releases the file.
// The "dev" environment logs at debug level.
func Setup(service, env, file string) (*slog.Logger, io.Closer) {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if file = strings.TrimSpace(file); file != "" {
		lj := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    100, // MB
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		out, closer = lj, lj
	}
	level := slog.LevelInfo
	if strings.EqualFold(strings.TrimSpace(env), "dev") {
		level = slog.LevelDebug
	}

	handler, attrs := newHandler(out, service, env, level)
	base := slog.New(handler).With(attrArgs(attrs)...)
	slog.SetDefault(base)

	// Bridge the standard library logger so existing packages continue to work.
	stdBridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger writing to w without touching the process defaults.
func New(w io.Writer, service, env string, level slog.Level) *slog.Logger {
	handler, attrs := newHandler(w, service, env, level)
	return slog.New(handler).With(attrArgs(attrs)...)
}

func newHandler(w io.Writer, service, env string, level slog.Level) (slog.Handler, []slog.Attr) {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return attr
			}
			switch attr.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			case slog.LevelKey:
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: attr.Value}
			}
			return attr
		},
	})

	attrs := []slog.Attr{slog.String("service", strings.TrimSpace(service))}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}
	return handler, attrs
}

func attrArgs(attrs []slog.Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}
