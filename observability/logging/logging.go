// Package logging configures structured JSON logging for the engine,
// mirroring observability/logging.Setup from the teacher: a slog JSON
// handler with timestamp/severity/message field names, installed as the
// process-wide default.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup configures the default slog.Logger to emit structured JSON lines
// tagged with the service name and environment, and returns it for direct
// use where a caller wants explicit injection instead of the package
// default.
func Setup(service, env string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			case slog.LevelKey:
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: attr.Value}
			default:
				return attr
			}
		},
	})

	attrs := []any{slog.String("service", strings.TrimSpace(service))}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	logger := slog.New(handler).With(attrs...)
	slog.SetDefault(logger)
	return logger
}
