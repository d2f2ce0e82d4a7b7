// Package observability wires the logging pipeline: slog as the API
// surface, with either plain stdout handlers or an OpenTelemetry log export
// behind the otelslog bridge, and trace-context enrichment on every record.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// scopeName identifies this application in exported log records.
const scopeName = "glm-relay"

// noopShutdown is returned when no exporter needs flushing.
func noopShutdown(context.Context) error { return nil }

// Instrument installs the process-wide slog default. Export selects the
// pipeline: "off" logs to stdout in the given format, "stdout"/"http"/"grpc"
// route records through the OpenTelemetry log SDK. The returned shutdown
// flushes any pending export batches.
func Instrument(ctx context.Context, level slog.Level, logFormat, export string) (func(context.Context) error, error) {
	handler, shutdown, err := newHandler(ctx, level, logFormat, export)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(slog.New(newTraceContextHandler(handler)))
	return shutdown, nil
}

func newHandler(ctx context.Context, level slog.Level, logFormat, export string) (slog.Handler, func(context.Context) error, error) {
	switch strings.ToLower(export) {
	case "", "off":
		h, err := newStdoutHandler(level, logFormat)
		if err != nil {
			return nil, nil, err
		}
		return h, noopShutdown, nil
	case "stdout", "http", "grpc":
		return newOTelHandler(ctx, level, export)
	default:
		return nil, nil, fmt.Errorf("unsupported log export %q (expected: off, stdout, http, grpc)", export)
	}
}

// newStdoutHandler creates a handler for human-readable logs.
func newStdoutHandler(level slog.Level, logFormat string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	switch strings.ToLower(logFormat) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q (expected: json, text)", logFormat)
	}

	return handler, nil
}

// newOTelHandler creates a handler routing records through the OpenTelemetry
// log SDK with the chosen exporter. Level filtering happens inside the
// pipeline via minsev, so exported records and stdout logs honor the same
// threshold.
func newOTelHandler(ctx context.Context, level slog.Level, export string) (slog.Handler, func(context.Context) error, error) {
	var (
		exporter sdklog.Exporter
		err      error
	)
	switch export {
	case "stdout":
		exporter, err = stdoutlog.New()
	case "http":
		exporter, err = otlploghttp.New(ctx)
	case "grpc":
		exporter, err = otlploggrpc.New(ctx)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("create %s log exporter: %w", export, err)
	}

	processor := minsev.NewLogProcessor(
		sdklog.NewBatchProcessor(exporter),
		minSeverity(level),
	)
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(processor))

	handler := otelslog.NewHandler(scopeName, otelslog.WithLoggerProvider(provider))
	return handler, provider.Shutdown, nil
}

// minSeverity maps a slog level onto the minsev severity threshold.
func minSeverity(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
