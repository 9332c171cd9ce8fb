// Package observability configures process-wide structured logging.
//
// Logs always go to stderr as text or JSON. When an OTLP endpoint is
// configured through the standard OTEL_EXPORTER_OTLP_* environment
// variables, records are additionally exported through the OpenTelemetry
// log bridge, severity-filtered to the configured level.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// loggerName identifies this process in exported log records.
const loggerName = "edulite-cli"

// provider is retained so Shutdown can flush buffered records.
var provider *sdklog.LoggerProvider

// Instrument installs the process-wide slog default logger.
func Instrument(level slog.Level, format string) error {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		exporter, err := newExporter(context.Background())
		if err != nil {
			return fmt.Errorf("creating OTLP log exporter: %w", err)
		}

		processor := minsev.NewLogProcessor(sdklog.NewBatchProcessor(exporter), severity(level))
		provider = sdklog.NewLoggerProvider(sdklog.WithProcessor(processor))

		handler = fanout{handler, otelslog.NewHandler(loggerName, otelslog.WithLoggerProvider(provider))}
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

// Shutdown flushes buffered log records. Safe to call when Instrument
// configured no exporter.
func Shutdown(ctx context.Context) error {
	if provider == nil {
		return nil
	}
	return provider.Shutdown(ctx)
}

// newExporter builds the exporter selected by OTEL_EXPORTER_OTLP_PROTOCOL.
// http/protobuf is the OTLP default; "console" writes records to stdout for
// local debugging.
func newExporter(ctx context.Context) (sdklog.Exporter, error) {
	switch protocol := os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"); protocol {
	case "grpc":
		return otlploggrpc.New(ctx)
	case "console":
		return stdoutlog.New()
	case "", "http/protobuf":
		return otlploghttp.New(ctx)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

func severity(level slog.Level) minsev.Severity {
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

// fanout dispatches every record to all wrapped handlers.
type fanout []slog.Handler

var _ slog.Handler = (fanout)(nil)

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range f {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanout) WithGroup(name string) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}
