// Package observability configures the process-wide slog logger.
//
// Text and JSON formats write to stderr through slog's own handlers. The otel
// formats route records through the OpenTelemetry log SDK via the otelslog
// bridge, exporting to stdout, OTLP/HTTP or OTLP/gRPC. Exporter endpoints are
// taken from the standard OTEL_EXPORTER_OTLP_* environment variables.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Supported log formats.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatOTel     = "otel"
	FormatOTLPHTTP = "otlp-http"
	FormatOTLPGRPC = "otlp-grpc"
)

// instrumentationName identifies log records emitted through the otel bridge.
const instrumentationName = "github.com/florianilch/dashctl"

// ShutdownFunc flushes and releases logging resources.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Instrument installs the default slog logger for the given level and format.
// The returned function must be called before exit to flush buffered records.
func Instrument(ctx context.Context, level slog.Level, format string) (ShutdownFunc, error) {
	return instrument(ctx, os.Stderr, level, format)
}

func instrument(ctx context.Context, w io.Writer, level slog.Level, format string) (ShutdownFunc, error) {
	opts := &slog.HandlerOptions{Level: level}

	switch format {
	case FormatText, "":
		slog.SetDefault(slog.New(slog.NewTextHandler(w, opts)))
		return noopShutdown, nil
	case FormatJSON:
		slog.SetDefault(slog.New(slog.NewJSONHandler(w, opts)))
		return noopShutdown, nil
	}

	processor, err := newProcessor(ctx, w, format)
	if err != nil {
		return nil, err
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(minsev.NewLogProcessor(processor, severity(level))),
	)
	global.SetLoggerProvider(provider)

	// Exporter failures must not recurse into the handler being installed
	fallback := slog.New(slog.NewTextHandler(w, opts))
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		fallback.Error("opentelemetry error", "error", err)
	}))

	slog.SetDefault(slog.New(otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(provider))))

	return func(ctx context.Context) error {
		return errors.Join(provider.ForceFlush(ctx), provider.Shutdown(ctx))
	}, nil
}

// newProcessor builds the exporting processor for an otel format.
func newProcessor(ctx context.Context, w io.Writer, format string) (sdklog.Processor, error) {
	switch format {
	case FormatOTel:
		exporter, err := stdoutlog.New(stdoutlog.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("creating stdout log exporter: %w", err)
		}
		// Synchronous export keeps CLI output ordered
		return sdklog.NewSimpleProcessor(exporter), nil
	case FormatOTLPHTTP:
		exporter, err := otlploghttp.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating otlp/http log exporter: %w", err)
		}
		return sdklog.NewBatchProcessor(exporter), nil
	case FormatOTLPGRPC:
		exporter, err := otlploggrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating otlp/grpc log exporter: %w", err)
		}
		return sdklog.NewBatchProcessor(exporter), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
}

// severity maps a slog level onto the minimum otel severity to export.
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
