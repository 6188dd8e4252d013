package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"salesreport/internal/config"
)

// TracerName is the instrumentation scope of pipeline spans.
const TracerName = "salesreport/pipeline"

// Tracing owns the tracer provider for one run.
type Tracing struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	output   io.Closer
}

// InitializeTracing sets up span export according to cfg. When tracing is
// disabled the returned Tracing hands out no-op spans.
func InitializeTracing(cfg config.TracingConfig, logger *slog.Logger) (*Tracing, error) {
	if !cfg.Enabled {
		return &Tracing{tracer: noop.NewTracerProvider().Tracer(TracerName)}, nil
	}

	var (
		w      io.Writer = os.Stdout
		closer io.Closer
	)
	if out := strings.TrimSpace(cfg.Output); out != "" && out != "stdout" {
		if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
			return nil, fmt.Errorf("failed to create trace directory: %w", err)
		}
		file, err := os.OpenFile(out, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open trace output %s: %w", out, err)
		}
		w, closer = file, file
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", config.AppName),
		attribute.String("service.version", config.AppVersion),
	)

	// Spans are exported synchronously; a batch run ends right after the last one.
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)

	if logger != nil {
		logger.Debug("Tracing initialized", slog.String("output", cfg.Output))
	}

	return &Tracing{
		provider: tp,
		tracer:   tp.Tracer(TracerName, trace.WithInstrumentationVersion(config.AppVersion)),
		output:   closer,
	}, nil
}

// Tracer returns the tracer for pipeline stages.
func (t *Tracing) Tracer() trace.Tracer {
	return t.tracer
}

// Shutdown flushes pending spans and releases the output file.
func (t *Tracing) Shutdown(ctx context.Context) error {
	var err error
	if t.provider != nil {
		err = t.provider.Shutdown(ctx)
	}
	if t.output != nil {
		if cerr := t.output.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// EndSpan records err on the span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
