// Package telemetry installs the OpenTelemetry tracer provider used by the client's otelhttp transport.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

type Options struct {
	ServiceName    string
	ServiceVersion string
	Exporter       string    // none, stdout or otlp
	Endpoint       string    // OTLP/HTTP endpoint URL, required for otlp
	Writer         io.Writer // stdout exporter destination, defaults to os.Stderr
}

// Setup registers a global tracer provider and the W3C trace context propagator.
//
// With ExporterNone (or an empty exporter) nothing is registered and the returned shutdown is a
// no-op. Otherwise the caller must call shutdown to flush pending spans before exiting.
func Setup(ctx context.Context, opts Options) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	var exporter sdktrace.SpanExporter
	switch opts.Exporter {
	case "", ExporterNone:
		return noop, nil
	case ExporterStdout:
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	case ExporterOTLP:
		if opts.Endpoint == "" {
			return noop, fmt.Errorf("an endpoint is required for the otlp exporter")
		}
		exporter, err = otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(opts.Endpoint))
	default:
		return noop, fmt.Errorf("unknown trace exporter %q", opts.Exporter)
	}
	if err != nil {
		return noop, fmt.Errorf("could not create %s trace exporter: %w", opts.Exporter, err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(opts.ServiceName),
			semconv.ServiceVersion(opts.ServiceVersion),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}
