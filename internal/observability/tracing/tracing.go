// Package tracing wires OpenTelemetry tracing. Without an endpoint the
// global provider stays a no-op.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/vendorhub/pkg/logger"
)

// InstrumentationName names the tracer used across the service.
const InstrumentationName = "github.com/okian/vendorhub"

// Config selects the exporter.
type Config struct {
	Endpoint    string // OTLP/HTTP host:port; empty disables export
	ServiceName string
	Version     string
	Insecure    bool
}

// Init installs a global tracer provider exporting to cfg.Endpoint and
// returns its shutdown function.
func Init(ctx context.Context, log logger.Logger, cfg Config) (func(context.Context) error, error) {
	if cfg.Endpoint == "" {
		log.Info(ctx, "tracing disabled: otlp_endpoint not set")
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	log.Info(ctx, "tracing initialized", logger.String("endpoint", cfg.Endpoint))
	return tp.Shutdown, nil
}

// Tracer returns the service tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}
