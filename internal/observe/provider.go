package observe

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// ServiceName is the service.name reported when no other name is set.
const ServiceName = "lingvox"

// TelemetryOption tunes [Setup].
type TelemetryOption func(*telemetry)

type telemetry struct {
	name     string
	version  string
	exporter sdktrace.SpanExporter
	sampler  sdktrace.Sampler
}

// WithService overrides the reported service name and version.
func WithService(name, version string) TelemetryOption {
	return func(t *telemetry) {
		if name != "" {
			t.name = name
		}
		t.version = version
	}
}

// WithSpanExporter batches finished spans into exp. Without it spans are
// sampled for log correlation but never leave the process.
func WithSpanExporter(exp sdktrace.SpanExporter) TelemetryOption {
	return func(t *telemetry) { t.exporter = exp }
}

// WithSampleRatio keeps the given fraction of root traces. Values at or
// above 1 keep everything.
func WithSampleRatio(ratio float64) TelemetryOption {
	return func(t *telemetry) {
		if ratio < 1 {
			t.sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
		}
	}
}

// Setup installs global meter and tracer providers. Metrics are read by a
// Prometheus exporter registered on the default registry, which the HTTP
// API serves on /metrics. The returned func flushes and stops both
// providers.
func Setup(ctx context.Context, opts ...TelemetryOption) (func(context.Context) error, error) {
	t := telemetry{name: ServiceName, sampler: sdktrace.AlwaysSample()}
	for _, opt := range opts {
		opt(&t)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(t.name),
		semconv.ServiceVersion(t.version),
	))
	if err != nil {
		return nil, fmt.Errorf("observe: build resource: %w", err)
	}

	reader, err := promexporter.New()
	if err != nil {
		return nil, fmt.Errorf("observe: prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(t.sampler),
	}
	if t.exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(t.exporter))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)

	otel.SetMeterProvider(mp)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		// Traces first so spans ended during shutdown still reach the exporter.
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}
