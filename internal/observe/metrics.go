// Package observe provides the observability primitives for lingvox:
// OpenTelemetry metrics, tracing helpers, trace-aware logging and the HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exposed for
// scraping through the Prometheus exporter installed by [Setup]. Tests
// should build their own [Metrics] with [NewMetrics] and a manual reader
// instead of using [DefaultMetrics].
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all lingvox metrics.
const meterName = "github.com/MrWong99/lingvox"

// Provider kinds used as the "kind" attribute.
const (
	KindTranslation = "translation"
	KindSTT         = "stt"
	KindTTS         = "tts"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
type Metrics struct {
	// --- Latency histograms ---

	// ProviderDuration tracks the latency of single provider attempts. Use
	// with attributes provider, kind.
	ProviderDuration metric.Float64Histogram

	// TranscodeDuration tracks ffmpeg transcoding latency.
	TranscodeDuration metric.Float64Histogram

	// QueueWait tracks how long a job waited for a free pool worker.
	QueueWait metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider attempts. Use with attributes
	// provider, kind, status.
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts failed provider attempts. Use with attributes
	// provider, kind.
	ProviderErrors metric.Int64Counter

	// Fallbacks counts calls that were served by a provider other than the
	// first one in the chain. Use with attributes provider, kind.
	Fallbacks metric.Int64Counter

	// BreakerTransitions counts circuit breaker state changes. Use with
	// attributes provider, kind, state (the new state).
	BreakerTransitions metric.Int64Counter

	// Results counts orchestrator outcomes. Use with attributes kind, status
	// ("ok", "empty" or "failed").
	Results metric.Int64Counter

	// --- Gauges ---

	// BusyWorkers tracks the number of pool workers running a job.
	BusyWorkers metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes method, path.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries in seconds. Cloud translation sits
// at the low end, local transcription and synthesis at the high end.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] using mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ProviderDuration, err = m.Float64Histogram("lingvox.provider.duration",
		metric.WithDescription("Latency of a single provider attempt."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscodeDuration, err = m.Float64Histogram("lingvox.transcode.duration",
		metric.WithDescription("Latency of audio transcoding."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.QueueWait, err = m.Float64Histogram("lingvox.workpool.queue_wait",
		metric.WithDescription("Time a job waited for a free worker."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.ProviderRequests, err = m.Int64Counter("lingvox.provider.requests",
		metric.WithDescription("Provider attempts by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("lingvox.provider.errors",
		metric.WithDescription("Failed provider attempts by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.Fallbacks, err = m.Int64Counter("lingvox.provider.fallbacks",
		metric.WithDescription("Calls served by a fallback provider."),
	); err != nil {
		return nil, err
	}
	if met.BreakerTransitions, err = m.Int64Counter("lingvox.provider.breaker.transitions",
		metric.WithDescription("Circuit breaker state changes by provider, kind, and new state."),
	); err != nil {
		return nil, err
	}
	if met.Results, err = m.Int64Counter("lingvox.orchestrator.results",
		metric.WithDescription("Orchestrator outcomes by kind and status."),
	); err != nil {
		return nil, err
	}

	if met.BusyWorkers, err = m.Int64UpDownCounter("lingvox.workpool.busy",
		metric.WithDescription("Number of pool workers currently running a job."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("lingvox.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordAttempt records one provider attempt: its latency, a request counter
// increment with status "ok" or "error", and an error counter increment on
// failure.
func (m *Metrics) RecordAttempt(ctx context.Context, kind, provider string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ProviderDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
	))
	m.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
	if err != nil {
		m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		))
	}
}

// RecordFallback counts a call that was answered by a non-primary provider.
func (m *Metrics) RecordFallback(ctx context.Context, kind, provider string) {
	m.Fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
	))
}

// RecordBreakerChange counts a circuit breaker entering state.
func (m *Metrics) RecordBreakerChange(ctx context.Context, kind, provider, state string) {
	m.BreakerTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
		attribute.String("state", state),
	))
}

// RecordResult counts one orchestrator outcome.
func (m *Metrics) RecordResult(ctx context.Context, kind, status string) {
	m.Results.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
}
