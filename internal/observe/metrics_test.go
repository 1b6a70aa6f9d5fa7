package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := []struct {
		name string
		h    metric.Float64Histogram
	}{
		{"lingvox.provider.duration", m.ProviderDuration},
		{"lingvox.transcode.duration", m.TranscodeDuration},
		{"lingvox.workpool.queue_wait", m.QueueWait},
	}

	for _, tc := range histograms {
		tc.h.Record(ctx, 0.123)
		tc.h.Record(ctx, 0.456)
	}

	rm := collect(t, reader)

	for _, tc := range histograms {
		t.Run(tc.name, func(t *testing.T) {
			met := findMetric(rm, tc.name)
			if met == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			hist, ok := met.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q is not a histogram", tc.name)
			}
			if len(hist.DataPoints) == 0 {
				t.Fatalf("metric %q has no data points", tc.name)
			}
			if got := hist.DataPoints[0].Count; got != 2 {
				t.Errorf("sample count = %d, want 2", got)
			}
		})
	}
}

// sumFor totals the data points carrying key=value, or returns -1 when none do.
func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name, key, value string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not a sum", name)
	}
	total, found := int64(0), false
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
			found = true
		}
	}
	if !found {
		return -1
	}
	return total
}

func TestRecordAttempt(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAttempt(ctx, KindTranslation, "llm", 120*time.Millisecond, nil)
	m.RecordAttempt(ctx, KindTranslation, "llm", 80*time.Millisecond, nil)
	m.RecordAttempt(ctx, KindTranslation, "google", time.Second, errors.New("boom"))

	rm := collect(t, reader)
	if got := sumFor(t, rm, "lingvox.provider.requests", "status", "ok"); got != 2 {
		t.Errorf("ok requests = %d, want 2", got)
	}
	if got := sumFor(t, rm, "lingvox.provider.requests", "status", "error"); got != 1 {
		t.Errorf("error requests = %d, want 1", got)
	}
	if got := sumFor(t, rm, "lingvox.provider.errors", "provider", "google"); got != 1 {
		t.Errorf("google errors = %d, want 1", got)
	}
	if got := sumFor(t, rm, "lingvox.provider.errors", "provider", "llm"); got != -1 {
		t.Errorf("llm errors = %d, want no data point", got)
	}

	hist, ok := findMetric(rm, "lingvox.provider.duration").Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("provider duration is not a histogram")
	}
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	if count != 3 {
		t.Errorf("duration samples = %d, want 3", count)
	}
}

func TestRecordFallbackAndResult(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordFallback(ctx, KindTTS, "gtts")
	m.RecordResult(ctx, KindSTT, "empty")
	m.RecordResult(ctx, KindSTT, "empty")
	m.RecordResult(ctx, KindSTT, "ok")

	rm := collect(t, reader)
	if got := sumFor(t, rm, "lingvox.provider.fallbacks", "provider", "gtts"); got != 1 {
		t.Errorf("fallbacks = %d, want 1", got)
	}
	if got := sumFor(t, rm, "lingvox.orchestrator.results", "status", "empty"); got != 2 {
		t.Errorf("empty results = %d, want 2", got)
	}
}

func TestRecordBreakerChange(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordBreakerChange(ctx, KindSTT, "whisper", "open")
	m.RecordBreakerChange(ctx, KindSTT, "whisper", "half-open")
	m.RecordBreakerChange(ctx, KindSTT, "openai", "open")

	rm := collect(t, reader)
	if got := sumFor(t, rm, "lingvox.provider.breaker.transitions", "state", "open"); got != 2 {
		t.Errorf("open transitions = %d, want 2", got)
	}
	if got := sumFor(t, rm, "lingvox.provider.breaker.transitions", "provider", "whisper"); got != 2 {
		t.Errorf("whisper transitions = %d, want 2", got)
	}
}

func TestBusyWorkersGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.BusyWorkers.Add(ctx, 1)
	m.BusyWorkers.Add(ctx, 1)
	m.BusyWorkers.Add(ctx, -1)

	rm := collect(t, reader)
	met := findMetric(rm, "lingvox.workpool.busy")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 {
		t.Fatal("metric is not a sum with data points")
	}
	if got := sum.DataPoints[0].Value; got != 1 {
		t.Errorf("busy workers = %d, want 1", got)
	}
}

func TestHTTPRequestDuration(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.HTTPRequestDuration.Record(ctx, 0.05,
		metric.WithAttributes(
			attribute.String("method", "GET"),
			attribute.String("path", "/healthz"),
		),
	)

	rm := collect(t, reader)
	met := findMetric(rm, "lingvox.http.request.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if got := hist.DataPoints[0].Count; got != 1 {
		t.Errorf("sample count = %d, want 1", got)
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different pointers")
	}
}
