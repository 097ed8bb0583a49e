package telemetry

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, scope := range rm.ScopeMetrics {
		for i := range scope.Metrics {
			if scope.Metrics[i].Name == name {
				return &scope.Metrics[i]
			}
		}
	}
	return nil
}

func counterTotal(t *testing.T, rm *metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m := findMetric(rm, name)
	if m == nil {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected Sum[int64], got %T", name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestRecordTool(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTool(ctx, ToolObservation{Tool: "search_shows", Duration: 20 * time.Millisecond})
	m.RecordTool(ctx, ToolObservation{Tool: "search_shows", Kind: "ValidationError", Duration: time.Millisecond})
	m.RecordTool(ctx, ToolObservation{Tool: "get_watchlist", Duration: 5 * time.Millisecond})

	rm := collect(t, reader)

	if got := counterTotal(t, rm, MetricToolInvocations); got != 3 {
		t.Errorf("invocations = %d, want 3", got)
	}
	if got := counterTotal(t, rm, MetricToolFailures); got != 1 {
		t.Errorf("failures = %d, want 1", got)
	}

	dur := findMetric(rm, MetricToolDuration)
	if dur == nil {
		t.Fatal("duration histogram not recorded")
	}
	hist, ok := dur.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", dur.Data)
	}
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	if count != 3 {
		t.Errorf("histogram count = %d, want 3", count)
	}
}

func TestRecordUpstream(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordUpstream(context.Background(), UpstreamObservation{
		Operation:  "search",
		Method:     "GET",
		StatusCode: 200,
		Duration:   10 * time.Millisecond,
	})

	rm := collect(t, reader)
	if got := counterTotal(t, rm, MetricUpstreamRequests); got != 1 {
		t.Errorf("upstream requests = %d, want 1", got)
	}
	if findMetric(rm, MetricUpstreamDuration) == nil {
		t.Error("upstream duration histogram not recorded")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordTool(context.Background(), ToolObservation{Tool: "x"})
	m.RecordUpstream(context.Background(), UpstreamObservation{Operation: "x"})
}

func TestSetupWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "traktmcp-test", "")
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
	if Tracer() == nil {
		t.Error("Tracer() returned nil")
	}
}
