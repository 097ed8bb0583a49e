package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names
const (
	MetricToolInvocations  = "traktmcp.tool.invocations"
	MetricToolFailures     = "traktmcp.tool.failures"
	MetricToolDuration     = "traktmcp.tool.duration"
	MetricUpstreamRequests = "traktmcp.upstream.requests"
	MetricUpstreamDuration = "traktmcp.upstream.duration"
)

// ToolObservation describes one finished tool invocation.
type ToolObservation struct {
	Tool     string
	Kind     string // empty on success
	Duration time.Duration
}

// UpstreamObservation describes one finished Trakt request.
type UpstreamObservation struct {
	Operation  string
	Method     string
	StatusCode int // zero when no response arrived
	Kind       string
	Duration   time.Duration
}

// Metrics records tool and upstream measurements. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	toolInvocations  metric.Int64Counter
	toolFailures     metric.Int64Counter
	toolDuration     metric.Float64Histogram
	upstreamRequests metric.Int64Counter
	upstreamDuration metric.Float64Histogram
}

// NewMetrics creates the instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	invocations, err := meter.Int64Counter(MetricToolInvocations,
		metric.WithDescription("Number of tool invocations"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(MetricToolFailures,
		metric.WithDescription("Number of tool invocations that returned an error"),
	)
	if err != nil {
		return nil, err
	}

	toolDur, err := meter.Float64Histogram(MetricToolDuration,
		metric.WithDescription("Duration of tool invocations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requests, err := meter.Int64Counter(MetricUpstreamRequests,
		metric.WithDescription("Number of requests sent to the Trakt API"),
	)
	if err != nil {
		return nil, err
	}

	upstreamDur, err := meter.Float64Histogram(MetricUpstreamDuration,
		metric.WithDescription("Duration of Trakt API requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		toolInvocations:  invocations,
		toolFailures:     failures,
		toolDuration:     toolDur,
		upstreamRequests: requests,
		upstreamDuration: upstreamDur,
	}, nil
}

// DefaultMetrics creates instruments on the global meter provider. It
// returns nil, which disables recording, if the instruments cannot be built.
func DefaultMetrics() *Metrics {
	m, err := NewMetrics(otel.Meter(InstrumentationName))
	if err != nil {
		otel.Handle(err)
		return nil
	}
	return m
}

// RecordTool records one tool invocation.
func (m *Metrics) RecordTool(ctx context.Context, o ToolObservation) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("tool", o.Tool),
		attribute.Bool("success", o.Kind == ""),
	}
	if o.Kind != "" {
		attrs = append(attrs, attribute.String("error_kind", o.Kind))
	}

	options := metric.WithAttributes(attrs...)
	m.toolInvocations.Add(ctx, 1, options)
	m.toolDuration.Record(ctx, o.Duration.Seconds(), options)
	if o.Kind != "" {
		m.toolFailures.Add(ctx, 1, options)
	}
}

// RecordUpstream records one Trakt API request.
func (m *Metrics) RecordUpstream(ctx context.Context, o UpstreamObservation) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", o.Operation),
		attribute.String("method", o.Method),
		attribute.Int("status_code", o.StatusCode),
	}
	if o.Kind != "" {
		attrs = append(attrs, attribute.String("error_kind", o.Kind))
	}

	options := metric.WithAttributes(attrs...)
	m.upstreamRequests.Add(ctx, 1, options)
	m.upstreamDuration.Record(ctx, o.Duration.Seconds(), options)
}
