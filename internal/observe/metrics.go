// Package observe provides application-wide observability primitives
// for oktamcp: OpenTelemetry metrics, distributed tracing, and
// trace-aware structured logging.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A
// Prometheus exporter bridge is installed by [InitProvider] so that
// metrics can be scraped via the standard /metrics endpoint. Tests
// should use [NewMetrics] with their own [metric.MeterProvider] to
// avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all oktamcp
// metrics.
const meterName = "github.com/oktamcp/oktamcp"

// Metrics holds all OpenTelemetry metric instruments for the gateway.
// All fields are safe for concurrent use.
type Metrics struct {
	// ToolDuration tracks end-to-end tool execution latency.
	ToolDuration metric.Float64Histogram

	// ToolCalls counts tool invocations. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// UpstreamRequests counts admitted upstream API calls by endpoint.
	UpstreamRequests metric.Int64Counter

	// UpstreamErrors counts failed upstream calls by endpoint and kind.
	UpstreamErrors metric.Int64Counter

	// PagesFetched counts pagination pages retrieved across all walks.
	PagesFetched metric.Int64Counter

	// RateLimitHits counts upstream rate-limit rejections by endpoint.
	RateLimitHits metric.Int64Counter

	meter metric.Meter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// upstream-bound tool calls, which include pagination walks.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the
// given [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{meter: m}

	if met.ToolDuration, err = m.Float64Histogram("oktamcp.tool.duration",
		metric.WithDescription("Latency of MCP tool execution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolCalls, err = m.Int64Counter("oktamcp.tool.calls",
		metric.WithDescription("Total tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}
	if met.UpstreamRequests, err = m.Int64Counter("oktamcp.upstream.requests",
		metric.WithDescription("Total upstream API requests by endpoint."),
	); err != nil {
		return nil, err
	}
	if met.UpstreamErrors, err = m.Int64Counter("oktamcp.upstream.errors",
		metric.WithDescription("Total upstream errors by endpoint and kind."),
	); err != nil {
		return nil, err
	}
	if met.PagesFetched, err = m.Int64Counter("oktamcp.pagination.pages",
		metric.WithDescription("Total pagination pages fetched."),
	); err != nil {
		return nil, err
	}
	if met.RateLimitHits, err = m.Int64Counter("oktamcp.upstream.rate_limits",
		metric.WithDescription("Total upstream rate-limit rejections by endpoint."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RegisterAdmissionGauges exposes the admission gate's live state as
// observable gauges. The getters are polled on every metrics
// collection.
func (m *Metrics) RegisterAdmissionGauges(active, queued func() int64) error {
	activeGauge, err := m.meter.Int64ObservableGauge("oktamcp.gate.active",
		metric.WithDescription("Upstream calls currently executing."),
	)
	if err != nil {
		return err
	}
	queuedGauge, err := m.meter.Int64ObservableGauge("oktamcp.gate.queued",
		metric.WithDescription("Callers waiting for an admission slot."),
	)
	if err != nil {
		return err
	}
	_, err = m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(activeGauge, active())
		o.ObserveInt64(queuedGauge, queued())
		return nil
	}, activeGauge, queuedGauge)
	return err
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating
// it on first call using the global meter provider. Panics if
// instrument creation fails (should not happen with the global
// provider).
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

// RecordToolCall records a tool call counter increment with the
// standard attribute set.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string) {
	m.ToolCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
		),
	)
}

// RecordUpstream records one upstream request, classifying its outcome.
func (m *Metrics) RecordUpstream(ctx context.Context, endpoint string, err error, rateLimited bool) {
	ep := metric.WithAttributes(attribute.String("endpoint", endpoint))
	m.UpstreamRequests.Add(ctx, 1, ep)
	if rateLimited {
		m.RateLimitHits.Add(ctx, 1, ep)
	}
	if err != nil {
		kind := "upstream"
		if rateLimited {
			kind = "rate_limit"
		}
		m.UpstreamErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("endpoint", endpoint),
			attribute.String("kind", kind),
		))
	}
}
