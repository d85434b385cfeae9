package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader
// for programmatic metric inspection.
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

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

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

func TestRecordToolCall(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordToolCall(ctx, "list_okta_users", "ok")
	m.RecordToolCall(ctx, "list_okta_users", "ok")
	m.RecordToolCall(ctx, "get_okta_user", "error")

	rm := collect(t, reader)
	met := findMetric(rm, "oktamcp.tool.calls")
	if met == nil {
		t.Fatal("oktamcp.tool.calls not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("oktamcp.tool.calls is not a sum: %T", met.Data)
	}

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
		if tool, ok := dp.Attributes.Value(attribute.Key("tool")); ok &&
			tool.AsString() == "list_okta_users" && dp.Value != 2 {
			t.Errorf("list_okta_users count = %d, want 2", dp.Value)
		}
	}
	if total != 3 {
		t.Fatalf("total tool calls = %d, want 3", total)
	}
}

func TestRecordUpstream_ClassifiesRateLimit(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordUpstream(ctx, "users", nil, false)
	m.RecordUpstream(ctx, "users", errors.New("HTTP 429"), true)
	m.RecordUpstream(ctx, "logs", errors.New("HTTP 500"), false)

	rm := collect(t, reader)

	requests := findMetric(rm, "oktamcp.upstream.requests")
	if requests == nil {
		t.Fatal("request counter not found")
	}
	var reqTotal int64
	for _, dp := range requests.Data.(metricdata.Sum[int64]).DataPoints {
		reqTotal += dp.Value
	}
	if reqTotal != 3 {
		t.Fatalf("requests = %d, want 3", reqTotal)
	}

	hits := findMetric(rm, "oktamcp.upstream.rate_limits")
	if hits == nil {
		t.Fatal("rate-limit counter not found")
	}
	var hitTotal int64
	for _, dp := range hits.Data.(metricdata.Sum[int64]).DataPoints {
		hitTotal += dp.Value
	}
	if hitTotal != 1 {
		t.Fatalf("rate-limit hits = %d, want 1", hitTotal)
	}

	errs := findMetric(rm, "oktamcp.upstream.errors")
	if errs == nil {
		t.Fatal("error counter not found")
	}
	for _, dp := range errs.Data.(metricdata.Sum[int64]).DataPoints {
		kind, _ := dp.Attributes.Value(attribute.Key("kind"))
		ep, _ := dp.Attributes.Value(attribute.Key("endpoint"))
		if ep.AsString() == "users" && kind.AsString() != "rate_limit" {
			t.Errorf("users error kind = %q, want rate_limit", kind.AsString())
		}
	}
}

func TestRegisterAdmissionGauges(t *testing.T) {
	m, reader := newTestMetrics(t)

	var active, queued int64 = 3, 7
	if err := m.RegisterAdmissionGauges(
		func() int64 { return active },
		func() int64 { return queued },
	); err != nil {
		t.Fatalf("RegisterAdmissionGauges: %v", err)
	}

	rm := collect(t, reader)
	for name, want := range map[string]int64{
		"oktamcp.gate.active": 3,
		"oktamcp.gate.queued": 7,
	} {
		met := findMetric(rm, name)
		if met == nil {
			t.Fatalf("%s not found", name)
		}
		gauge, ok := met.Data.(metricdata.Gauge[int64])
		if !ok || len(gauge.DataPoints) == 0 {
			t.Fatalf("%s has no gauge data", name)
		}
		if got := gauge.DataPoints[0].Value; got != want {
			t.Errorf("%s = %d, want %d", name, got, want)
		}
	}
}

func TestToolDurationBuckets(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.ToolDuration.Record(context.Background(), 0.42)

	rm := collect(t, reader)
	met := findMetric(rm, "oktamcp.tool.duration")
	if met == nil {
		t.Fatal("duration histogram not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) == 0 {
		t.Fatal("no histogram data recorded")
	}
	if hist.DataPoints[0].Count != 1 {
		t.Fatalf("count = %d, want 1", hist.DataPoints[0].Count)
	}
}
