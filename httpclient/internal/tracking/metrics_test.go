package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func setupTracker(t *testing.T) (*Tracker, *sdkmetric.ManualReader, *tracetest.InMemoryExporter) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
		_ = tp.Shutdown(context.Background())
	})
	return New(mp, tp), reader, exporter
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name != ScopeName {
			continue
		}
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumCounter(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum for %s", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestRecordAttempt(t *testing.T) {
	tracker, reader, _ := setupTracker(t)

	tracker.RecordAttempt(context.Background(), "GET", 200, 20*time.Millisecond)
	tracker.RecordAttempt(context.Background(), "GET", 401, 10*time.Millisecond)
	tracker.RecordAttempt(context.Background(), "GET", 0, 5*time.Millisecond)

	metrics := collect(t, reader)

	require.Contains(t, metrics, MetricRequestCount)
	assert.Equal(t, int64(3), sumCounter(t, metrics[MetricRequestCount]))

	hist, ok := metrics[MetricRequestDuration].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	classes := map[string]bool{}
	for _, dp := range hist.DataPoints {
		v, found := dp.Attributes.Value(attribute.Key(AttrStatus))
		require.True(t, found)
		classes[v.AsString()] = true
	}
	assert.Equal(t, map[string]bool{"2xx": true, "4xx": true, "error": true}, classes)
}

func TestRecordRetryAndRefresh(t *testing.T) {
	tracker, reader, _ := setupTracker(t)

	tracker.RecordRetry(context.Background(), "POST")
	tracker.RecordRetry(context.Background(), "POST")
	tracker.RecordRefresh(context.Background(), OutcomeSuccess, 4)

	metrics := collect(t, reader)
	assert.Equal(t, int64(2), sumCounter(t, metrics[MetricRetryCount]))
	assert.Equal(t, int64(1), sumCounter(t, metrics[MetricRefreshCount]))

	hist, ok := metrics[MetricRefreshWaiters].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, int64(4), hist.DataPoints[0].Sum)
	outcome, _ := hist.DataPoints[0].Attributes.Value(attribute.Key(AttrOutcome))
	assert.Equal(t, OutcomeSuccess, outcome.AsString())
}

func TestCallSpan(t *testing.T) {
	tracker, _, exporter := setupTracker(t)

	ctx, span := tracker.StartCall(context.Background(), "GET", "http://api.test/x")
	assert.True(t, span.SpanContext().IsValid())
	assert.Equal(t, span.SpanContext(), trace.SpanContextFromContext(ctx))
	tracker.EndCall(span, 200, 2, true, nil)

	_, failed := tracker.StartCall(context.Background(), "DELETE", "http://api.test/y")
	tracker.EndCall(failed, 0, 1, false, errors.New("boom"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	assert.Equal(t, "HTTP GET", spans[0].Name)
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, int64(2), attrs[AttrAttempts].AsInt64())
	assert.True(t, attrs[AttrRefreshed].AsBool())
	assert.Equal(t, int64(200), attrs["http.response.status_code"].AsInt64())

	assert.Equal(t, "HTTP DELETE", spans[1].Name)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
}

func TestNilTrackerIsNoop(t *testing.T) {
	var tracker *Tracker
	assert.NotPanics(t, func() {
		ctx, span := tracker.StartCall(context.Background(), "GET", "http://x")
		tracker.RecordAttempt(ctx, "GET", 200, time.Millisecond)
		tracker.RecordRetry(ctx, "GET")
		tracker.RecordRefresh(ctx, OutcomeFailure, 0)
		tracker.EndCall(span, 200, 1, false, nil)
	})
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "error", statusClass(0))
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "5xx", statusClass(503))
}
