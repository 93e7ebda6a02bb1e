// Package testing provides in-memory OpenTelemetry providers and lookup
// helpers for asserting client spans and metrics in unit tests.
//
//	tp := obtest.NewTestTraceProvider()
//	mp := obtest.NewTestMeterProvider()
//	c := httpclient.NewBuilder(log).WithTracerProvider(tp).WithMeterProvider(mp).Build()
//	...
//	spans := tp.Exporter.GetSpans()
//	total := obtest.SumInt64(mp.Collect(t), "httpclient.request.count")
//
// NewTestLoggerProvider captures records emitted through logger.NewWithOTel.
package testing

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTraceProvider wraps the SDK TracerProvider and in-memory exporter for testing.
type TestTraceProvider struct {
	*sdktrace.TracerProvider
	Exporter *tracetest.InMemoryExporter
}

// NewTestTraceProvider creates a TracerProvider that exports synchronously to memory.
func NewTestTraceProvider() *TestTraceProvider {
	exporter := tracetest.NewInMemoryExporter()
	return &TestTraceProvider{
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)),
		Exporter:       exporter,
	}
}

// SpansNamed returns the finished spans with the given name.
func (tp *TestTraceProvider) SpansNamed(name string) tracetest.SpanStubs {
	var out tracetest.SpanStubs
	for _, s := range tp.Exporter.GetSpans() {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

// TestMeterProvider wraps the SDK MeterProvider and manual reader for testing.
type TestMeterProvider struct {
	*sdkmetric.MeterProvider
	Reader *sdkmetric.ManualReader
}

// NewTestMeterProvider creates a MeterProvider collected on demand.
func NewTestMeterProvider() *TestMeterProvider {
	reader := sdkmetric.NewManualReader()
	return &TestMeterProvider{
		MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		Reader:        reader,
	}
}

// Collect reads all metrics, failing the test on error.
func (tmp *TestMeterProvider) Collect(t *testing.T) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, tmp.Reader.Collect(context.Background(), &rm), "failed to collect metrics")
	return rm
}

// FindMetric returns the named metric or nil.
func FindMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// SumInt64 totals an int64 counter across data points. Missing metrics count as zero.
func SumInt64(rm metricdata.ResourceMetrics, name string) int64 {
	m := FindMetric(rm, name)
	if m == nil {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return 0
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

// HistogramCount totals the observations of a float64 or int64 histogram.
func HistogramCount(rm metricdata.ResourceMetrics, name string) uint64 {
	m := FindMetric(rm, name)
	if m == nil {
		return 0
	}
	var total uint64
	switch h := m.Data.(type) {
	case metricdata.Histogram[float64]:
		for _, dp := range h.DataPoints {
			total += dp.Count
		}
	case metricdata.Histogram[int64]:
		for _, dp := range h.DataPoints {
			total += dp.Count
		}
	}
	return total
}

// SpanAttribute returns the value of key on span.
func SpanAttribute(span tracetest.SpanStub, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

// LogExporter keeps exported log records in memory.
type LogExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

// Export stores clones of records; the SDK reuses the originals.
func (e *LogExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range records {
		e.records = append(e.records, records[i].Clone())
	}
	return nil
}

func (e *LogExporter) Shutdown(context.Context) error   { return nil }
func (e *LogExporter) ForceFlush(context.Context) error { return nil }

// Records returns the exported records in emission order.
func (e *LogExporter) Records() []sdklog.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sdklog.Record(nil), e.records...)
}

// RecordsWithBody returns the records whose body is the string msg.
func (e *LogExporter) RecordsWithBody(msg string) []sdklog.Record {
	var out []sdklog.Record
	for _, r := range e.Records() {
		if r.Body().Kind() == otellog.KindString && r.Body().AsString() == msg {
			out = append(out, r)
		}
	}
	return out
}

// TestLoggerProvider wraps the SDK LoggerProvider and an in-memory exporter.
type TestLoggerProvider struct {
	*sdklog.LoggerProvider
	Exporter *LogExporter
}

// NewTestLoggerProvider creates a LoggerProvider that exports synchronously to memory.
func NewTestLoggerProvider() *TestLoggerProvider {
	exporter := &LogExporter{}
	return &TestLoggerProvider{
		LoggerProvider: sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exporter))),
		Exporter:       exporter,
	}
}

// LogAttribute returns the value of key on rec.
func LogAttribute(rec sdklog.Record, key string) (otellog.Value, bool) {
	var (
		val   otellog.Value
		found bool
	)
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		if kv.Key == key {
			val, found = kv.Value, true
			return false
		}
		return true
	})
	return val, found
}
