// Package tracking records OpenTelemetry metrics and spans for client calls.
// A nil *Tracker is valid and records nothing.
package tracking

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// ScopeName is the instrumentation scope for meters and tracers
	ScopeName = "go-authclient/httpclient"

	MetricRequestDuration = "httpclient.request.duration" // Histogram in seconds
	MetricRequestCount    = "httpclient.request.count"    // Counter per attempt
	MetricRetryCount      = "httpclient.retry.count"      // Counter
	MetricRefreshCount    = "httpclient.refresh.count"    // Counter per refresh cycle
	MetricRefreshWaiters  = "httpclient.refresh.waiters"  // Histogram of queued requests per cycle

	AttrAttempts  = "httpclient.attempts"
	AttrRefreshed = "httpclient.refreshed"
	AttrOutcome   = "httpclient.refresh.outcome"
	AttrStatus    = "httpclient.status"
)

// Refresh outcomes
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeFailure = "failure"
)

// Tracker owns the client's instruments.
type Tracker struct {
	tracer    trace.Tracer
	duration  metric.Float64Histogram
	requests  metric.Int64Counter
	retries   metric.Int64Counter
	refreshes metric.Int64Counter
	waiters   metric.Int64Histogram
}

// logMetricError logs a metric initialization error to stderr.
func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize httpclient metric %s: %v\n", metricName, err)
	}
}

// New creates a Tracker. Nil providers fall back to the otel globals.
func New(mp metric.MeterProvider, tp trace.TracerProvider) *Tracker {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	meter := mp.Meter(ScopeName)
	t := &Tracker{tracer: tp.Tracer(ScopeName)}

	var err error
	t.duration, err = meter.Float64Histogram(
		MetricRequestDuration,
		metric.WithDescription("Duration of individual HTTP attempts"),
		metric.WithUnit("s"),
	)
	logMetricError(MetricRequestDuration, err)

	t.requests, err = meter.Int64Counter(
		MetricRequestCount,
		metric.WithDescription("Number of HTTP attempts sent"),
		metric.WithUnit("{request}"),
	)
	logMetricError(MetricRequestCount, err)

	t.retries, err = meter.Int64Counter(
		MetricRetryCount,
		metric.WithDescription("Number of backoff retries"),
		metric.WithUnit("{retry}"),
	)
	logMetricError(MetricRetryCount, err)

	t.refreshes, err = meter.Int64Counter(
		MetricRefreshCount,
		metric.WithDescription("Number of credential refresh cycles"),
		metric.WithUnit("{refresh}"),
	)
	logMetricError(MetricRefreshCount, err)

	t.waiters, err = meter.Int64Histogram(
		MetricRefreshWaiters,
		metric.WithDescription("Requests queued behind a credential refresh"),
		metric.WithUnit("{request}"),
	)
	logMetricError(MetricRefreshWaiters, err)

	return t
}

// StartCall opens the span covering one logical call, retries and replays included.
func (t *Tracker) StartCall(ctx context.Context, method, url string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "HTTP "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(method),
			semconv.URLFull(url),
		),
	)
}

// EndCall closes span with the final outcome.
func (t *Tracker) EndCall(span trace.Span, status, attempts int, refreshed bool, err error) {
	if t == nil {
		return
	}
	span.SetAttributes(
		attribute.Int(AttrAttempts, attempts),
		attribute.Bool(AttrRefreshed, refreshed),
	)
	if status > 0 {
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// RecordAttempt records one transport round trip. status is 0 when no
// response was received.
func (t *Tracker) RecordAttempt(ctx context.Context, method string, status int, d time.Duration) {
	if t == nil {
		return
	}
	attrs := metric.WithAttributes(
		semconv.HTTPRequestMethodKey.String(method),
		attribute.String(AttrStatus, statusClass(status)),
	)
	if t.duration != nil {
		t.duration.Record(ctx, d.Seconds(), attrs)
	}
	if t.requests != nil {
		t.requests.Add(ctx, 1, attrs)
	}
}

// RecordRetry counts a backoff retry.
func (t *Tracker) RecordRetry(ctx context.Context, method string) {
	if t == nil || t.retries == nil {
		return
	}
	t.retries.Add(ctx, 1, metric.WithAttributes(semconv.HTTPRequestMethodKey.String(method)))
}

// RecordRefresh counts a refresh cycle and the number of requests that waited on it.
func (t *Tracker) RecordRefresh(ctx context.Context, outcome string, waiters int) {
	if t == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrOutcome, outcome))
	if t.refreshes != nil {
		t.refreshes.Add(ctx, 1, attrs)
	}
	if t.waiters != nil {
		t.waiters.Record(ctx, int64(waiters), attrs)
	}
}

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
