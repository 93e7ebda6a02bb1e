package observability

import (
	"context"

	otellog "go.opentelemetry.io/otel/log"
	lognoop "go.opentelemetry.io/otel/log/noop"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// noopProvider is returned when telemetry is disabled.
type noopProvider struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	loggerProvider otellog.LoggerProvider
}

func newNoopProvider() *noopProvider {
	return &noopProvider{
		tracerProvider: noop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
		loggerProvider: lognoop.NewLoggerProvider(),
	}
}

func (n *noopProvider) TracerProvider() trace.TracerProvider   { return n.tracerProvider }
func (n *noopProvider) MeterProvider() metric.MeterProvider    { return n.meterProvider }
func (n *noopProvider) LoggerProvider() otellog.LoggerProvider { return n.loggerProvider }
func (n *noopProvider) Shutdown(_ context.Context) error       { return nil }
func (n *noopProvider) ForceFlush(_ context.Context) error     { return nil }
