package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	"google.golang.org/grpc/credentials/insecure"
)

// initLogProvider builds the logger provider that logger.NewWithOTel feeds.
// Records share the resource of spans and metrics so backends can join them.
func (p *provider) initLogProvider(res *resource.Resource) error {
	exporter, err := p.createLogExporter()
	if err != nil {
		return fmt.Errorf("failed to create log exporter: %w", err)
	}
	p.loggerProvider = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(
			exporter,
			sdklog.WithExportTimeout(p.config.ExportTimeout),
		)),
	)
	return nil
}

func (p *provider) createLogExporter() (sdklog.Exporter, error) {
	if p.config.Endpoint == EndpointStdout {
		return stdoutlog.New(stdoutlog.WithPrettyPrint())
	}

	switch p.config.Protocol {
	case ProtocolHTTP:
		opts := []otlploghttp.Option{otlploghttp.WithEndpointURL(p.config.Endpoint)}
		if p.config.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		if len(p.config.Headers) > 0 {
			opts = append(opts, otlploghttp.WithHeaders(p.config.Headers))
		}
		return otlploghttp.New(context.Background(), opts...)
	case ProtocolGRPC:
		opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(p.config.Endpoint)}
		if p.config.Insecure {
			opts = append(opts, otlploggrpc.WithTLSCredentials(insecure.NewCredentials()))
		}
		if len(p.config.Headers) > 0 {
			opts = append(opts, otlploggrpc.WithHeaders(p.config.Headers))
		}
		return otlploggrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("log protocol '%s': %w", p.config.Protocol, ErrInvalidProtocol)
	}
}
