package observability

import (
	"fmt"
	"strings"
	"time"
)

const (
	// EndpointStdout is a special endpoint value that outputs to stdout (for local development).
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// EnvironmentDevelopment is the default environment name for development mode.
	EnvironmentDevelopment = "development"

	defaultSampleRate     = 1.0
	defaultMetricInterval = 30 * time.Second
	defaultExportTimeout  = 10 * time.Second
)

// Config defines the telemetry export settings for client spans, metrics and logs.
type Config struct {
	// Enabled controls whether telemetry is exported. When false the
	// provider is a no-op.
	Enabled bool `koanf:"enabled"`

	// Service identifies the emitting process in traces and metrics.
	Service ServiceConfig `koanf:"service"`

	// Environment indicates the deployment environment.
	Environment string `koanf:"environment"`

	// Endpoint is "stdout" or an OTLP collector address. HTTP endpoints are
	// full URLs; gRPC endpoints are host:port.
	Endpoint string `koanf:"endpoint"`

	// Protocol is "http" or "grpc".
	Protocol string `koanf:"protocol"`

	// Insecure disables TLS towards the collector.
	Insecure bool `koanf:"insecure"`

	// Headers are sent with every export (e.g. API keys).
	Headers map[string]string `koanf:"headers"`

	// SampleRate is the fraction of traces recorded, 0.0 to 1.0.
	SampleRate *float64 `koanf:"samplerate"`

	// MetricInterval is the periodic metric export interval.
	MetricInterval time.Duration `koanf:"metricinterval"`

	// Logs also exports log records written through logger.NewWithOTel,
	// using the same endpoint and protocol as spans and metrics.
	Logs bool `koanf:"logs"`

	// ExportTimeout bounds each export call.
	ExportTimeout time.Duration `koanf:"exporttimeout"`
}

// ServiceConfig contains service identification metadata.
type ServiceConfig struct {
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 {
	return &v
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Service.Version == "" {
		c.Service.Version = "unknown"
	}
	if c.Environment == "" {
		c.Environment = EnvironmentDevelopment
	}
	if c.Endpoint == "" {
		c.Endpoint = EndpointStdout
	}
	if c.Protocol == "" {
		c.Protocol = ProtocolHTTP
	}
	if c.SampleRate == nil {
		c.SampleRate = Float64Ptr(defaultSampleRate)
	}
	if c.MetricInterval <= 0 {
		c.MetricInterval = defaultMetricInterval
	}
	if c.ExportTimeout <= 0 {
		c.ExportTimeout = defaultExportTimeout
	}
}

// Validate checks an enabled configuration. Disabled configurations are always valid.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.Service.Name == "" {
		return ErrMissingServiceName
	}
	if c.SampleRate != nil && (*c.SampleRate < 0 || *c.SampleRate > 1) {
		return fmt.Errorf("%w: got %.2f", ErrInvalidSampleRate, *c.SampleRate)
	}
	if c.Endpoint == EndpointStdout {
		return nil
	}
	switch c.Protocol {
	case ProtocolHTTP, ProtocolGRPC:
	default:
		return fmt.Errorf("protocol '%s': %w", c.Protocol, ErrInvalidProtocol)
	}
	return validateEndpointFormat(c.Endpoint, c.Protocol)
}

// validateEndpointFormat rejects schemes on gRPC endpoints and requires them on HTTP ones.
func validateEndpointFormat(endpoint, protocol string) error {
	hasScheme := strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
	switch {
	case protocol == ProtocolGRPC && hasScheme:
		return fmt.Errorf("%w: grpc endpoint %q must be host:port", ErrInvalidEndpointFormat, endpoint)
	case protocol == ProtocolHTTP && !hasScheme:
		return fmt.Errorf("%w: http endpoint %q must include http:// or https://", ErrInvalidEndpointFormat, endpoint)
	}
	return nil
}
