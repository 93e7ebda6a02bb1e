package httpclient

import (
	"maps"
	nethttp "net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/gaborage/go-authclient/config"
	"github.com/gaborage/go-authclient/logger"
)

// Builder provides a fluent interface for configuring a Client
type Builder struct {
	logger logger.Logger
	config Config
}

// NewBuilder creates a builder with default settings
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		logger: log,
		config: Config{
			Timeout:            defaultTimeout,
			MaxPayloadLogBytes: defaultMaxPayloadLogBytes,
			DefaultHeaders:     map[string]string{},
		},
	}
}

// WithBaseURL sets the URL relative request paths resolve against
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.BaseURL = baseURL
	return b
}

// WithTimeout sets the per-attempt timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithRetries sets the default retry count and backoff base
func (b *Builder) WithRetries(maxRetries int, retryDelay time.Duration) *Builder {
	b.config.MaxRetries = maxRetries
	b.config.RetryDelay = retryDelay
	return b
}

// WithBasicAuth sets default basic authentication
func (b *Builder) WithBasicAuth(username, password string) *Builder {
	b.config.BasicAuth = &BasicAuth{Username: username, Password: password}
	return b
}

// WithDefaultHeader adds a header sent with every request
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithDefaultHeaders merges headers into the defaults
func (b *Builder) WithDefaultHeaders(headers map[string]string) *Builder {
	maps.Copy(b.config.DefaultHeaders, headers)
	return b
}

// WithTokenProvider sets the bearer credential source
func (b *Builder) WithTokenProvider(provider AuthTokenProvider) *Builder {
	b.config.TokenProvider = provider
	return b
}

// WithRequestInterceptor appends a request interceptor. Interceptors run
// after the built-in auth and trace headers are applied.
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor appends a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithErrorInterceptor appends an error interceptor. Error interceptors run
// after credential refresh and retries.
func (b *Builder) WithErrorInterceptor(interceptor ErrorInterceptor) *Builder {
	b.config.ErrorInterceptors = append(b.config.ErrorInterceptors, interceptor)
	return b
}

// WithTransport replaces the underlying round tripper
func (b *Builder) WithTransport(rt nethttp.RoundTripper) *Builder {
	b.config.Transport = rt
	return b
}

// WithPayloadLogging enables debug logging of payloads up to maxBytes
func (b *Builder) WithPayloadLogging(enabled bool, maxBytes int) *Builder {
	b.config.LogPayloads = enabled
	if maxBytes > 0 {
		b.config.MaxPayloadLogBytes = maxBytes
	}
	return b
}

// WithTraceIDHeader sets the header used for the request id
func (b *Builder) WithTraceIDHeader(header string) *Builder {
	b.config.TraceIDHeader = header
	return b
}

// WithTraceIDGenerator sets the request id generator
func (b *Builder) WithTraceIDGenerator(gen func() string) *Builder {
	b.config.NewTraceID = gen
	return b
}

// WithW3CTrace toggles traceparent/tracestate propagation
func (b *Builder) WithW3CTrace(enabled bool) *Builder {
	b.config.EnableW3CTrace = enabled
	return b
}

// WithRateLimit limits outbound attempts to perSecond with the given burst
func (b *Builder) WithRateLimit(perSecond float64, burst int) *Builder {
	b.config.RateLimit = perSecond
	b.config.RateBurst = burst
	return b
}

// WithMeterProvider sets the provider for client metrics
func (b *Builder) WithMeterProvider(mp metric.MeterProvider) *Builder {
	b.config.MeterProvider = mp
	return b
}

// WithTracerProvider sets the provider for client spans
func (b *Builder) WithTracerProvider(tp oteltrace.TracerProvider) *Builder {
	b.config.TracerProvider = tp
	return b
}

// WithSettings applies loaded configuration. Zero values keep the current setting.
func (b *Builder) WithSettings(s config.HTTPClientConfig) *Builder {
	if s.BaseURL != "" {
		b.config.BaseURL = s.BaseURL
	}
	if s.Timeout > 0 {
		b.config.Timeout = s.Timeout
	}
	if s.MaxRetries > 0 {
		b.config.MaxRetries = s.MaxRetries
	}
	if s.RetryDelay > 0 {
		b.config.RetryDelay = s.RetryDelay
	}
	maps.Copy(b.config.DefaultHeaders, s.Headers)
	if s.LogPayloads {
		b.config.LogPayloads = true
	}
	if s.MaxPayloadLogBytes > 0 {
		b.config.MaxPayloadLogBytes = s.MaxPayloadLogBytes
	}
	if s.TraceIDHeader != "" {
		b.config.TraceIDHeader = s.TraceIDHeader
	}
	if s.W3CTrace {
		b.config.EnableW3CTrace = true
	}
	if s.RateLimit > 0 {
		b.config.RateLimit = s.RateLimit
		b.config.RateBurst = s.RateBurst
	}
	return b
}

// Build creates the client
func (b *Builder) Build() Client {
	cfg := b.config
	cfg.DefaultHeaders = maps.Clone(b.config.DefaultHeaders)
	return newClient(b.logger, &cfg)
}
