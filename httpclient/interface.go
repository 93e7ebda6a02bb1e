package httpclient

import (
	"context"
	nethttp "net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	authtrace "github.com/gaborage/go-authclient/trace"
)

const (
	// HeaderXRequestID is the standard header name for request tracing
	HeaderXRequestID = authtrace.HeaderXRequestID
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = authtrace.HeaderTraceParent
	// HeaderTraceState is the W3C trace context "tracestate" header name
	HeaderTraceState = authtrace.HeaderTraceState
	// HeaderAuthorization carries the bearer credential
	HeaderAuthorization = "Authorization"
)

// Client defines the REST client interface for making HTTP requests
type Client interface {
	Get(ctx context.Context, req *Request) (*Response, error)
	Post(ctx context.Context, req *Request) (*Response, error)
	Put(ctx context.Context, req *Request) (*Response, error)
	Patch(ctx context.Context, req *Request) (*Response, error)
	Delete(ctx context.Context, req *Request) (*Response, error)
	Do(ctx context.Context, method string, req *Request) (*Response, error)
}

// Request represents an HTTP request with all necessary data.
//
// Body may be []byte, string or io.Reader (sent as-is) or any other value,
// which is JSON encoded. The pointer overrides win over client defaults when
// set.
type Request struct {
	URL     string
	Query   url.Values
	Headers map[string]string
	Body    any
	Auth    *BasicAuth

	// MaxRetries overrides Config.MaxRetries for this call. Zero disables retries.
	MaxRetries *int
	// RetryDelay overrides Config.RetryDelay for this call.
	RetryDelay *time.Duration
	// SkipAuthHeader sends the request without a bearer credential.
	SkipAuthHeader bool
	// SkipRefresh keeps a 401 on this request from triggering a credential refresh.
	SkipRefresh bool
}

// Response represents an HTTP response with tracking information
type Response struct {
	StatusCode int
	Body       []byte
	Headers    nethttp.Header
	Stats      Stats
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	CallCount   int64
}

// BasicAuth contains basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// RequestInterceptor is called before sending the request
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after receiving the response
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// ErrorInterceptor sees every failure that survives credential refresh and
// retries. Returning a response recovers the call; returning an error
// replaces the one passed in.
type ErrorInterceptor func(ctx context.Context, req *Request, err error) (*Response, error)

// Config holds the REST client configuration
type Config struct {
	// BaseURL is prepended to relative request URLs
	BaseURL              string
	Timeout              time.Duration
	MaxRetries           int
	RetryDelay           time.Duration
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	ErrorInterceptors    []ErrorInterceptor
	BasicAuth            *BasicAuth
	DefaultHeaders       map[string]string
	// TokenProvider supplies bearer credentials. Refresh handling is enabled
	// when it also implements TokenRefresher and ExpiryDetector.
	TokenProvider AuthTokenProvider
	// Transport replaces the default round tripper
	Transport nethttp.RoundTripper
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
	// TraceIDHeader configures the header name used for trace ID propagation (default: X-Request-ID)
	TraceIDHeader string
	// NewTraceID generates a new trace ID when none is present (default: uuid)
	NewTraceID func() string
	// TraceIDExtractor allows advanced extraction of a trace ID from context; return ok=false to fallback to generator
	TraceIDExtractor func(_ context.Context) (traceID string, ok bool)
	// EnableW3CTrace enables W3C Trace Context (traceparent/tracestate) propagation and generation
	EnableW3CTrace bool
	// RateLimit caps outbound attempts per second; zero disables limiting
	RateLimit float64
	// RateBurst is the limiter bucket size (default: 1)
	RateBurst int
	// MeterProvider and TracerProvider default to the otel globals
	MeterProvider  metric.MeterProvider
	TracerProvider oteltrace.TracerProvider
}

// Trace ID utility functions

// WithTraceID adds a trace ID to the context for HTTP client propagation
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return authtrace.WithTraceID(ctx, traceID)
}

// TraceIDFromContext returns a trace ID from context if present
func TraceIDFromContext(ctx context.Context) (string, bool) { return authtrace.IDFromContext(ctx) }

// EnsureTraceID returns an existing trace ID from context or generates a new one
func EnsureTraceID(ctx context.Context) string { return authtrace.EnsureTraceID(ctx) }

// WithTraceParent adds a W3C traceparent value to the context
func WithTraceParent(ctx context.Context, traceParent string) context.Context {
	return authtrace.WithTraceParent(ctx, traceParent)
}

// TraceParentFromContext returns a traceparent from context if present
func TraceParentFromContext(ctx context.Context) (string, bool) {
	return authtrace.ParentFromContext(ctx)
}

// WithTraceState adds a W3C tracestate value to the context
func WithTraceState(ctx context.Context, traceState string) context.Context {
	return authtrace.WithTraceState(ctx, traceState)
}

// TraceStateFromContext returns a tracestate from context if present
func TraceStateFromContext(ctx context.Context) (string, bool) {
	return authtrace.StateFromContext(ctx)
}

// NewTraceIDInterceptor creates a request interceptor that adds trace ID headers.
// The client already stamps X-Request-ID; this is for raw *http.Request users
// and for mirroring the id under additional header names.
func NewTraceIDInterceptor() RequestInterceptor {
	return NewTraceIDInterceptorFor(HeaderXRequestID)
}

// NewTraceIDInterceptorFor creates an interceptor that uses a custom header name
func NewTraceIDInterceptorFor(header string) RequestInterceptor {
	if header == "" {
		header = HeaderXRequestID
	}
	return func(ctx context.Context, req *nethttp.Request) error {
		if req.Header.Get(header) == "" {
			req.Header.Set(header, EnsureTraceID(ctx))
		}
		return nil
	}
}
