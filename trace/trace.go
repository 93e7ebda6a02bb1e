// Package trace carries request correlation identifiers through a context and
// stamps them onto outbound HTTP headers.
package trace

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	nethttp "net/http"

	"github.com/google/uuid"
)

// contextKey is the type for context keys to avoid collisions
type contextKey string

const (
	traceIDKey     contextKey = "trace_id"
	traceParentKey contextKey = "traceparent"
	traceStateKey  contextKey = "tracestate"

	// HeaderXRequestID is the standard header name for request tracing
	HeaderXRequestID = "X-Request-ID"
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = "traceparent"
	// HeaderTraceState is the W3C trace context "tracestate" header name
	HeaderTraceState = "tracestate"
)

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// IDFromContext returns a trace ID from context if present
func IDFromContext(ctx context.Context) (string, bool) {
	if traceID, ok := ctx.Value(traceIDKey).(string); ok && traceID != "" {
		return traceID, true
	}
	return "", false
}

// EnsureTraceID returns an existing trace ID from context or generates a new one
func EnsureTraceID(ctx context.Context) string {
	if traceID, ok := IDFromContext(ctx); ok {
		return traceID
	}
	return uuid.New().String()
}

// WithTraceParent adds a W3C traceparent value to the context
func WithTraceParent(ctx context.Context, traceParent string) context.Context {
	return context.WithValue(ctx, traceParentKey, traceParent)
}

// ParentFromContext returns a traceparent from context if present
func ParentFromContext(ctx context.Context) (string, bool) {
	if tp, ok := ctx.Value(traceParentKey).(string); ok && tp != "" {
		return tp, true
	}
	return "", false
}

// WithTraceState adds a W3C tracestate value to the context
func WithTraceState(ctx context.Context, traceState string) context.Context {
	return context.WithValue(ctx, traceStateKey, traceState)
}

// StateFromContext returns a tracestate from context if present
func StateFromContext(ctx context.Context) (string, bool) {
	if ts, ok := ctx.Value(traceStateKey).(string); ok && ts != "" {
		return ts, true
	}
	return "", false
}

// GenerateTraceParent creates a minimal W3C traceparent header value.
// Format: version(2)-trace-id(32)-span-id(16)-flags(2), e.g., "00-<32>-<16>-01"
func GenerateTraceParent() string {
	traceID := randomID(16)
	spanID := randomID(8)
	return "00-" + hex.EncodeToString(traceID) + "-" + hex.EncodeToString(spanID) + "-01"
}

// randomID never returns an all-zero id; W3C treats those as invalid.
func randomID(n int) []byte {
	b := make([]byte, n)
	if _, err := crand.Read(b); err != nil {
		clear(b)
	}
	for _, v := range b {
		if v != 0 {
			return b
		}
	}
	b[n-1] = 0x01
	return b
}

// InjectOptions controls which headers Inject writes.
type InjectOptions struct {
	// IDHeader is the request-id header name (default: X-Request-ID)
	IDHeader string
	// NewID generates a request id when the context carries none (default: uuid)
	NewID func() string
	// W3C enables traceparent/tracestate propagation
	W3C bool
}

// Inject stamps correlation headers onto h without overwriting values the
// caller already set. It returns the request id in effect.
func Inject(ctx context.Context, h nethttp.Header, opts InjectOptions) string {
	header := opts.IDHeader
	if header == "" {
		header = HeaderXRequestID
	}

	id := h.Get(header)
	if id == "" {
		if ctxID, ok := IDFromContext(ctx); ok {
			id = ctxID
		} else if opts.NewID != nil {
			id = opts.NewID()
		} else {
			id = uuid.New().String()
		}
		h.Set(header, id)
	}

	if !opts.W3C {
		return id
	}

	if h.Get(HeaderTraceParent) == "" {
		tp, ok := ParentFromContext(ctx)
		if !ok {
			tp = GenerateTraceParent()
		}
		h.Set(HeaderTraceParent, tp)
	}
	if h.Get(HeaderTraceState) == "" {
		if ts, ok := StateFromContext(ctx); ok {
			h.Set(HeaderTraceState, ts)
		}
	}
	return id
}
