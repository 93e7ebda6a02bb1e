package httpclient

import (
	"context"
	nethttp "net/http"

	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"

	authtrace "github.com/gaborage/go-authclient/trace"
)

const bearerPrefix = "Bearer "

// injectAuth stamps the bearer credential. A credential handed out by the
// refresh coordinator takes precedence over the provider. Provider failures
// are logged and the request goes out without Authorization.
func (c *client) injectAuth(ctx context.Context, cl *call, req *nethttp.Request) {
	if cl.skipAuth {
		return
	}
	if cl.token != "" {
		req.Header.Set(HeaderAuthorization, bearerPrefix+cl.token)
		return
	}
	if c.config.TokenProvider == nil {
		return
	}

	token, err := c.config.TokenProvider.GetToken(ctx)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("method", cl.method).
			Str("url", cl.url).
			Msg("Token provider failed, sending request without credential")
		return
	}
	if token != "" {
		req.Header.Set(HeaderAuthorization, bearerPrefix+token)
	}
}

// injectTrace writes request-id and, when enabled, W3C trace headers. An
// active span wins over context values and generated ids.
func (c *client) injectTrace(ctx context.Context, req *nethttp.Request) string {
	if c.config.EnableW3CTrace && oteltrace.SpanContextFromContext(ctx).IsValid() {
		propagation.TraceContext{}.Inject(ctx, propagation.HeaderCarrier(req.Header))
	}
	if c.config.TraceIDExtractor != nil {
		if id, ok := c.config.TraceIDExtractor(ctx); ok && id != "" {
			ctx = authtrace.WithTraceID(ctx, id)
		}
	}
	return authtrace.Inject(ctx, req.Header, authtrace.InjectOptions{
		IDHeader: c.config.TraceIDHeader,
		NewID:    c.config.NewTraceID,
		W3C:      c.config.EnableW3CTrace,
	})
}
