package httpclient

import (
	"context"
	nethttp "net/http"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/gaborage/go-authclient/logger"
)

// withSpan tags event with the active span so exported log records join
// the call's trace.
func withSpan(ctx context.Context, event logger.LogEvent) logger.LogEvent {
	sc := oteltrace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return event
	}
	return event.
		Str(logger.FieldTraceID, sc.TraceID().String()).
		Str(logger.FieldSpanID, sc.SpanID().String())
}

func (c *client) payloadLimit() int {
	if c.config.MaxPayloadLogBytes <= 0 {
		return defaultMaxPayloadLogBytes
	}
	return c.config.MaxPayloadLogBytes
}

func (c *client) logRequest(req *nethttp.Request, body []byte, traceID string) {
	event := withSpan(req.Context(), c.logger.Info()).
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", traceID)
	if n := len(req.Header); n > 0 {
		event = event.Int("header_count", n)
	}
	if len(body) > 0 {
		event = event.Int("body_size", len(body))
	}
	event.Msg("REST client request")

	if !c.config.LogPayloads {
		return
	}
	preview, truncated := c.preview(body)
	withSpan(req.Context(), c.logger.Debug()).
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("request_id", traceID).
		Interface("headers", req.Header).
		Int("body_size", len(body)).
		Bool("body_truncated", truncated).
		Bytes("body_preview", preview).
		Msg("REST client request")
}

func (c *client) logResponse(ctx context.Context, resp *Response, traceID string) {
	event := withSpan(ctx, c.logger.Info()).
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Dur("elapsed", resp.Stats.ElapsedTime).
		Int64("call_count", resp.Stats.CallCount).
		Str("request_id", traceID)
	if len(resp.Body) > 0 {
		event = event.Int("body_size", len(resp.Body))
	}
	event.Msg("REST client response")

	if !c.config.LogPayloads {
		return
	}
	preview, truncated := c.preview(resp.Body)
	withSpan(ctx, c.logger.Debug()).
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Str("request_id", traceID).
		Interface("headers", resp.Headers).
		Int("body_size", len(resp.Body)).
		Bool("body_truncated", truncated).
		Bytes("body_preview", preview).
		Msg("REST client response")
}

func (c *client) preview(body []byte) ([]byte, bool) {
	limit := c.payloadLimit()
	if len(body) > limit {
		return body[:limit], true
	}
	return body, false
}
