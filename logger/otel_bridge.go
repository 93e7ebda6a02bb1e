package logger

import (
	"context"
	"encoding/json"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/trace"
)

// Scope is the instrumentation scope of records emitted by OTelBridge.
const Scope = "github.com/gaborage/go-authclient/logger"

// Field names that carry span correlation on client log lines.
const (
	FieldTraceID = "trace_id"
	FieldSpanID  = "span_id"
)

const (
	zerologTimeField    = "time"
	zerologLevelField   = "level"
	zerologMessageField = "message"
)

// OTelBridge is an io.Writer that turns each zerolog JSON line into an
// OpenTelemetry log record. Lines that are not JSON are dropped.
type OTelBridge struct {
	logger otellog.Logger
}

// NewOTelBridge returns a bridge emitting to provider, or nil for a nil provider.
func NewOTelBridge(provider otellog.LoggerProvider) *OTelBridge {
	if provider == nil {
		return nil
	}
	return &OTelBridge{logger: provider.Logger(Scope)}
}

// Write always reports the full length so zerolog never sees a short write.
func (b *OTelBridge) Write(p []byte) (int, error) {
	if b == nil || b.logger == nil {
		return len(p), nil
	}
	var entry map[string]any
	if err := json.Unmarshal(p, &entry); err != nil {
		return len(p), nil
	}
	ctx, rec := toRecord(entry)
	b.logger.Emit(ctx, rec)
	return len(p), nil
}

// toRecord consumes entry. Span ids become the record's context so
// backends link the record to the client span.
func toRecord(entry map[string]any) (context.Context, otellog.Record) {
	var rec otellog.Record
	ctx := context.Background()

	if sc, ok := spanContextOf(entry); ok {
		ctx = trace.ContextWithSpanContext(ctx, sc)
	}
	if ts, ok := entry[zerologTimeField].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.SetTimestamp(t)
		}
	}
	if lvl, ok := entry[zerologLevelField].(string); ok {
		rec.SetSeverity(severity(lvl))
		rec.SetSeverityText(lvl)
	}
	if msg, ok := entry[zerologMessageField].(string); ok {
		rec.SetBody(otellog.StringValue(msg))
	}

	delete(entry, zerologTimeField)
	delete(entry, zerologLevelField)
	delete(entry, zerologMessageField)
	attrs := make([]otellog.KeyValue, 0, len(entry))
	for k, v := range entry {
		attrs = append(attrs, otellog.KeyValue{Key: k, Value: logValue(v)})
	}
	rec.AddAttributes(attrs...)
	return ctx, rec
}

func spanContextOf(entry map[string]any) (trace.SpanContext, bool) {
	tid, _ := entry[FieldTraceID].(string)
	sid, _ := entry[FieldSpanID].(string)
	traceID, err := trace.TraceIDFromHex(tid)
	if err != nil {
		return trace.SpanContext{}, false
	}
	spanID, err := trace.SpanIDFromHex(sid)
	if err != nil {
		return trace.SpanContext{}, false
	}
	delete(entry, FieldTraceID)
	delete(entry, FieldSpanID)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return sc, sc.IsValid()
}

func severity(level string) otellog.Severity {
	switch level {
	case "trace":
		return otellog.SeverityTrace
	case "debug":
		return otellog.SeverityDebug
	case "warn":
		return otellog.SeverityWarn
	case "error":
		return otellog.SeverityError
	case "fatal", "panic":
		return otellog.SeverityFatal
	default:
		return otellog.SeverityInfo
	}
}

// logValue maps decoded JSON onto log values. Whole numbers stay integers
// so counters like waiters and status compare as ints downstream.
func logValue(v any) otellog.Value {
	switch val := v.(type) {
	case nil:
		return otellog.Value{}
	case string:
		return otellog.StringValue(val)
	case bool:
		return otellog.BoolValue(val)
	case float64:
		if val == float64(int64(val)) {
			return otellog.Int64Value(int64(val))
		}
		return otellog.Float64Value(val)
	case []any:
		items := make([]otellog.Value, len(val))
		for i, item := range val {
			items[i] = logValue(item)
		}
		return otellog.SliceValue(items...)
	case map[string]any:
		kvs := make([]otellog.KeyValue, 0, len(val))
		for k, item := range val {
			kvs = append(kvs, otellog.KeyValue{Key: k, Value: logValue(item)})
		}
		return otellog.MapValue(kvs...)
	default:
		b, _ := json.Marshal(val)
		return otellog.StringValue(string(b))
	}
}
