package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/trace"

	obtest "github.com/gaborage/go-authclient/observability/testing"
)

const (
	bridgeTraceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	bridgeSpanID  = "00f067aa0ba902b7"
)

func TestNewWithOTelExportsRecords(t *testing.T) {
	lp := obtest.NewTestLoggerProvider()
	defer func() { _ = lp.Shutdown(context.Background()) }()

	var buf bytes.Buffer
	l := NewWithOTel(&buf, "debug", false, nil, lp)

	l.Warn().
		Str("authorization", "Bearer tok-A").
		Int("attempt", 2).
		Str(FieldTraceID, bridgeTraceID).
		Str(FieldSpanID, bridgeSpanID).
		Msg("Retrying request")

	assert.Contains(t, buf.String(), "Retrying request", "stdout output is kept")

	records := lp.Exporter.RecordsWithBody("Retrying request")
	require.Len(t, records, 1)
	rec := records[0]

	assert.Equal(t, otellog.SeverityWarn, rec.Severity())
	assert.Equal(t, "warn", rec.SeverityText())
	assert.False(t, rec.Timestamp().IsZero())

	auth, ok := obtest.LogAttribute(rec, "authorization")
	require.True(t, ok)
	assert.Equal(t, "Bearer ***", auth.AsString())

	attempt, ok := obtest.LogAttribute(rec, "attempt")
	require.True(t, ok)
	assert.Equal(t, otellog.KindInt64, attempt.Kind())
	assert.Equal(t, int64(2), attempt.AsInt64())

	assert.Equal(t, bridgeTraceID, rec.TraceID().String())
	assert.Equal(t, bridgeSpanID, rec.SpanID().String())
	assert.Equal(t, trace.FlagsSampled, rec.TraceFlags())
	_, ok = obtest.LogAttribute(rec, FieldTraceID)
	assert.False(t, ok, "span ids move to the record context")
}

func TestNewWithOTelRespectsLevel(t *testing.T) {
	lp := obtest.NewTestLoggerProvider()
	defer func() { _ = lp.Shutdown(context.Background()) }()

	var buf bytes.Buffer
	l := NewWithOTel(&buf, "info", false, nil, lp)
	l.Debug().Msg("hidden")
	l.Info().Msg("shown")

	assert.Empty(t, lp.Exporter.RecordsWithBody("hidden"))
	assert.Len(t, lp.Exporter.RecordsWithBody("shown"), 1)
}

func TestNewWithOTelNilProvider(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOTel(&buf, "info", false, nil, nil)
	l.Info().Msg("plain")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "plain", lines[0]["message"])
}

func TestOTelBridgeWrite(t *testing.T) {
	lp := obtest.NewTestLoggerProvider()
	defer func() { _ = lp.Shutdown(context.Background()) }()
	bridge := NewOTelBridge(lp)

	n, err := bridge.Write([]byte("not json\n"))
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Empty(t, lp.Exporter.Records())

	line := `{"level":"error","message":"Credential refresh failed","status":401,"replay":true,"ratio":0.5,"tags":["a"],"meta":{"k":"v"},"trace_id":"bad"}`
	n, err = bridge.Write([]byte(line))
	require.NoError(t, err)
	assert.Equal(t, len(line), n)

	records := lp.Exporter.RecordsWithBody("Credential refresh failed")
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, otellog.SeverityError, rec.Severity())
	assert.False(t, rec.TraceID().IsValid())

	status, _ := obtest.LogAttribute(rec, "status")
	assert.Equal(t, int64(401), status.AsInt64())
	replay, _ := obtest.LogAttribute(rec, "replay")
	assert.True(t, replay.AsBool())
	ratio, _ := obtest.LogAttribute(rec, "ratio")
	assert.InDelta(t, 0.5, ratio.AsFloat64(), 1e-9)
	tags, _ := obtest.LogAttribute(rec, "tags")
	assert.Equal(t, otellog.KindSlice, tags.Kind())
	meta, _ := obtest.LogAttribute(rec, "meta")
	assert.Equal(t, otellog.KindMap, meta.Kind())
	malformed, ok := obtest.LogAttribute(rec, FieldTraceID)
	require.True(t, ok, "unparseable ids stay as attributes")
	assert.Equal(t, "bad", malformed.AsString())
}

func TestOTelBridgeNil(t *testing.T) {
	assert.Nil(t, NewOTelBridge(nil))

	var b *OTelBridge
	n, err := b.Write([]byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSeverity(t *testing.T) {
	tests := map[string]otellog.Severity{
		"trace": otellog.SeverityTrace,
		"debug": otellog.SeverityDebug,
		"info":  otellog.SeverityInfo,
		"warn":  otellog.SeverityWarn,
		"error": otellog.SeverityError,
		"fatal": otellog.SeverityFatal,
		"panic": otellog.SeverityFatal,
		"":      otellog.SeverityInfo,
	}
	for level, want := range tests {
		assert.Equal(t, want, severity(level), level)
	}
}
