package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMessage = "test message"

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNewWithWriterLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		logDebug  bool
		logInfo   bool
		logErrors bool
	}{
		{name: "debug", level: "debug", logDebug: true, logInfo: true, logErrors: true},
		{name: "info", level: "info", logDebug: false, logInfo: true, logErrors: true},
		{name: "error", level: "error", logDebug: false, logInfo: false, logErrors: true},
		{name: "invalid defaults to info", level: "loud", logDebug: false, logInfo: true, logErrors: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewWithWriter(&buf, tt.level, false, nil)

			l.Debug().Msg("debug")
			l.Info().Msg("info")
			l.Error().Msg("error")

			got := map[string]bool{}
			for _, line := range decodeLines(t, &buf) {
				got[line["message"].(string)] = true
			}
			assert.Equal(t, tt.logDebug, got["debug"])
			assert.Equal(t, tt.logInfo, got["info"])
			assert.Equal(t, tt.logErrors, got["error"])
		})
	}
}

func TestLogEventFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug", false, nil)

	l.Info().
		Str("method", "GET").
		Str("authorization", "Bearer tok-A").
		Int("status", 200).
		Int64("call_count", 3).
		Bool("replayed", true).
		Dur("elapsed", 250*time.Millisecond).
		Interface("headers", map[string]any{"token": "t", "accept": "json"}).
		Err(errors.New("boom")).
		Msg(testMessage)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	line := lines[0]

	assert.Equal(t, testMessage, line["message"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "GET", line["method"])
	assert.Equal(t, "Bearer "+DefaultMaskValue, line["authorization"])
	assert.EqualValues(t, 200, line["status"])
	assert.EqualValues(t, 3, line["call_count"])
	assert.Equal(t, true, line["replayed"])
	assert.Equal(t, "boom", line["error"])
	headers := line["headers"].(map[string]any)
	assert.Equal(t, DefaultMaskValue, headers["token"])
	assert.Equal(t, "json", headers["accept"])
	assert.Contains(t, line, "caller")
}

func TestMsgf(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info", false, nil)

	l.Warn().Msgf("retrying in %s", time.Second)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "retrying in 1s", lines[0]["message"])
	assert.Equal(t, "warn", lines[0]["level"])
}

func TestWithFieldsFiltersSensitiveData(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info", false, nil)

	child := l.WithFields(map[string]any{"client": "billing", "api_key": "k"})
	child.Info().Msg(testMessage)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "billing", lines[0]["client"])
	assert.Equal(t, DefaultMaskValue, lines[0]["api_key"])
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info", false, nil)

	t.Run("non context returns same logger", func(t *testing.T) {
		assert.Same(t, l, l.WithContext("not a context"))
	})

	t.Run("context without logger returns same logger", func(t *testing.T) {
		assert.Same(t, l, l.WithContext(context.Background()))
	})

	t.Run("context logger is used", func(t *testing.T) {
		var ctxBuf bytes.Buffer
		zl := zerolog.New(&ctxBuf)
		ctx := zl.WithContext(context.Background())

		l.WithContext(ctx).Info().Msg("from context")

		assert.Contains(t, ctxBuf.String(), "from context")
		assert.NotContains(t, buf.String(), "from context")
	})
}

func TestPrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info", true, nil)

	l.Info().Str("k", "v").Msg(testMessage)

	out := buf.String()
	assert.Contains(t, out, testMessage)
	assert.Contains(t, out, "k=")
}

func TestNop(t *testing.T) {
	l := Nop()
	assert.NotPanics(t, func() {
		l.Info().Str("a", "b").Msg("dropped")
		l.WithFields(map[string]any{"x": 1}).Debug().Msg("dropped")
	})
}
