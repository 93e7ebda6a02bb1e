package logger

import (
	nethttp "net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

const maskedValue = "[MASKED]"

func TestSensitiveDataFilterFilterString(t *testing.T) {
	f := NewSensitiveDataFilter(nil)

	tests := []struct {
		name     string
		key      string
		value    string
		expected string
	}{
		{name: "non sensitive", key: "method", value: "GET", expected: "GET"},
		{name: "password", key: "password", value: "hunter2", expected: DefaultMaskValue},
		{name: "bearer keeps scheme", key: "Authorization", value: "Bearer tok-A", expected: "Bearer " + DefaultMaskValue},
		{name: "basic keeps scheme", key: "authorization", value: "Basic dXNlcjpwYXNz", expected: "Basic " + DefaultMaskValue},
		{name: "token substring match", key: "refresh_token", value: "r-123", expected: DefaultMaskValue},
		{name: "empty stays empty", key: "token", value: "", expected: ""},
		{name: "url with password", key: "auth_url", value: "https://user:pw@idp.example.com/token", expected: "https://user:" + DefaultMaskValue + "@idp.example.com/token"},
		{name: "url without password", key: "auth_url", value: "https://idp.example.com/token", expected: DefaultMaskValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.FilterString(tt.key, tt.value))
		})
	}
}

func TestSensitiveDataFilterCustomMask(t *testing.T) {
	f := NewSensitiveDataFilter(&FilterConfig{SensitiveFields: []string{"pin"}, MaskValue: maskedValue})

	assert.Equal(t, maskedValue, f.FilterString("PIN", "1234"))
	assert.Equal(t, "tok", f.FilterString("token", "tok"))
}

func TestSensitiveDataFilterFilterValue(t *testing.T) {
	f := NewSensitiveDataFilter(nil)

	t.Run("nested maps", func(t *testing.T) {
		in := map[string]any{
			"user": "alice",
			"credentials": map[string]any{
				"nested": "x",
			},
			"meta": map[string]any{
				"api_key": "k",
				"region":  "eu",
			},
		}

		out := f.FilterValue("payload", in).(map[string]any)

		assert.Equal(t, "alice", out["user"])
		assert.Equal(t, DefaultMaskValue, out["credentials"])
		meta := out["meta"].(map[string]any)
		assert.Equal(t, DefaultMaskValue, meta["api_key"])
		assert.Equal(t, "eu", meta["region"])
	})

	t.Run("string maps", func(t *testing.T) {
		out := f.FilterValue("headers", map[string]string{"X-Api-Key": "k", "Accept": "application/json"}).(map[string]string)
		assert.Equal(t, DefaultMaskValue, out["X-Api-Key"])
		assert.Equal(t, "application/json", out["Accept"])
	})

	t.Run("http headers", func(t *testing.T) {
		h := nethttp.Header{}
		h.Set("Authorization", "Bearer secret-token")
		h.Set("Content-Type", "application/json")

		out := f.FilterValue("headers", h).(nethttp.Header)

		assert.Equal(t, "Bearer "+DefaultMaskValue, out.Get("Authorization"))
		assert.Equal(t, "application/json", out.Get("Content-Type"))
		assert.Equal(t, "Bearer secret-token", h.Get("Authorization"), "original must not be mutated")
	})

	t.Run("non string sensitive value", func(t *testing.T) {
		assert.Equal(t, DefaultMaskValue, f.FilterValue("secret", 42))
	})

	t.Run("nil passthrough", func(t *testing.T) {
		assert.Nil(t, f.FilterValue("token", nil))
	})
}

func TestSensitiveDataFilterFilterFields(t *testing.T) {
	f := NewSensitiveDataFilter(nil)
	out := f.FilterFields(map[string]any{"password": "p", "count": 3})

	assert.Equal(t, DefaultMaskValue, out["password"])
	assert.Equal(t, 3, out["count"])
}
