package httpclient

import (
	"context"
	nethttp "net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-authclient/config"
	"github.com/gaborage/go-authclient/logger"
	obtest "github.com/gaborage/go-authclient/observability/testing"
)

type roundTripFunc func(*nethttp.Request) (*nethttp.Response, error)

func (f roundTripFunc) RoundTrip(r *nethttp.Request) (*nethttp.Response, error) { return f(r) }

func TestBuilderDefaults(t *testing.T) {
	c := NewBuilder(logger.Nop()).Build().(*client)

	assert.Equal(t, 30*time.Second, c.config.Timeout)
	assert.Equal(t, 1024, c.config.MaxPayloadLogBytes)
	assert.Equal(t, HeaderXRequestID, c.config.TraceIDHeader)
	assert.Zero(t, c.config.MaxRetries)
	assert.Nil(t, c.retry)
}

func TestBuilderOptions(t *testing.T) {
	tp := obtest.NewTestTraceProvider()
	mp := obtest.NewTestMeterProvider()
	provider := &rotatingProvider{current: "tok"}
	gen := func() string { return "id" }

	c := NewBuilder(logger.Nop()).
		WithBaseURL("https://api.example.com/v1").
		WithTimeout(5*time.Second).
		WithRetries(3, 250*time.Millisecond).
		WithBasicAuth("user", "pass").
		WithDefaultHeader("X-One", "1").
		WithDefaultHeaders(map[string]string{"X-Two": "2"}).
		WithTokenProvider(provider).
		WithRequestInterceptor(func(context.Context, *nethttp.Request) error { return nil }).
		WithResponseInterceptor(func(context.Context, *nethttp.Request, *nethttp.Response) error { return nil }).
		WithErrorInterceptor(func(_ context.Context, _ *Request, err error) (*Response, error) { return nil, err }).
		WithPayloadLogging(true, 64).
		WithTraceIDHeader("X-Correlation-ID").
		WithTraceIDGenerator(gen).
		WithW3CTrace(true).
		WithRateLimit(50, 5).
		WithTracerProvider(tp).
		WithMeterProvider(mp).
		Build().(*client)

	cfg := c.config
	assert.Equal(t, "https://api.example.com/v1", c.baseURL.String())
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, &BasicAuth{Username: "user", Password: "pass"}, cfg.BasicAuth)
	assert.Equal(t, map[string]string{"X-One": "1", "X-Two": "2"}, cfg.DefaultHeaders)
	assert.Len(t, cfg.RequestInterceptors, 1)
	assert.Len(t, cfg.ResponseInterceptors, 1)
	assert.Len(t, cfg.ErrorInterceptors, 1)
	assert.True(t, cfg.LogPayloads)
	assert.Equal(t, 64, cfg.MaxPayloadLogBytes)
	assert.Equal(t, "X-Correlation-ID", cfg.TraceIDHeader)
	assert.Equal(t, "id", cfg.NewTraceID())
	assert.True(t, cfg.EnableW3CTrace)
	require.NotNil(t, c.limiter)
	assert.Equal(t, 5, c.limiter.Burst())
	assert.NotNil(t, c.refresher)
	assert.NotNil(t, c.retry)
}

func TestBuilderBuildsIndependentClients(t *testing.T) {
	b := NewBuilder(logger.Nop()).WithDefaultHeader("X-Shared", "a")
	first := b.Build().(*client)
	b.WithDefaultHeader("X-Later", "b")
	second := b.Build().(*client)

	assert.NotContains(t, first.config.DefaultHeaders, "X-Later")
	assert.Contains(t, second.config.DefaultHeaders, "X-Later")
}

func TestBuilderTransport(t *testing.T) {
	var seen string
	rt := roundTripFunc(func(r *nethttp.Request) (*nethttp.Response, error) {
		seen = r.URL.String()
		return &nethttp.Response{StatusCode: nethttp.StatusOK, Body: nethttp.NoBody, Header: nethttp.Header{}}, nil
	})

	c := NewBuilder(logger.Nop()).WithBaseURL("http://stub.local").WithTransport(rt).Build()
	resp, err := c.Get(context.Background(), &Request{URL: "/ping"})
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://stub.local/ping", seen)
}

func TestBuilderWithSettings(t *testing.T) {
	cfg, err := config.LoadBytes([]byte(`
httpclient:
  baseurl: https://api.example.com
  timeout: 2s
  maxretries: 2
  retrydelay: 50ms
  headers:
    x-tenant: acme
  logpayloads: true
  maxpayloadlogbytes: 128
  traceidheader: X-Trace
  w3ctrace: true
  ratelimit: 10
  rateburst: 4
`))
	require.NoError(t, err)

	c := NewBuilder(logger.Nop()).
		WithDefaultHeader("X-Keep", "yes").
		WithSettings(cfg.HTTPClient).
		Build().(*client)

	assert.Equal(t, "https://api.example.com", c.config.BaseURL)
	assert.Equal(t, 2*time.Second, c.config.Timeout)
	assert.Equal(t, 2, c.config.MaxRetries)
	assert.Equal(t, 50*time.Millisecond, c.config.RetryDelay)
	assert.Equal(t, "acme", c.config.DefaultHeaders["x-tenant"])
	assert.Equal(t, "yes", c.config.DefaultHeaders["X-Keep"])
	assert.True(t, c.config.LogPayloads)
	assert.Equal(t, 128, c.config.MaxPayloadLogBytes)
	assert.Equal(t, "X-Trace", c.config.TraceIDHeader)
	assert.True(t, c.config.EnableW3CTrace)
	assert.Equal(t, 4, c.limiter.Burst())
}

func TestBuilderWithZeroSettingsKeepsCurrent(t *testing.T) {
	c := NewBuilder(logger.Nop()).
		WithTimeout(time.Second).
		WithRetries(1, time.Millisecond).
		WithSettings(config.HTTPClientConfig{}).
		Build().(*client)

	assert.Equal(t, time.Second, c.config.Timeout)
	assert.Equal(t, 1, c.config.MaxRetries)
}
