package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	nethttp "net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/gaborage/go-authclient/httpclient/internal/tracking"
	"github.com/gaborage/go-authclient/logger"
)

const (
	defaultTimeout            = 30 * time.Second
	defaultMaxPayloadLogBytes = 1024
	contentTypeJSON           = "application/json"
)

// client is the default Client implementation. All fields are fixed at
// construction except the refresh coordinator state and the call counter.
type client struct {
	httpClient *nethttp.Client
	logger     logger.Logger
	config     *Config
	baseURL    *url.URL
	callCount  atomic.Int64
	limiter    *rate.Limiter
	tracker    *tracking.Tracker
	refresher  *refreshCoordinator
	retry      *retryPolicy
}

// call is the per-request descriptor derived from a Request. It is owned by
// the goroutine that issued the call.
type call struct {
	req         *Request
	method      string
	url         string
	body        []byte
	maxRetries  int
	retryDelay  time.Duration
	attempts    int
	refreshed   bool
	token       string
	lastStatus  int
	skipAuth    bool
	skipRefresh bool
}

// New creates a client from cfg. A nil cfg selects defaults.
func New(log logger.Logger, cfg *Config) Client {
	return newClient(log, cfg)
}

func newClient(log logger.Logger, cfg *Config) *client {
	if log == nil {
		log = logger.Nop()
	}
	if cfg == nil {
		cfg = &Config{}
	}
	conf := *cfg
	if conf.Timeout <= 0 {
		conf.Timeout = defaultTimeout
	}
	if conf.MaxPayloadLogBytes <= 0 {
		conf.MaxPayloadLogBytes = defaultMaxPayloadLogBytes
	}
	if conf.TraceIDHeader == "" {
		conf.TraceIDHeader = HeaderXRequestID
	}

	c := &client{
		httpClient: &nethttp.Client{Timeout: conf.Timeout, Transport: conf.Transport},
		logger:     log,
		config:     &conf,
		tracker:    tracking.New(conf.MeterProvider, conf.TracerProvider),
	}
	if conf.BaseURL != "" {
		if u, err := url.Parse(conf.BaseURL); err == nil {
			c.baseURL = u
		} else {
			log.Warn().Err(err).Str("base_url", conf.BaseURL).Msg("Ignoring unparseable base URL")
		}
	}
	if conf.RateLimit > 0 {
		burst := conf.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(conf.RateLimit), burst)
	}
	if refresher, detector, ok := refreshCapabilities(conf.TokenProvider); ok {
		c.refresher = newRefreshCoordinator(refresher, detector, log, c.tracker, c.roundTrip)
	}
	if conf.MaxRetries > 0 {
		c.retry = newRetryPolicy(log, c.tracker, c.dispatch)
	}
	return c
}

// Get performs a GET request
func (c *client) Get(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodGet, req)
}

// Post performs a POST request
func (c *client) Post(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPost, req)
}

// Put performs a PUT request
func (c *client) Put(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPut, req)
}

// Patch performs a PATCH request
func (c *client) Patch(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPatch, req)
}

// Delete performs a DELETE request
func (c *client) Delete(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodDelete, req)
}

// Do performs a request with the given method. Per-request retry settings
// override the client defaults.
func (c *client) Do(ctx context.Context, method string, req *Request) (*Response, error) {
	cl, err := c.newCall(method, req)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracker.StartCall(ctx, cl.method, cl.url)
	resp, err := c.execute(ctx, cl)
	c.tracker.EndCall(span, cl.lastStatus, cl.attempts+1, cl.refreshed, err)
	return resp, err
}

func (c *client) newCall(method string, req *Request) (*call, error) {
	if req == nil {
		return nil, NewValidationError("request is required", "request")
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		return nil, NewValidationError("method is required", "method")
	}
	target, err := c.resolveURL(req.URL, req.Query)
	if err != nil {
		return nil, &validationError{message: "invalid request URL", field: "url", err: err}
	}
	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, &validationError{message: "failed to encode request body", field: "body", err: err}
	}

	cl := &call{
		req:         req,
		method:      method,
		url:         target,
		body:        body,
		maxRetries:  c.config.MaxRetries,
		retryDelay:  c.config.RetryDelay,
		skipAuth:    req.SkipAuthHeader,
		skipRefresh: req.SkipRefresh,
	}
	if req.MaxRetries != nil {
		cl.maxRetries = *req.MaxRetries
	}
	if req.RetryDelay != nil {
		cl.retryDelay = *req.RetryDelay
	}
	return cl, nil
}

// execute runs the error stages in order: refresh (inside dispatch), backoff
// retry, then caller error interceptors.
func (c *client) execute(ctx context.Context, cl *call) (*Response, error) {
	resp, err := c.dispatch(ctx, cl)
	if err != nil && c.retry != nil {
		resp, err = c.retry.run(ctx, cl, err)
	}
	if err != nil {
		resp, err = c.runErrorInterceptors(ctx, cl, err)
	}
	return resp, err
}

// dispatch sends the request once and gives the refresh coordinator a chance
// to recover an expired credential.
func (c *client) dispatch(ctx context.Context, cl *call) (*Response, error) {
	resp, err := c.roundTrip(ctx, cl)
	if err == nil || c.refresher == nil {
		return resp, err
	}
	return c.refresher.handle(ctx, cl, err)
}

func (c *client) runErrorInterceptors(ctx context.Context, cl *call, err error) (*Response, error) {
	for _, interceptor := range c.config.ErrorInterceptors {
		resp, ierr := interceptor(ctx, cl.req, err)
		if ierr == nil {
			return resp, nil
		}
		err = ierr
	}
	return nil, err
}

// roundTrip performs one attempt: request interceptors, transport, response
// interceptors and status classification.
func (c *client) roundTrip(ctx context.Context, cl *call) (*Response, error) {
	var body io.Reader = nethttp.NoBody
	if len(cl.body) > 0 {
		body = bytes.NewReader(cl.body)
	}
	httpReq, err := nethttp.NewRequestWithContext(ctx, cl.method, cl.url, body)
	if err != nil {
		return nil, &validationError{message: "failed to build request", field: "url", err: err}
	}

	c.applyHeaders(httpReq, cl)
	c.injectAuth(ctx, cl, httpReq)
	traceID := c.injectTrace(ctx, httpReq)

	for _, interceptor := range c.config.RequestInterceptors {
		if err := interceptor(ctx, httpReq); err != nil {
			return nil, NewInterceptorError("request interceptor failed", "request", err)
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, NewNetworkError("rate limiter wait aborted", err)
		}
	}

	c.logRequest(httpReq, cl.body, traceID)
	count := c.callCount.Add(1)
	start := time.Now()

	httpResp, err := c.httpClient.Do(httpReq)
	elapsed := time.Since(start)
	if err != nil {
		c.tracker.RecordAttempt(ctx, cl.method, 0, elapsed)
		cl.lastStatus = 0
		return nil, c.classifyTransportError(err)
	}
	defer httpResp.Body.Close()

	for _, interceptor := range c.config.ResponseInterceptors {
		if err := interceptor(ctx, httpReq, httpResp); err != nil {
			return nil, NewInterceptorError("response interceptor failed", "response", err)
		}
	}

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Body:       respBody,
		Headers:    httpResp.Header,
		Stats: Stats{
			ElapsedTime: time.Since(start),
			CallCount:   count,
		},
	}
	c.logResponse(ctx, resp, traceID)
	c.tracker.RecordAttempt(ctx, cl.method, resp.StatusCode, resp.Stats.ElapsedTime)
	cl.lastStatus = resp.StatusCode

	if !IsSuccessStatus(resp.StatusCode) {
		return nil, newStatusError(cl.method, cl.url, resp)
	}
	return resp, nil
}

func (c *client) applyHeaders(req *nethttp.Request, cl *call) {
	req.Header.Set("Content-Type", contentTypeJSON)
	for k, v := range c.config.DefaultHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range cl.req.Headers {
		req.Header.Set(k, v)
	}

	auth := c.config.BasicAuth
	if cl.req.Auth != nil {
		auth = cl.req.Auth
	}
	if auth != nil {
		req.SetBasicAuth(auth.Username, auth.Password)
	}
}

func (c *client) classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return NewNetworkError("request canceled", err)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &timeoutError{message: "request timed out", timeout: c.config.Timeout, err: err}
	}
	return NewNetworkError("request failed", err)
}

func (c *client) resolveURL(raw string, query url.Values) (string, error) {
	if raw == "" && c.baseURL == nil {
		return "", errors.New("empty URL")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if !u.IsAbs() && c.baseURL != nil {
		u = c.joinBase(u)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vals := range query {
			for _, v := range vals {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// joinBase appends rel to the base path so "/users" under
// "https://api/v1" becomes "https://api/v1/users".
func (c *client) joinBase(rel *url.URL) *url.URL {
	out := *c.baseURL
	if rel.Path != "" {
		out.Path = strings.TrimRight(out.Path, "/") + "/" + strings.TrimLeft(rel.Path, "/")
		out.RawPath = ""
	}
	out.RawQuery = rel.RawQuery
	out.Fragment = rel.Fragment
	return &out
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	case string:
		return []byte(b), nil
	case io.Reader:
		return io.ReadAll(b)
	default:
		return json.Marshal(b)
	}
}
