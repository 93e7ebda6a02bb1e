package mocks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/gaborage/go-authclient/httpclient"
)

// ErrNoMock is returned by StubClient for calls without a route or handler.
var ErrNoMock = errors.New("no mock defined")

// MockClient provides a testify-based mock implementation of httpclient.Client.
//
// Example usage:
//
//	mockClient := &mocks.MockClient{}
//	mockClient.On("Get", mock.Anything, mock.MatchedBy(func(r *httpclient.Request) bool {
//		return r.URL == "/users/1"
//	})).Return(mocks.NewMockResponse(user, 200, nil), nil)
type MockClient struct {
	mock.Mock
}

var _ httpclient.Client = (*MockClient)(nil)

// Get implements httpclient.Client
func (m *MockClient) Get(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	return responseArgs(m.Called(ctx, req))
}

// Post implements httpclient.Client
func (m *MockClient) Post(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	return responseArgs(m.Called(ctx, req))
}

// Put implements httpclient.Client
func (m *MockClient) Put(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	return responseArgs(m.Called(ctx, req))
}

// Patch implements httpclient.Client
func (m *MockClient) Patch(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	return responseArgs(m.Called(ctx, req))
}

// Delete implements httpclient.Client
func (m *MockClient) Delete(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	return responseArgs(m.Called(ctx, req))
}

// Do implements httpclient.Client
func (m *MockClient) Do(ctx context.Context, method string, req *httpclient.Request) (*httpclient.Response, error) {
	return responseArgs(m.Called(ctx, method, req))
}

func responseArgs(args mock.Arguments) (*httpclient.Response, error) {
	var resp *httpclient.Response
	if r := args.Get(0); r != nil {
		resp = r.(*httpclient.Response)
	}
	return resp, args.Error(1)
}

// Handler answers every call for one method.
type Handler func(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error)

// Call is one recorded StubClient invocation.
type Call struct {
	Method  string
	Request *httpclient.Request
}

// StubClient answers from a per-method route table or handler and records
// every call. A handler takes precedence over routes for its method. Non-2xx
// routed responses are returned as HTTP errors, like the real client.
type StubClient struct {
	mu       sync.Mutex
	routes   map[string]map[string]*httpclient.Response
	handlers map[string]Handler
	calls    []Call
}

var _ httpclient.Client = (*StubClient)(nil)

// NewStubClient creates an empty stub.
func NewStubClient() *StubClient {
	return &StubClient{
		routes:   make(map[string]map[string]*httpclient.Response),
		handlers: make(map[string]Handler),
	}
}

// On registers resp for method and url.
func (s *StubClient) On(method, url string, resp *httpclient.Response) *StubClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	method = strings.ToUpper(method)
	if s.routes[method] == nil {
		s.routes[method] = make(map[string]*httpclient.Response)
	}
	s.routes[method][url] = resp
	return s
}

// Handle registers h for every call with method.
func (s *StubClient) Handle(method string, h Handler) *StubClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[strings.ToUpper(method)] = h
	return s
}

// Calls returns the recorded calls in order.
func (s *StubClient) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsFor returns the recorded calls with method.
func (s *StubClient) CallsFor(method string) []Call {
	method = strings.ToUpper(method)
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Get implements httpclient.Client
func (s *StubClient) Get(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	return s.Do(ctx, nethttp.MethodGet, req)
}

// Post implements httpclient.Client
func (s *StubClient) Post(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	return s.Do(ctx, nethttp.MethodPost, req)
}

// Put implements httpclient.Client
func (s *StubClient) Put(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	return s.Do(ctx, nethttp.MethodPut, req)
}

// Patch implements httpclient.Client
func (s *StubClient) Patch(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	return s.Do(ctx, nethttp.MethodPatch, req)
}

// Delete implements httpclient.Client
func (s *StubClient) Delete(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	return s.Do(ctx, nethttp.MethodDelete, req)
}

// Do implements httpclient.Client
func (s *StubClient) Do(ctx context.Context, method string, req *httpclient.Request) (*httpclient.Response, error) {
	method = strings.ToUpper(method)
	if req == nil {
		req = &httpclient.Request{}
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: method, Request: req})
	handler := s.handlers[method]
	resp, routed := s.routes[method][req.URL]
	s.mu.Unlock()

	if handler != nil {
		return handler(ctx, req)
	}
	if !routed {
		return nil, fmt.Errorf("%w for %s %s", ErrNoMock, method, req.URL)
	}
	if resp != nil && !httpclient.IsSuccessStatus(resp.StatusCode) {
		return nil, httpclient.NewHTTPError(method+" "+req.URL, resp.StatusCode, resp.Body)
	}
	return resp, nil
}

// NewMockResponse builds a response whose body is data. []byte and string
// are used as-is; anything else is JSON encoded. A zero status means 200.
func NewMockResponse(data any, status int, headers map[string]string) *httpclient.Response {
	if status == 0 {
		status = nethttp.StatusOK
	}
	resp := &httpclient.Response{StatusCode: status, Headers: nethttp.Header{}}
	for k, v := range headers {
		resp.Headers.Set(k, v)
	}

	switch d := data.(type) {
	case nil:
	case []byte:
		resp.Body = d
	case string:
		resp.Body = []byte(d)
	default:
		body, err := json.Marshal(d)
		if err != nil {
			panic(fmt.Sprintf("mocks: cannot encode response data: %v", err))
		}
		resp.Body = body
		if resp.Headers.Get("Content-Type") == "" {
			resp.Headers.Set("Content-Type", "application/json")
		}
	}
	return resp
}
