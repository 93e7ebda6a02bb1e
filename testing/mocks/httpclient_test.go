package mocks

import (
	"context"
	"errors"
	nethttp "net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-authclient/httpclient"
	authtesting "github.com/gaborage/go-authclient/testing"
)

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// userService is a consumer that depends only on the client interface.
type userService struct{ client httpclient.Client }

func (s userService) user(ctx context.Context, id string) (user, error) {
	return httpclient.As[user](s.client.Get(ctx, &httpclient.Request{URL: authtesting.TestUsersPath + "/" + id}))
}

func TestMockClient(t *testing.T) {
	m := &MockClient{}
	m.On("Get", mock.Anything, mock.MatchedBy(func(r *httpclient.Request) bool {
		return r.URL == "/users/1"
	})).Return(NewMockResponse(user{ID: 1, Name: "ada"}, 0, nil), nil).Once()

	u, err := userService{client: m}.user(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "ada", u.Name)
	m.AssertExpectations(t)
}

func TestMockClientErrorAndNilResponse(t *testing.T) {
	m := &MockClient{}
	boom := httpclient.NewNetworkError("connection refused", nil)
	m.On("Do", mock.Anything, "OPTIONS", mock.Anything).Return(nil, boom)
	m.On("Delete", mock.Anything, mock.Anything).Return(nil, nil)

	resp, err := m.Do(context.Background(), "OPTIONS", &httpclient.Request{})
	assert.Nil(t, resp)
	assert.Equal(t, boom, err)

	resp, err = m.Delete(context.Background(), &httpclient.Request{})
	assert.Nil(t, resp)
	assert.NoError(t, err)
}

func TestStubClientRoutes(t *testing.T) {
	stub := NewStubClient().
		On(nethttp.MethodGet, "/users/1", NewMockResponse(user{ID: 1, Name: "grace"}, nethttp.StatusOK, map[string]string{"X-Cache": "hit"})).
		On("post", authtesting.TestUsersPath, NewMockResponse(`{"id":2}`, nethttp.StatusCreated, nil))

	u, err := userService{client: stub}.user(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "grace", u.Name)

	resp, err := stub.Post(context.Background(), &httpclient.Request{URL: authtesting.TestUsersPath, Body: user{Name: "new"}})
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"id":2}`, string(resp.Body))

	calls := stub.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, nethttp.MethodGet, calls[0].Method)
	assert.Equal(t, nethttp.MethodPost, calls[1].Method)
	assert.Equal(t, user{Name: "new"}, calls[1].Request.Body)
	assert.Len(t, stub.CallsFor("get"), 1)
}

func TestStubClientMissingRoute(t *testing.T) {
	stub := NewStubClient()

	_, err := stub.Get(context.Background(), &httpclient.Request{URL: "/x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoMock))
	assert.Equal(t, "no mock defined for GET /x", err.Error())
	assert.Len(t, stub.Calls(), 1)
}

func TestStubClientErrorStatus(t *testing.T) {
	stub := NewStubClient().On(nethttp.MethodPut, "/locked", NewMockResponse(map[string]string{"error": "locked"}, nethttp.StatusLocked, nil))

	_, err := stub.Put(context.Background(), &httpclient.Request{URL: "/locked"})
	require.Error(t, err)
	assert.True(t, httpclient.IsHTTPStatusError(err, nethttp.StatusLocked))
}

func TestStubClientHandlerWinsOverRoutes(t *testing.T) {
	stub := NewStubClient().
		On(nethttp.MethodPatch, "/a", NewMockResponse("route", 0, nil)).
		Handle(nethttp.MethodPatch, func(_ context.Context, req *httpclient.Request) (*httpclient.Response, error) {
			return NewMockResponse("handled "+req.URL, 0, nil), nil
		})

	resp, err := stub.Patch(context.Background(), &httpclient.Request{URL: "/a"})
	require.NoError(t, err)
	assert.Equal(t, "handled /a", string(resp.Body))
}

func TestNewMockResponse(t *testing.T) {
	resp := NewMockResponse(map[string]int{"n": 1}, 0, nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Headers.Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, string(resp.Body))

	raw := NewMockResponse([]byte("raw"), nethttp.StatusAccepted, map[string]string{"Content-Type": "text/plain"})
	assert.Equal(t, "raw", string(raw.Body))
	assert.Equal(t, "text/plain", raw.Headers.Get("Content-Type"))

	empty := NewMockResponse(nil, nethttp.StatusNoContent, nil)
	assert.Empty(t, empty.Body)

	assert.Panics(t, func() { NewMockResponse(make(chan int), 0, nil) })
}
