// Package testing provides test doubles for code that depends on
// httpclient.Client.
//
// # Mocks
//
// The mocks subpackage offers two flavors:
//   - MockClient, a testify mock for expectation-style tests
//   - StubClient, a route table with per-method handlers that records calls
//
// NewMockResponse builds a Response from any JSON-encodable value.
//
// # Usage
//
//	stub := mocks.NewStubClient().
//		On(http.MethodGet, "/users/1", mocks.NewMockResponse(user, 200, nil))
//	svc := NewUserService(stub)
//
// For in-memory OpenTelemetry providers see observability/testing.
package testing
