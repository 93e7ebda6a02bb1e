package testing

import "time"

// Credential fixtures shared by client and mock tests.
const (
	TestTokenA = "tok-A"
	TestTokenB = "tok-B"
	TestTokenC = "tok-C"
)

// Request fixtures.
const (
	TestUsersPath = "/users"
	TestTraceID   = "test-trace-123"
)

// Time Duration Constants
// Common time durations used in test synchronization and timeouts.
const (
	// TestRetryDelay is the backoff base used by retry tests (100ms)
	TestRetryDelay = 100 * time.Millisecond
	// TestEventuallyTimeout is the timeout for require.Eventually assertions
	TestEventuallyTimeout = 2 * time.Second
	// TestEventuallyTick is the polling interval for require.Eventually
	TestEventuallyTick = 5 * time.Millisecond
)
