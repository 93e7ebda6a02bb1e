package httpclient

import (
	"errors"
	"fmt"
	nethttp "net/http"
	"time"
)

// ErrorType categorizes client failures
type ErrorType string

const (
	NetworkError     ErrorType = "network"
	TimeoutError     ErrorType = "timeout"
	HTTPError        ErrorType = "http"
	ValidationError  ErrorType = "validation"
	InterceptorError ErrorType = "interceptor"
	RefreshError     ErrorType = "refresh"
)

// ErrEmptyCredential is reported to queued requests when a refresh succeeds
// without producing a credential.
var ErrEmptyCredential = errors.New("token refresh returned an empty credential")

// ClientError is implemented by every error the client returns
type ClientError interface {
	error
	Type() ErrorType
}

// StatusError exposes the response that produced a non-2xx failure
type StatusError interface {
	ClientError
	StatusCode() int
	Body() []byte
	Header() nethttp.Header
	Method() string
	URL() string
}

type networkError struct {
	message string
	err     error
}

// NewNetworkError creates a network error
func NewNetworkError(message string, err error) ClientError {
	return &networkError{message: message, err: err}
}

func (e *networkError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("network error: %s: %v", e.message, e.err)
	}
	return "network error: " + e.message
}

func (e *networkError) Type() ErrorType { return NetworkError }
func (e *networkError) Unwrap() error   { return e.err }

type timeoutError struct {
	message string
	timeout time.Duration
	err     error
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(message string, timeout time.Duration) ClientError {
	return &timeoutError{message: message, timeout: timeout}
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("timeout error: %s (after %s)", e.message, e.timeout)
}

func (e *timeoutError) Type() ErrorType { return TimeoutError }
func (e *timeoutError) Unwrap() error   { return e.err }

type httpError struct {
	message    string
	statusCode int
	body       []byte
	header     nethttp.Header
	method     string
	url        string
}

// NewHTTPError creates an error for a non-2xx response
func NewHTTPError(message string, statusCode int, body []byte) ClientError {
	return &httpError{message: message, statusCode: statusCode, body: body}
}

func newStatusError(method, url string, resp *Response) *httpError {
	return &httpError{
		message:    fmt.Sprintf("%s %s returned %s", method, url, nethttp.StatusText(resp.StatusCode)),
		statusCode: resp.StatusCode,
		body:       resp.Body,
		header:     resp.Headers,
		method:     method,
		url:        url,
	}
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.statusCode, e.message)
}

func (e *httpError) Type() ErrorType        { return HTTPError }
func (e *httpError) StatusCode() int        { return e.statusCode }
func (e *httpError) Body() []byte           { return e.body }
func (e *httpError) Header() nethttp.Header { return e.header }
func (e *httpError) Method() string         { return e.method }
func (e *httpError) URL() string            { return e.url }

type validationError struct {
	message string
	field   string
	err     error
}

// NewValidationError creates a validation error
func NewValidationError(message, field string) ClientError {
	return &validationError{message: message, field: field}
}

func (e *validationError) Error() string {
	msg := "validation error: " + e.message
	if e.field != "" {
		msg += " (field: " + e.field + ")"
	}
	if e.err != nil {
		msg += ": " + e.err.Error()
	}
	return msg
}

func (e *validationError) Type() ErrorType { return ValidationError }
func (e *validationError) Unwrap() error   { return e.err }

type interceptorError struct {
	message string
	stage   string
	err     error
}

// NewInterceptorError creates an interceptor error
func NewInterceptorError(message, stage string, err error) ClientError {
	return &interceptorError{message: message, stage: stage, err: err}
}

func (e *interceptorError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("interceptor error [%s]: %s: %v", e.stage, e.message, e.err)
	}
	return fmt.Sprintf("interceptor error [%s]: %s", e.stage, e.message)
}

func (e *interceptorError) Type() ErrorType { return InterceptorError }
func (e *interceptorError) Unwrap() error   { return e.err }

// refreshError reports a failed credential refresh. It wraps both the
// refresh failure and the 401 that triggered it, so errors.Is matches either.
type refreshError struct {
	message  string
	cause    error
	original error
}

// NewRefreshError creates a refresh error wrapping the refresh failure and
// the request error that led to it. Either may be nil.
func NewRefreshError(message string, cause, original error) ClientError {
	return &refreshError{message: message, cause: cause, original: original}
}

func (e *refreshError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("refresh error: %s: %v", e.message, e.cause)
	}
	return "refresh error: " + e.message
}

func (e *refreshError) Type() ErrorType { return RefreshError }

func (e *refreshError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	if e.original != nil {
		errs = append(errs, e.original)
	}
	return errs
}

// IsErrorType reports whether the outermost ClientError in err's chain has type t.
func IsErrorType(err error, t ErrorType) bool {
	var ce ClientError
	if errors.As(err, &ce) {
		return ce.Type() == t
	}
	return false
}

// AsStatusError finds the first non-2xx response error in err's tree.
func AsStatusError(err error) (StatusError, bool) {
	var he *httpError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// IsHTTPStatusError reports whether err carries a response with the given status.
func IsHTTPStatusError(err error, statusCode int) bool {
	se, ok := AsStatusError(err)
	return ok && se.StatusCode() == statusCode
}

// IsUnauthorized reports whether err carries a 401 response.
func IsUnauthorized(err error) bool {
	return IsHTTPStatusError(err, nethttp.StatusUnauthorized)
}

// IsSuccessStatus reports whether statusCode is in the 2xx range.
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
